package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/neuropipe/internal/clinical"
)

var (
	trialConfigPath  string
	trialPrimary     string
	trialSecondaries []string
	trialEffectSize  float64
	trialPower       float64
	trialAlpha       float64
)

var trialCmd = &cobra.Command{
	Use:   "trial",
	Short: "Estimate a trial sample size",
	Long: `Estimate per-group and total participants for a trial design using the
normal-approximation heuristic n = (16/d^2)*(power/0.8) with a 20-participant
floor. A planning aid only, not a substitute for a real power analysis.`,
	RunE: runTrial,
}

func init() {
	rootCmd.AddCommand(trialCmd)

	trialCmd.Flags().StringVarP(&trialConfigPath, "config", "c", "", "Path to a TOML config file")
	trialCmd.Flags().StringVar(&trialPrimary, "primary", "", "Primary endpoint name (required)")
	trialCmd.Flags().StringArrayVar(&trialSecondaries, "secondary", nil, "Secondary endpoint name, repeatable")
	trialCmd.Flags().Float64Var(&trialEffectSize, "effect-size", 0.5, "Target effect size (Cohen's d)")
	trialCmd.Flags().Float64Var(&trialPower, "power", 0.8, "Target statistical power")
	trialCmd.Flags().Float64Var(&trialAlpha, "alpha", 0, "Significance level (default from config, 0.05)")
	_ = trialCmd.MarkFlagRequired("primary")
}

func runTrial(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig(trialConfigPath)
	if err != nil {
		return err
	}

	engine := clinical.NewEngine(fileCfg.EngineConfig(), nil)
	trial, err := engine.DesignTrial(trialPrimary, trialSecondaries, trialEffectSize, trialPower, trialAlpha)
	if err != nil {
		return fmt.Errorf("trial design failed: %w", err)
	}

	fmt.Printf("Trial design for primary endpoint %q\n", trial.PrimaryEndpoint)
	if len(trial.SecondaryEndpoints) > 0 {
		fmt.Printf("  Secondary endpoints: %v\n", trial.SecondaryEndpoints)
	}
	fmt.Printf("  Effect size: %.2f, power: %.2f, alpha: %.3f\n", trial.EffectSize, trial.Power, trial.Alpha)
	fmt.Printf("  Participants: %d per group, %d total\n", trial.PerGroup, trial.TotalParticipants)

	return nil
}
