package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strrl/neuropipe/internal/clinical"
	"github.com/strrl/neuropipe/internal/db"
	"github.com/strrl/neuropipe/internal/generator"
	"github.com/strrl/neuropipe/internal/output"
)

var (
	validateConfigPath string
	validateInput      string
	validateSimulate   int
	validateThreshold  float64
	validateContext    []string
	validateDBPath     string
	validateReportDir  string
	validateSessionID  string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the clinical equation battery over test data",
	Long: `Run every registered scoring equation over a series of observations and
report pass/fail against the acceptance threshold. Test data comes from a
file of one float per line, or from the simulator.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateConfigPath, "config", "c", "", "Path to a TOML config file")
	validateCmd.Flags().StringVarP(&validateInput, "input", "i", "", "File with one observation per line")
	validateCmd.Flags().IntVar(&validateSimulate, "simulate", 256, "Simulated observation count when no input file is given")
	validateCmd.Flags().Float64VarP(&validateThreshold, "threshold", "t", 0, "Acceptance threshold (default from config, 0.95)")
	validateCmd.Flags().StringArrayVar(&validateContext, "context", nil, "Extra equation context as key=value, repeatable")
	validateCmd.Flags().StringVar(&validateDBPath, "db", "", "Persist the summary to a DuckDB file")
	validateCmd.Flags().StringVar(&validateReportDir, "report", "", "Write a markdown report to this directory")
	validateCmd.Flags().StringVar(&validateSessionID, "session", "adhoc", "Session ID to record the summary under")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig(validateConfigPath)
	if err != nil {
		return err
	}

	data, err := collectObservations()
	if err != nil {
		return err
	}
	fmt.Printf("Validating %d observations\n", len(data))

	context, err := parseContext(validateContext)
	if err != nil {
		return err
	}

	engine := clinical.NewEngine(fileCfg.EngineConfig(), nil)
	summary, err := engine.ValidateAllEquations(data, validateThreshold, context)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("Threshold %.2f, pass rate %.0f%%\n", summary.Threshold, summary.PassRate*100)
	for _, res := range summary.Results {
		status := "FAIL"
		if res.Passed {
			status = "PASS"
		}
		fmt.Printf("  [%s] %-20s raw=%8.3f score=%.3f", status, res.Name, res.Raw, res.Score)
		if res.Diagnostic != "" {
			fmt.Printf(" (%s)", res.Diagnostic)
		}
		fmt.Println()
	}
	if summary.PassedAll {
		fmt.Println("All equations passed")
	}

	if validateDBPath != "" {
		store, err := db.Open(validateDBPath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()
		if err := store.SaveValidationSummary(validateSessionID, summary); err != nil {
			return err
		}
		fmt.Printf("Persisted summary to %s\n", validateDBPath)
	}

	if validateReportDir != "" {
		gen := output.NewGenerator(validateReportDir)
		file, err := gen.Generate(output.Report{
			SessionID:  validateSessionID,
			Validation: summary,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Wrote report %s\n", file)
	}

	return nil
}

func collectObservations() ([]float64, error) {
	if validateInput == "" {
		gen := generator.New(generator.DefaultConfig())
		return gen.Series(validateSimulate), nil
	}

	f, err := os.Open(validateInput)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	var data []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("bad observation %q: %w", line, err)
		}
		data = append(data, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func parseContext(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("context must be key=value, got %q", pair)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad context value %q: %w", pair, err)
		}
		out[strings.TrimSpace(key)] = v
	}
	return out, nil
}
