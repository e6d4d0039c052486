package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "neuropipe",
	Short: "Real-time neuroadaptive signal pipeline",
	Long: `neuropipe ingests multi-channel signal windows, extracts band-power
features, classifies cognitive state, aggregates session KPIs, and validates
scoring equations against a clinical acceptance threshold.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = false
}
