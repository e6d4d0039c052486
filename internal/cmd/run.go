package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/strrl/neuropipe/internal/config"
	"github.com/strrl/neuropipe/internal/db"
	"github.com/strrl/neuropipe/internal/generator"
	"github.com/strrl/neuropipe/internal/output"
	"github.com/strrl/neuropipe/internal/parser"
	"github.com/strrl/neuropipe/internal/pipeline"
	"github.com/strrl/neuropipe/internal/session"
	"github.com/strrl/neuropipe/internal/signals"
)

var (
	runConfigPath string
	runWindows    int
	runWindowSize int
	runChannels   int
	runRate       float64
	runSeed       int64
	runInput      string
	runDBPath     string
	runReportDir  string
	runVerbose    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a signal session through the pipeline",
	Long: `Run a session through the full pipeline: either simulated windows or a
recorded JSONL capture. Prints the per-window states and final session KPIs,
and optionally persists results to DuckDB or writes a markdown report.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to a TOML config file")
	runCmd.Flags().IntVarP(&runWindows, "windows", "n", 32, "Number of simulated windows")
	runCmd.Flags().IntVar(&runWindowSize, "window-size", 256, "Samples per simulated window")
	runCmd.Flags().IntVar(&runChannels, "channels", 8, "Channels per simulated window")
	runCmd.Flags().Float64Var(&runRate, "rate", 256, "Sample rate in Hz")
	runCmd.Flags().Int64Var(&runSeed, "seed", 1, "Simulation seed")
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "Replay a recorded JSONL capture instead of simulating")
	runCmd.Flags().StringVar(&runDBPath, "db", "", "Persist results to a DuckDB file")
	runCmd.Flags().StringVar(&runReportDir, "report", "", "Write a markdown session report to this directory")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print every window result")
}

func runRun(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig(runConfigPath)
	if err != nil {
		return err
	}
	sessionCfg := fileCfg.SessionConfig()

	var store *db.Store
	if runDBPath != "" || runInput != "" {
		store, err = db.Open(runDBPath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()
	}

	buffers, err := collectBuffers(store)
	if err != nil {
		return err
	}
	fmt.Printf("Submitting %d windows\n", len(buffers))

	manager := session.NewManager()
	sess := manager.Start(sessionCfg)
	if store != nil && runDBPath != "" {
		sess.AddSink(store.SessionSink(sess.ID))
	}
	fmt.Printf("Session %s started\n", sess.ID)

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		err := sess.Run(ctx, func(res signals.WindowResult) error {
			if runVerbose {
				fmt.Printf("  window %3d: stage=%s state=%s attention=%.3f coherence=%.3f\n",
					res.Seq, res.State.Stage, res.State.State, res.Features.Attention, res.Features.Coherence)
			}
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		defer sess.Close()
		for _, buf := range buffers {
			if err := submitWithRetry(ctx, sess, buf); err != nil {
				var sigErr *signals.InvalidSignalError
				if errors.As(err, &sigErr) {
					fmt.Printf("  skipped invalid window: %v\n", err)
					continue
				}
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	stats := sess.Stats()
	kpis := sess.KPIs()
	fmt.Printf("Processed %d windows (%d rejected, %d invalid)\n", stats.Processed, stats.Rejected, stats.Invalid)
	fmt.Printf("Session KPIs:\n")
	fmt.Printf("  - engagement level:      %.3f\n", kpis.EngagementLevel)
	fmt.Printf("  - learning efficiency:   %.3f\n", kpis.LearningEfficiency)
	fmt.Printf("  - retention correlation: %.3f\n", kpis.RetentionCorrelation)
	fmt.Printf("  - adaptation speed:      %.3f\n", kpis.AdaptationSpeed)

	if store != nil && runDBPath != "" {
		if err := store.SaveKPIs(sess.ID, kpis); err != nil {
			return err
		}
		fmt.Printf("Persisted results to %s\n", runDBPath)
	}

	if runReportDir != "" {
		gen := output.NewGenerator(runReportDir)
		file, err := gen.Generate(output.Report{
			SessionID:   sess.ID,
			Stats:       stats,
			KPIs:        kpis,
			StateCounts: sess.StateCounts(),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Wrote report %s\n", file)
	}

	return nil
}

func collectBuffers(store *db.Store) ([]*signals.SampleBuffer, error) {
	if runInput == "" {
		gen := generator.New(generator.Config{
			Channels:   runChannels,
			SampleRate: runRate,
			Baseline:   30,
			Amplitude:  8,
			Noise:      2,
			Seed:       runSeed,
		})
		buffers := make([]*signals.SampleBuffer, 0, runWindows)
		for i := 0; i < runWindows; i++ {
			buffers = append(buffers, gen.Window(runWindowSize))
		}
		return buffers, nil
	}

	p := parser.NewParser(store.DB())
	count, first, last, err := p.GetCaptureStats(runInput)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	fmt.Printf("Capture %s: %d windows (seq %d to %d)\n", runInput, count, first, last)

	windows, err := p.FetchWindows(runInput)
	if err != nil {
		return nil, err
	}
	buffers := make([]*signals.SampleBuffer, 0, len(windows))
	for _, w := range windows {
		buffers = append(buffers, w.Buffer())
	}
	return buffers, nil
}

// submitWithRetry backs off briefly on backpressure instead of dropping the
// window.
func submitWithRetry(ctx context.Context, sess *session.Session, buf *signals.SampleBuffer) error {
	for {
		_, err := sess.Submit(ctx, buf)
		if !errors.Is(err, pipeline.ErrBackpressure) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func loadFileConfig(path string) (config.FileConfig, error) {
	if path == "" {
		return config.FileConfig{}, nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
