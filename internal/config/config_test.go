package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/strrl/neuropipe/internal/signals"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file must not be an error, got %v", err)
	}
	if cfg.Pipeline.MinWindowSize != nil {
		t.Fatal("expected empty config for missing file")
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSessionConfigDefaults(t *testing.T) {
	cfg := FileConfig{}.SessionConfig()

	if cfg.Pipeline.MinWindowSize != 10 {
		t.Fatalf("expected default min window size 10, got %d", cfg.Pipeline.MinWindowSize)
	}
	if cfg.Orchestrator.QueueDepth != 10 {
		t.Fatalf("expected default queue depth 10, got %d", cfg.Orchestrator.QueueDepth)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neuropipe.toml")
	content := `
[pipeline]
min-window-size = 32

[classifier]
attention-high = 0.8
acquisition-threshold = 0.4

[orchestrator]
queue-depth = 4
high-water = 0.9

[validation]
threshold = 0.9
alpha = 0.01
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	fileCfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := fileCfg.SessionConfig()
	if cfg.Pipeline.MinWindowSize != 32 {
		t.Fatalf("expected min window size 32, got %d", cfg.Pipeline.MinWindowSize)
	}
	if cfg.Pipeline.Classifier.AttentionHigh != 0.8 {
		t.Fatalf("expected attention high 0.8, got %v", cfg.Pipeline.Classifier.AttentionHigh)
	}
	if got := cfg.Pipeline.Classifier.StageThresholds[signals.StageAcquisition]; got != 0.4 {
		t.Fatalf("expected acquisition threshold 0.4, got %v", got)
	}
	if cfg.Pipeline.Classifier.StageThresholds[signals.StageRetrieval] != 0.65 {
		t.Fatal("expected untouched stage thresholds to keep defaults")
	}
	if cfg.Orchestrator.QueueDepth != 4 || cfg.Orchestrator.HighWater != 0.9 {
		t.Fatalf("expected orchestrator overrides, got %+v", cfg.Orchestrator)
	}

	engineCfg := fileCfg.EngineConfig()
	if engineCfg.Threshold != 0.9 || engineCfg.Alpha != 0.01 {
		t.Fatalf("expected validation overrides, got %+v", engineCfg)
	}
}
