// Package config provides TOML configuration loading for the pipeline.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/strrl/neuropipe/internal/clinical"
	"github.com/strrl/neuropipe/internal/pipeline"
	"github.com/strrl/neuropipe/internal/session"
	"github.com/strrl/neuropipe/internal/signals"
)

// FileConfig represents the TOML configuration file. Pointer fields
// distinguish "unset" from an explicit zero.
type FileConfig struct {
	Pipeline     PipelineConfig     `toml:"pipeline"`
	Classifier   ClassifierConfig   `toml:"classifier"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Validation   ValidationConfig   `toml:"validation"`
}

type PipelineConfig struct {
	MinWindowSize *int `toml:"min-window-size"`
}

type ClassifierConfig struct {
	AttentionHigh *float64 `toml:"attention-high"`
	AttentionLow  *float64 `toml:"attention-low"`
	CoherenceHigh *float64 `toml:"coherence-high"`
	ActivityHigh  *float64 `toml:"activity-high"`
	AlphaDominant *float64 `toml:"alpha-dominant"`

	AcquisitionThreshold   *float64 `toml:"acquisition-threshold"`
	ConsolidationThreshold *float64 `toml:"consolidation-threshold"`
	RetrievalThreshold     *float64 `toml:"retrieval-threshold"`
	AdaptationThreshold    *float64 `toml:"adaptation-threshold"`
}

type OrchestratorConfig struct {
	QueueDepth     *int     `toml:"queue-depth"`
	HighWater      *float64 `toml:"high-water"`
	LowWater       *float64 `toml:"low-water"`
	BaseWindowSize *int     `toml:"base-window-size"`
	MinWindowSize  *int     `toml:"min-window-size"`
	MaxWindowSize  *int     `toml:"max-window-size"`
}

type ValidationConfig struct {
	Threshold *float64 `toml:"threshold"`
	Alpha     *float64 `toml:"alpha"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an
// error; flags and defaults cover everything.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// SessionConfig applies the file settings over the built-in defaults.
func (c FileConfig) SessionConfig() session.Config {
	cfg := session.DefaultConfig()

	if c.Pipeline.MinWindowSize != nil {
		cfg.Pipeline.MinWindowSize = *c.Pipeline.MinWindowSize
	}

	cl := &cfg.Pipeline.Classifier
	setFloat(&cl.AttentionHigh, c.Classifier.AttentionHigh)
	setFloat(&cl.AttentionLow, c.Classifier.AttentionLow)
	setFloat(&cl.CoherenceHigh, c.Classifier.CoherenceHigh)
	setFloat(&cl.ActivityHigh, c.Classifier.ActivityHigh)
	setFloat(&cl.AlphaDominant, c.Classifier.AlphaDominant)
	setStageThreshold(cl, signals.StageAcquisition, c.Classifier.AcquisitionThreshold)
	setStageThreshold(cl, signals.StageConsolidation, c.Classifier.ConsolidationThreshold)
	setStageThreshold(cl, signals.StageRetrieval, c.Classifier.RetrievalThreshold)
	setStageThreshold(cl, signals.StageAdaptation, c.Classifier.AdaptationThreshold)

	o := &cfg.Orchestrator
	setInt(&o.QueueDepth, c.Orchestrator.QueueDepth)
	setFloat(&o.HighWater, c.Orchestrator.HighWater)
	setFloat(&o.LowWater, c.Orchestrator.LowWater)
	setInt(&o.BaseWindowSize, c.Orchestrator.BaseWindowSize)
	setInt(&o.MinWindowSize, c.Orchestrator.MinWindowSize)
	setInt(&o.MaxWindowSize, c.Orchestrator.MaxWindowSize)

	return cfg
}

// EngineConfig applies the file settings over the engine defaults.
func (c FileConfig) EngineConfig() clinical.EngineConfig {
	cfg := clinical.DefaultEngineConfig()
	setFloat(&cfg.Threshold, c.Validation.Threshold)
	setFloat(&cfg.Alpha, c.Validation.Alpha)
	return cfg
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setStageThreshold(cl *pipeline.ClassifierConfig, stage signals.LearningStage, src *float64) {
	if src != nil {
		cl.StageThresholds[stage] = *src
	}
}
