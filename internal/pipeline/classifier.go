package pipeline

import (
	"github.com/strrl/neuropipe/internal/signals"
)

type ClassifierConfig struct {
	AttentionHigh float64
	AttentionLow  float64
	CoherenceHigh float64
	ActivityHigh  float64
	AlphaDominant float64

	// StageThresholds gates stage advancement: the stage moves to the next
	// one in its cycle only when the window's learning efficiency exceeds
	// the current stage's threshold.
	StageThresholds map[signals.LearningStage]float64
}

func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		AttentionHigh: 0.7,
		AttentionLow:  0.3,
		CoherenceHigh: 0.6,
		ActivityHigh:  0.5,
		AlphaDominant: 0.4,
		StageThresholds: map[signals.LearningStage]float64{
			signals.StageAcquisition:   0.55,
			signals.StageConsolidation: 0.60,
			signals.StageRetrieval:     0.65,
			signals.StageAdaptation:    0.70,
		},
	}
}

// Classifier maps a feature vector onto the two-axis cognitive state machine.
type Classifier struct {
	config ClassifierConfig
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	if cfg.StageThresholds == nil {
		cfg.StageThresholds = DefaultClassifierConfig().StageThresholds
	}
	return &Classifier{config: cfg}
}

// Classify picks the neural state from threshold rules over the window's
// attention and coherence, and advances the learning stage through its fixed
// cycle when the stage threshold is met. An unset previous stage means a new
// session and resolves to ACQUISITION.
func (c *Classifier) Classify(fv signals.FeatureVector, prev signals.LearningStage) signals.CognitiveState {
	stage := prev
	if !stage.IsValid() {
		// First window of a session enters the cycle; advancement starts
		// with the next window.
		stage = signals.StageAcquisition
	} else if threshold, ok := c.config.StageThresholds[stage]; ok && fv.LearningEfficiency > threshold {
		stage = stage.Next()
	}

	return signals.CognitiveState{
		Stage: stage,
		State: c.neuralState(fv),
	}
}

func (c *Classifier) neuralState(fv signals.FeatureVector) signals.NeuralState {
	activity := fv.Beta + fv.Gamma

	switch {
	case fv.Attention >= c.config.AttentionHigh && fv.Coherence >= c.config.CoherenceHigh:
		return signals.StateFocused
	case fv.Coherence >= c.config.CoherenceHigh && activity >= c.config.ActivityHigh:
		return signals.StateLearning
	case fv.Attention >= c.config.AttentionHigh:
		return signals.StateProcessing
	case fv.Alpha >= c.config.AlphaDominant && fv.Attention < c.config.AttentionLow:
		return signals.StateConsolidating
	case fv.Attention < c.config.AttentionLow:
		return signals.StateResting
	default:
		return signals.StateProcessing
	}
}
