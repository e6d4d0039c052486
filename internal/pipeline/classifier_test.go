package pipeline

import (
	"testing"

	"github.com/strrl/neuropipe/internal/signals"
)

func TestClassifyUnsetStageDefaultsToAcquisition(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	fv := signals.FeatureVector{LearningEfficiency: 0.99}

	state := c.Classify(fv, signals.StageUnset)
	if state.Stage != signals.StageAcquisition {
		t.Fatalf("expected first window to classify as ACQUISITION, got %s", state.Stage)
	}
}

func TestClassifyHoldsBelowThreshold(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	fv := signals.FeatureVector{LearningEfficiency: 0.5}

	stage := signals.StageAcquisition
	for i := 0; i < 20; i++ {
		state := c.Classify(fv, stage)
		if state.Stage != signals.StageAcquisition {
			t.Fatalf("window %d: expected to hold in ACQUISITION, got %s", i, state.Stage)
		}
		stage = state.Stage
	}
}

func TestClassifyAdvancesThroughCycle(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	fv := signals.FeatureVector{LearningEfficiency: 0.9}

	want := []signals.LearningStage{
		signals.StageConsolidation,
		signals.StageRetrieval,
		signals.StageAdaptation,
		signals.StageAcquisition,
		signals.StageConsolidation,
	}

	stage := signals.StageAcquisition
	for i, expected := range want {
		state := c.Classify(fv, stage)
		if state.Stage != expected {
			t.Fatalf("step %d: expected %s, got %s", i, expected, state.Stage)
		}
		stage = state.Stage
	}
}

func TestClassifyNeuralStates(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	cases := []struct {
		name string
		fv   signals.FeatureVector
		want signals.NeuralState
	}{
		{
			name: "high attention and coherence is focused",
			fv:   signals.FeatureVector{Attention: 0.8, Coherence: 0.7},
			want: signals.StateFocused,
		},
		{
			name: "coherent fast-band activity is learning",
			fv:   signals.FeatureVector{Attention: 0.5, Coherence: 0.7, Beta: 0.4, Gamma: 0.3},
			want: signals.StateLearning,
		},
		{
			name: "high attention alone is processing",
			fv:   signals.FeatureVector{Attention: 0.8, Coherence: 0.3},
			want: signals.StateProcessing,
		},
		{
			name: "dominant alpha at low attention is consolidating",
			fv:   signals.FeatureVector{Attention: 0.2, Alpha: 0.5},
			want: signals.StateConsolidating,
		},
		{
			name: "low attention is resting",
			fv:   signals.FeatureVector{Attention: 0.1, Alpha: 0.1},
			want: signals.StateResting,
		},
		{
			name: "middling signal is processing",
			fv:   signals.FeatureVector{Attention: 0.5, Coherence: 0.4},
			want: signals.StateProcessing,
		},
	}

	for _, tc := range cases {
		state := c.Classify(tc.fv, signals.StageAcquisition)
		if state.State != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, state.State)
		}
	}
}
