package signals

import (
	"fmt"
	"time"
)

// LearningStage is the slow axis of a window classification. Stages advance
// through a fixed cycle and never terminate; a session that stalls simply
// holds its current stage.
type LearningStage int

const (
	StageUnset LearningStage = iota
	StageAcquisition
	StageConsolidation
	StageRetrieval
	StageAdaptation
)

var stageNames = map[LearningStage]string{
	StageUnset:         "UNSET",
	StageAcquisition:   "ACQUISITION",
	StageConsolidation: "CONSOLIDATION",
	StageRetrieval:     "RETRIEVAL",
	StageAdaptation:    "ADAPTATION",
}

func (s LearningStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("LearningStage(%d)", int(s))
}

func (s LearningStage) IsValid() bool {
	return s >= StageAcquisition && s <= StageAdaptation
}

// Next returns the following stage in the fixed cycle
// ACQUISITION -> CONSOLIDATION -> RETRIEVAL -> ADAPTATION -> ACQUISITION.
// An unset stage starts the cycle at ACQUISITION.
func (s LearningStage) Next() LearningStage {
	switch s {
	case StageAcquisition:
		return StageConsolidation
	case StageConsolidation:
		return StageRetrieval
	case StageRetrieval:
		return StageAdaptation
	case StageAdaptation:
		return StageAcquisition
	default:
		return StageAcquisition
	}
}

// NeuralState is the fast axis of a window classification, independent from
// the learning stage.
type NeuralState int

const (
	StateResting NeuralState = iota
	StateFocused
	StateLearning
	StateProcessing
	StateConsolidating
)

var stateNames = map[NeuralState]string{
	StateResting:       "RESTING",
	StateFocused:       "FOCUSED",
	StateLearning:      "LEARNING",
	StateProcessing:    "PROCESSING",
	StateConsolidating: "CONSOLIDATING",
}

func (s NeuralState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("NeuralState(%d)", int(s))
}

// CognitiveState pairs the two classification axes. A (Stage, State) pair
// fully describes one window.
type CognitiveState struct {
	Stage LearningStage
	State NeuralState
}

// SampleBuffer is a raw multi-channel window as delivered by a caller.
// Channels must be rectangular: every channel holds the same sample count.
type SampleBuffer struct {
	Channels   [][]float64
	SampleRate float64
}

func (b *SampleBuffer) ChannelCount() int {
	return len(b.Channels)
}

// SampleCount returns the per-channel length, or 0 for an empty buffer.
func (b *SampleBuffer) SampleCount() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the window length in seconds.
func (b *SampleBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.SampleCount()) / b.SampleRate
}

// RawMean returns the mean over all raw samples across channels.
func (b *SampleBuffer) RawMean() float64 {
	var sum float64
	var n int
	for _, ch := range b.Channels {
		for _, v := range ch {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// NormalizedBuffer is the ingestor output: zero mean and unit-range scaling
// per channel. RawMean preserves the pre-normalization mean for KPI anchoring.
type NormalizedBuffer struct {
	Channels   [][]float64
	SampleRate float64
	RawMean    float64
}

func (b *NormalizedBuffer) SampleCount() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// FeatureVector holds the per-window features. Every field is normalized to
// [0,1]; extraction never lets a NaN or Inf escape.
type FeatureVector struct {
	Delta              float64
	Theta              float64
	Alpha              float64
	Beta               float64
	Gamma              float64
	Coherence          float64
	Attention          float64
	LearningEfficiency float64
}

// BandPowers returns the five band powers ordered slow to fast.
func (fv FeatureVector) BandPowers() [5]float64 {
	return [5]float64{fv.Delta, fv.Theta, fv.Alpha, fv.Beta, fv.Gamma}
}

// SessionKPIs is a read-only snapshot of the session-level metrics.
type SessionKPIs struct {
	EngagementLevel      float64
	LearningEfficiency   float64
	RetentionCorrelation float64
	AdaptationSpeed      float64
	WindowCount          int
	UpdatedAt            time.Time
}

// WindowResult is the output-gate record for one processed window.
type WindowResult struct {
	Seq         uint64
	RawMean     float64
	Features    FeatureVector
	State       CognitiveState
	KPIs        SessionKPIs
	ProcessedAt time.Time
}
