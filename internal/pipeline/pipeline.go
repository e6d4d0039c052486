// Package pipeline implements the per-window processing chain: ingest,
// feature extraction, and cognitive-state classification, plus the
// orchestrator that sequences windows through it.
package pipeline

import (
	"github.com/strrl/neuropipe/internal/signals"
)

type Config struct {
	MinWindowSize int
	Classifier    ClassifierConfig
}

func DefaultConfig() Config {
	return Config{
		MinWindowSize: DefaultMinWindowSize,
		Classifier:    DefaultClassifierConfig(),
	}
}

// Pipeline composes the three per-window stages. It holds no session state
// beyond the extractor's last valid feature vector; stage progression is the
// caller's to carry between windows.
type Pipeline struct {
	ingestor   *Ingestor
	extractor  *Extractor
	classifier *Classifier
}

func New(cfg Config) *Pipeline {
	return &Pipeline{
		ingestor:   NewIngestor(cfg.MinWindowSize),
		extractor:  NewExtractor(),
		classifier: NewClassifier(cfg.Classifier),
	}
}

// ProcessWindow runs one buffer through ingest, extract, and classify.
// It returns the feature vector, the classification, and the buffer's raw
// mean for KPI anchoring.
func (p *Pipeline) ProcessWindow(buf *signals.SampleBuffer, prev signals.LearningStage) (signals.FeatureVector, signals.CognitiveState, float64, error) {
	normalized, err := p.ingestor.Ingest(buf)
	if err != nil {
		return signals.FeatureVector{}, signals.CognitiveState{}, 0, err
	}

	fv := p.extractor.Extract(normalized)
	state := p.classifier.Classify(fv, prev)

	return fv, state, normalized.RawMean, nil
}

// Ingest exposes the validation stage on its own, for callers that admit
// buffers ahead of processing.
func (p *Pipeline) Ingest(buf *signals.SampleBuffer) (*signals.NormalizedBuffer, error) {
	return p.ingestor.Ingest(buf)
}

// ProcessNormalized runs the extraction and classification stages over an
// already admitted buffer.
func (p *Pipeline) ProcessNormalized(buf *signals.NormalizedBuffer, prev signals.LearningStage) (signals.FeatureVector, signals.CognitiveState) {
	fv := p.extractor.Extract(buf)
	return fv, p.classifier.Classify(fv, prev)
}
