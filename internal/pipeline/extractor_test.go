package pipeline

import (
	"math"
	"testing"
)

func checkBounded(t *testing.T, name string, v float64) {
	t.Helper()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Fatalf("%s is non-finite: %v", name, v)
	}
	if v < 0 || v > 1 {
		t.Fatalf("%s out of [0,1]: %v", name, v)
	}
}

func TestExtractDeterministic(t *testing.T) {
	in := NewIngestor(10)
	buf := sineBuffer(8, 256, 256)

	normalized, err := in.Ingest(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := NewExtractor().Extract(normalized)
	second := NewExtractor().Extract(normalized)
	if first != second {
		t.Fatalf("extraction is not deterministic: %+v vs %+v", first, second)
	}
}

func TestExtractBoundedFields(t *testing.T) {
	in := NewIngestor(10)
	ex := NewExtractor()

	buf := sineBuffer(8, 256, 256)
	normalized, err := in.Ingest(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fv := ex.Extract(normalized)
	checkBounded(t, "delta", fv.Delta)
	checkBounded(t, "theta", fv.Theta)
	checkBounded(t, "alpha", fv.Alpha)
	checkBounded(t, "beta", fv.Beta)
	checkBounded(t, "gamma", fv.Gamma)
	checkBounded(t, "coherence", fv.Coherence)
	checkBounded(t, "attention", fv.Attention)
	checkBounded(t, "learning efficiency", fv.LearningEfficiency)
}

func TestExtractBandPowersSumToOne(t *testing.T) {
	in := NewIngestor(10)
	buf := sineBuffer(4, 512, 256)

	normalized, err := in.Ingest(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fv := NewExtractor().Extract(normalized)
	var sum float64
	for _, p := range fv.BandPowers() {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("expected band powers to sum to 1, got %v", sum)
	}
}

func TestExtractCoherenceRange(t *testing.T) {
	in := NewIngestor(10)
	buf := sineBuffer(4, 512, 256)

	normalized, err := in.Ingest(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fv := NewExtractor().Extract(normalized)
	// Five bands: concentration sits between uniform (1/5) and single-band (1).
	if fv.Coherence < 0.2-1e-9 || fv.Coherence > 1+1e-9 {
		t.Fatalf("coherence out of [1/5,1]: %v", fv.Coherence)
	}
}

func TestConcentration(t *testing.T) {
	if got := concentration([5]float64{1, 0, 0, 0, 0}); math.Abs(got-1) > 1e-12 {
		t.Fatalf("expected 1 for single-band energy, got %v", got)
	}
	if got := concentration([5]float64{0.2, 0.2, 0.2, 0.2, 0.2}); math.Abs(got-0.2) > 1e-12 {
		t.Fatalf("expected 1/5 for uniform spread, got %v", got)
	}
}
