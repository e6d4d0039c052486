package pipeline

import (
	"math"

	"github.com/strrl/neuropipe/internal/signals"
)

const DefaultMinWindowSize = 10

// Ingestor validates a raw sample buffer and normalizes it to zero mean and
// unit-range scaling per channel.
type Ingestor struct {
	minWindowSize int
}

func NewIngestor(minWindowSize int) *Ingestor {
	if minWindowSize <= 0 {
		minWindowSize = DefaultMinWindowSize
	}
	return &Ingestor{minWindowSize: minWindowSize}
}

// Ingest copies the input buffer; the caller's data is never mutated.
func (in *Ingestor) Ingest(buf *signals.SampleBuffer) (*signals.NormalizedBuffer, error) {
	if buf == nil || len(buf.Channels) == 0 {
		return nil, signals.NewInvalidSignal("empty buffer")
	}
	if buf.SampleRate <= 0 {
		return nil, signals.NewInvalidSignal("sample rate must be positive, got %v", buf.SampleRate)
	}

	length := len(buf.Channels[0])
	if length < in.minWindowSize {
		return nil, signals.NewInvalidSignal("window too short: %d samples, minimum %d", length, in.minWindowSize)
	}
	for i, ch := range buf.Channels {
		if len(ch) != length {
			return nil, signals.NewInvalidSignal("ragged channels: channel %d has %d samples, expected %d", i, len(ch), length)
		}
	}

	out := &signals.NormalizedBuffer{
		Channels:   make([][]float64, len(buf.Channels)),
		SampleRate: buf.SampleRate,
		RawMean:    buf.RawMean(),
	}

	for i, ch := range buf.Channels {
		normalized, err := normalizeChannel(ch, i)
		if err != nil {
			return nil, err
		}
		out.Channels[i] = normalized
	}

	return out, nil
}

func normalizeChannel(ch []float64, index int) ([]float64, error) {
	var sum float64
	for _, v := range ch {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, signals.NewInvalidSignal("channel %d contains non-finite samples", index)
		}
		sum += v
	}
	mean := sum / float64(len(ch))

	out := make([]float64, len(ch))
	var maxAbs float64
	for i, v := range ch {
		out[i] = v - mean
		if abs := math.Abs(out[i]); abs > maxAbs {
			maxAbs = abs
		}
	}

	// A constant channel has no scale to normalize against.
	if maxAbs == 0 {
		return nil, signals.NewInvalidSignal("channel %d is constant, scale undefined", index)
	}

	for i := range out {
		out[i] /= maxAbs
	}
	return out, nil
}
