package pipeline

import (
	"math"

	"github.com/strrl/neuropipe/internal/signals"
	"github.com/strrl/neuropipe/internal/stats"
)

// Band decomposition uses a cascade of moving-average widths as a cheap FIR
// filter bank: each band power is the mean absolute residual between two
// adjacent smoothing levels, ordered fast (gamma) to slow (delta).
var bandWidths = [4]int{4, 8, 16, 32}

// Extractor converts a normalized buffer into a feature vector. Extraction is
// deterministic: identical input produces an identical vector. The previous
// window's value stands in for any field that would otherwise come out
// non-finite.
type Extractor struct {
	prev signals.FeatureVector
}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(buf *signals.NormalizedBuffer) signals.FeatureVector {
	composite := compositeSignal(buf)
	smoothed := stats.MovingAverage(composite, 2)
	windowed := hannWindow(smoothed)

	bands := bandPowers(windowed)
	variance := stats.Variance(composite)

	fv := signals.FeatureVector{
		Delta:     bands[0],
		Theta:     bands[1],
		Alpha:     bands[2],
		Beta:      bands[3],
		Gamma:     bands[4],
		Coherence: concentration(bands),
	}
	fv.Attention = stats.Clamp01(0.5*fv.Beta + 0.3*fv.Gamma + 0.2*(1-variance))
	fv.LearningEfficiency = stats.Clamp01(0.4*fv.Theta + 0.3*fv.Alpha + 0.3*(1-variance))

	fv = e.sanitize(fv)
	e.prev = fv
	return fv
}

func (e *Extractor) sanitize(fv signals.FeatureVector) signals.FeatureVector {
	fv.Delta = stats.Clamp01(stats.Sanitize(fv.Delta, e.prev.Delta))
	fv.Theta = stats.Clamp01(stats.Sanitize(fv.Theta, e.prev.Theta))
	fv.Alpha = stats.Clamp01(stats.Sanitize(fv.Alpha, e.prev.Alpha))
	fv.Beta = stats.Clamp01(stats.Sanitize(fv.Beta, e.prev.Beta))
	fv.Gamma = stats.Clamp01(stats.Sanitize(fv.Gamma, e.prev.Gamma))
	fv.Coherence = stats.Clamp01(stats.Sanitize(fv.Coherence, e.prev.Coherence))
	fv.Attention = stats.Clamp01(stats.Sanitize(fv.Attention, e.prev.Attention))
	fv.LearningEfficiency = stats.Clamp01(stats.Sanitize(fv.LearningEfficiency, e.prev.LearningEfficiency))
	return fv
}

func compositeSignal(buf *signals.NormalizedBuffer) []float64 {
	n := buf.SampleCount()
	out := make([]float64, n)
	if len(buf.Channels) == 0 {
		return out
	}
	for _, ch := range buf.Channels {
		for i, v := range ch {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(buf.Channels))
	}
	return out
}

func hannWindow(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 1 {
		out[0] = values[0]
		return out
	}
	for i, v := range values {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		out[i] = v * w
	}
	return out
}

// bandPowers returns normalized band powers ordered delta..gamma. The powers
// sum to 1; a flat signal falls back to a uniform spread.
func bandPowers(windowed []float64) [5]float64 {
	levels := make([][]float64, len(bandWidths)+1)
	levels[0] = windowed
	for i, w := range bandWidths {
		levels[i+1] = stats.MovingAverage(windowed, w)
	}

	// Residuals between adjacent smoothing levels, fast to slow.
	raw := [5]float64{}
	raw[4] = meanAbsDiff(levels[0], levels[1])
	raw[3] = meanAbsDiff(levels[1], levels[2])
	raw[2] = meanAbsDiff(levels[2], levels[3])
	raw[1] = meanAbsDiff(levels[3], levels[4])
	raw[0] = meanAbs(levels[4])

	var sum float64
	for _, v := range raw {
		sum += v
	}
	if sum == 0 {
		return [5]float64{0.2, 0.2, 0.2, 0.2, 0.2}
	}
	for i := range raw {
		raw[i] /= sum
	}
	return raw
}

// concentration is the sum of squared normalized band weights: 1 when all
// energy sits in one band, 1/5 when spread uniformly.
func concentration(bands [5]float64) float64 {
	var sum float64
	for _, v := range bands {
		sum += v * v
	}
	return sum
}

func meanAbsDiff(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum / float64(len(a))
}

func meanAbs(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += math.Abs(v)
	}
	return sum / float64(len(values))
}
