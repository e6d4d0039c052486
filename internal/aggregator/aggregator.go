// Package aggregator folds per-window results into running session KPIs.
package aggregator

import (
	"sync"
	"time"

	"github.com/strrl/neuropipe/internal/signals"
	"github.com/strrl/neuropipe/internal/stats"
)

// Raw engagement anchoring: a nominal 10..50 raw-unit mean maps onto [0,1].
const (
	engagementFloor = 10.0
	engagementSpan  = 40.0
)

// Aggregator owns one session's histories. Every KPI is a pure function of
// those histories; the histories themselves are the only mutable state.
// Updates must arrive in sample-time order.
type Aggregator struct {
	mu sync.Mutex

	engagement  []float64
	indicator   []float64
	calibration []float64

	stateCounts map[signals.NeuralState]int
	windows     int
	now         func() time.Time
}

func New() *Aggregator {
	return &Aggregator{
		stateCounts: make(map[signals.NeuralState]int),
		now:         time.Now,
	}
}

// Update appends the window to the session histories and returns a KPI
// snapshot. rawMean is the mean of the window's pre-normalization samples.
func (a *Aggregator) Update(rawMean float64, fv signals.FeatureVector, state signals.CognitiveState) signals.SessionKPIs {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.engagement = append(a.engagement, stats.Clamp01((rawMean-engagementFloor)/engagementSpan))
	a.indicator = append(a.indicator, fv.Attention)
	a.calibration = append(a.calibration, 1-fv.LearningEfficiency)
	a.stateCounts[state.State]++
	a.windows++

	return a.snapshotLocked()
}

// Snapshot returns the current KPIs without mutating any history.
func (a *Aggregator) Snapshot() signals.SessionKPIs {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() signals.SessionKPIs {
	return signals.SessionKPIs{
		EngagementLevel:      lastOrZero(a.engagement),
		LearningEfficiency:   learningEfficiency(a.engagement),
		RetentionCorrelation: retentionCorrelation(a.engagement, a.indicator),
		AdaptationSpeed:      adaptationSpeed(a.calibration),
		WindowCount:          a.windows,
		UpdatedAt:            a.now(),
	}
}

// Histories returns consistent copies of the tracked series for read-only
// consumers such as the validation engine.
func (a *Aggregator) Histories() (engagement, indicator, calibration []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copySlice(a.engagement), copySlice(a.indicator), copySlice(a.calibration)
}

// StateCounts returns how many windows landed in each neural state.
func (a *Aggregator) StateCounts() map[signals.NeuralState]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[signals.NeuralState]int, len(a.stateCounts))
	for k, v := range a.stateCounts {
		out[k] = v
	}
	return out
}

// learningEfficiency is an endpoint-delta proxy over the engagement history,
// not an instantaneous value.
func learningEfficiency(engagement []float64) float64 {
	if len(engagement) == 0 {
		return 0
	}
	return stats.Clamp01(0.5 + (engagement[len(engagement)-1] - engagement[0]))
}

// retentionCorrelation maps Pearson r between the two tracked histories onto
// [0,1]. An undefined correlation (empty, mismatched, or zero-variance
// series) yields exactly 0.
func retentionCorrelation(a, b []float64) float64 {
	r, ok := stats.PearsonR(a, b)
	if !ok {
		return 0
	}
	return 0.5 + 0.5*stats.Clamp(r, -1, 1)
}

// adaptationSpeed measures the fractional calibration-error reduction across
// the session. A non-positive initial error yields exactly 0.
func adaptationSpeed(calibration []float64) float64 {
	if len(calibration) == 0 || calibration[0] <= 0 {
		return 0
	}
	first := calibration[0]
	last := calibration[len(calibration)-1]
	return stats.Clamp01((first - last) / first)
}

func lastOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func copySlice(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	return out
}
