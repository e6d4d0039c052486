package clinical

import (
	"fmt"
	"math"
	"time"

	"github.com/strrl/neuropipe/internal/stats"
)

const (
	DefaultThreshold = 0.95
	DefaultAlpha     = 0.05

	// Minimum total participants enforced on any trial design.
	participantFloor = 20
)

type EngineConfig struct {
	Threshold float64
	Alpha     float64
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Threshold: DefaultThreshold,
		Alpha:     DefaultAlpha,
	}
}

// Engine runs a registry of named equations over test data and reports
// pass/fail against an acceptance threshold.
type Engine struct {
	config   EngineConfig
	registry *Registry
	now      func() time.Time
}

func NewEngine(cfg EngineConfig, registry *Registry) *Engine {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = DefaultAlpha
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Engine{
		config:   cfg,
		registry: registry,
		now:      time.Now,
	}
}

// ValidateAllEquations evaluates every registered equation against the test
// data merged with caller context. A single faulty equation is recorded
// inline and never blocks the rest of the batch. Empty test data fails with
// ErrInvalidInput.
func (e *Engine) ValidateAllEquations(testData []float64, threshold float64, context map[string]float64) (*ValidationSummary, error) {
	if len(testData) == 0 {
		return nil, ErrInvalidInput
	}
	if threshold <= 0 {
		threshold = e.config.Threshold
	}

	in := Inputs{
		MeanSignal: stats.Mean(testData),
		StdSignal:  stats.StdDev(testData),
		Context:    context,
	}

	summary := &ValidationSummary{
		Threshold: threshold,
		Results:   make([]EquationResult, 0, e.registry.Len()),
		Timestamp: e.now(),
	}

	passed := 0
	for _, eq := range e.registry.equations {
		res := evaluate(eq, in, threshold)
		if res.Passed {
			passed++
		}
		summary.Results = append(summary.Results, res)
	}

	if len(summary.Results) > 0 {
		summary.PassRate = float64(passed) / float64(len(summary.Results))
	}
	summary.PassedAll = passed == len(summary.Results) && len(summary.Results) > 0

	return summary, nil
}

func evaluate(eq equation, in Inputs, threshold float64) (res EquationResult) {
	res.Name = eq.name

	defer func() {
		if r := recover(); r != nil {
			res = EquationResult{
				Name:       eq.name,
				Diagnostic: fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	raw, err := eq.fn(in)
	if err != nil {
		res.Diagnostic = err.Error()
		return res
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		res.Diagnostic = fmt.Sprintf("non-finite raw value %v", raw)
		return res
	}

	res.Raw = raw
	res.Score = squash(raw)
	res.Passed = res.Score >= threshold
	return res
}

// squash maps a raw value onto (0,1) with a bounded linear ramp, clamped to
// [0.001, 0.999] beyond raw magnitudes of 10. This is deliberately not a true
// logistic curve: the clinical thresholds were calibrated against the linear
// form, so swapping in a real sigmoid would shift every pass/fail boundary.
func squash(raw float64) float64 {
	return stats.Clamp(0.5+raw/20, 0.001, 0.999)
}

// DesignTrial estimates a per-group sample size with the normal-approximation
// heuristic n ~ (16/d^2)*(power/0.8) and enforces a 20-participant floor.
// This is a planning aid only, not a substitute for a real power analysis.
func (e *Engine) DesignTrial(primary string, secondaries []string, effectSize, power, alpha float64) (TrialConfig, error) {
	if primary == "" {
		return TrialConfig{}, fmt.Errorf("primary endpoint is required")
	}
	if effectSize <= 0 {
		return TrialConfig{}, fmt.Errorf("effect size must be positive, got %v", effectSize)
	}
	if power <= 0 || power >= 1 {
		return TrialConfig{}, fmt.Errorf("power must be in (0,1), got %v", power)
	}
	if alpha <= 0 {
		alpha = e.config.Alpha
	}

	perGroup := int(math.Round(16 / (effectSize * effectSize) * (power / 0.8)))
	total := 2 * perGroup
	if total < participantFloor {
		perGroup = participantFloor / 2
		total = participantFloor
	}

	cfg := TrialConfig{
		PrimaryEndpoint:    primary,
		SecondaryEndpoints: append([]string(nil), secondaries...),
		EffectSize:         effectSize,
		Power:              power,
		Alpha:              alpha,
		PerGroup:           perGroup,
		TotalParticipants:  total,
	}
	return cfg, nil
}
