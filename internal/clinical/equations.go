package clinical

import "fmt"

// Inputs carries the values an equation may draw from: summary statistics
// over the test data plus any caller-supplied context. Equations read only
// the fields they declare an interest in; missing context keys fall back to
// defaults instead of failing the run.
type Inputs struct {
	MeanSignal float64
	StdSignal  float64
	Context    map[string]float64
}

// ContextOr returns the named context value, or the fallback when the caller
// did not supply it.
func (in Inputs) ContextOr(key string, fallback float64) float64 {
	if v, ok := in.Context[key]; ok {
		return v
	}
	return fallback
}

// EquationFunc produces a raw diagnostic value for one equation. The engine
// squashes the raw value onto (0,1) before threshold comparison.
type EquationFunc func(in Inputs) (float64, error)

type equation struct {
	name string
	fn   EquationFunc
}

// Registry holds named equations in registration order.
type Registry struct {
	equations []equation
	byName    map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds or replaces an equation under the given name. First
// registration fixes the evaluation order.
func (r *Registry) Register(name string, fn EquationFunc) {
	if i, ok := r.byName[name]; ok {
		r.equations[i].fn = fn
		return
	}
	r.byName[name] = len(r.equations)
	r.equations = append(r.equations, equation{name: name, fn: fn})
}

func (r *Registry) Len() int {
	return len(r.equations)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.equations))
	for i, eq := range r.equations {
		names[i] = eq.name
	}
	return names
}

// DefaultRegistry returns the built-in equation battery.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("signal_quality", func(in Inputs) (float64, error) {
		// Signal-to-noise style ratio; +1 keeps a flat signal defined.
		return in.MeanSignal / (in.StdSignal + 1), nil
	})

	r.Register("cognitive_load", func(in Inputs) (float64, error) {
		if in.MeanSignal <= 0 {
			return 0, fmt.Errorf("cognitive_load requires positive mean signal, got %v", in.MeanSignal)
		}
		return 10 * (1 - in.StdSignal/(in.MeanSignal+in.StdSignal)), nil
	})

	r.Register("engagement_response", func(in Inputs) (float64, error) {
		engagement := in.ContextOr("engagement_level", (in.MeanSignal-10)/40)
		return 20 * (engagement - 0.5), nil
	})

	r.Register("retention_index", func(in Inputs) (float64, error) {
		retention := in.ContextOr("retention_correlation", 0.5)
		return 20 * (retention - 0.5), nil
	})

	r.Register("adaptation_gain", func(in Inputs) (float64, error) {
		speed := in.ContextOr("adaptation_speed", 0)
		if speed < 0 {
			return 0, fmt.Errorf("adaptation speed must be non-negative, got %v", speed)
		}
		return 10 * speed, nil
	})

	return r
}
