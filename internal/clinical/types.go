// Package clinical validates named scoring equations against acceptance
// thresholds and provides trial-sizing utilities.
package clinical

import (
	"errors"
	"time"
)

// ErrInvalidInput reports empty validation test data. No partial result is
// returned.
var ErrInvalidInput = errors.New("validation test data is empty")

// EquationResult records one equation's outcome. A failed evaluation carries
// score 0 and the failure message in Diagnostic; it never aborts the batch.
type EquationResult struct {
	Name       string
	Score      float64
	Passed     bool
	Raw        float64
	Diagnostic string
}

// ValidationSummary is the full outcome of one validation run. Results keep
// the registry's registration order.
type ValidationSummary struct {
	Threshold float64
	Results   []EquationResult
	PassRate  float64
	PassedAll bool
	Timestamp time.Time
}

// TrialConfig describes one trial design. It is immutable after creation.
type TrialConfig struct {
	PrimaryEndpoint    string
	SecondaryEndpoints []string
	EffectSize         float64
	Power              float64
	Alpha              float64
	PerGroup           int
	TotalParticipants  int
}
