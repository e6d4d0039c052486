package signals

import "fmt"

// InvalidSignalError reports a malformed sample buffer. The pipeline state is
// unaffected; the caller may resubmit a corrected buffer.
type InvalidSignalError struct {
	Reason string
}

func (e *InvalidSignalError) Error() string {
	return fmt.Sprintf("invalid signal: %s", e.Reason)
}

// NewInvalidSignal builds an InvalidSignalError with a formatted reason.
func NewInvalidSignal(format string, args ...any) *InvalidSignalError {
	return &InvalidSignalError{Reason: fmt.Sprintf(format, args...)}
}
