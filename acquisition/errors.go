package acquisition

import "github.com/pkg/errors"

var (
	// ErrPositioningUnavailable is the high accuracy watch failing. It is recovered by falling back
	// to low accuracy and never reaches the caller.
	ErrPositioningUnavailable = errors.New("high accuracy positioning unavailable")
	// ErrPositioningTimeout is a deadline elapsing before a fix arrived. For the high accuracy watch
	// it is only surfaced through OnTimeoutHighAccuracy.
	ErrPositioningTimeout = errors.New("positioning timed out")
	// ErrPositioningFailed is the low accuracy request failing; it is terminal.
	ErrPositioningFailed = errors.New("positioning failed")
)

// PositioningError is the terminal error of an acquisition. It matches both its Reason and the
// Cause reported by the positioning source with errors.Is.
type PositioningError struct {
	Reason error
	Cause  error
}

func (e *PositioningError) Error() string {
	if e.Cause == nil {
		return e.Reason.Error()
	}
	return e.Reason.Error() + ": " + e.Cause.Error()
}

// Unwrap returns the reason and the cause.
func (e *PositioningError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}
