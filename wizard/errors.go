package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationFailed is matched by every *ValidationError
	ErrValidationFailed = errors.New("validation failed")
	// ErrSubmissionFailed is matched by every *SubmissionError
	ErrSubmissionFailed = errors.New("submission failed")

	ErrAtFirstStep        = errors.New("already at the first step")
	ErrAtLastStep         = errors.New("already at the last step")
	ErrInvalidStep        = errors.New("step out of range")
	ErrInvalidJumpTarget  = errors.New("invalid jump target")
	ErrUnknownField       = errors.New("unknown field")
	ErrReadOnlyField      = errors.New("tracking identifier is read-only")
	ErrNotAtSummary       = errors.New("finalize is only available on the tracking summary step")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrAlreadySubmitted   = errors.New("shipment already submitted")
	ErrRecordSubmitted    = errors.New("record is immutable after submission")

	ErrInvalidTrackingIdentifier = errors.New("invalid tracking identifier")
	ErrInvalidSnapshot           = errors.New("invalid wizard snapshot")
)

// ValidationError reports the first required field missing on a step
type ValidationError struct {
	Step   Step
	Field  Field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Step, e.Reason)
}

// Is lets errors.Is(err, ErrValidationFailed) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// SubmissionError wraps the persistence collaborator's failure
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmissionFailed
}
