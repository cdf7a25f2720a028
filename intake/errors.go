package intake

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("intake session not found")
	ErrExportInFlight  = errors.New("an export is already in progress for this session")
)

// InternalError marks a failure of the system itself rather than of operator
// input, such as the encoder rejecting a tracking identifier
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error during %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
