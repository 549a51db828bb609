package permission

import (
	"errors"
	"fmt"
)

// RejectedError reports that a permission request was denied. It is an
// expected outcome, not an exceptional one: dispatchers convert it
// into a failed step unless the caller opts into hard-stop semantics.
type RejectedError struct {
	SessionID    string
	PermissionID string
	CallID       string
	Metadata     map[string]any
	Reason       string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("permission denied (%s): %s", e.PermissionID, e.Reason)
	}
	return fmt.Sprintf("permission denied (%s)", e.PermissionID)
}

// IsRejected reports whether err is (or wraps) a RejectedError.
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

// AsRejected returns the wrapped RejectedError, if any.
func AsRejected(err error) (*RejectedError, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}
