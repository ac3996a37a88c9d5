package platform

import (
	"errors"
	"fmt"
)

// Handshake and renewal failures reported by a Connection.
var (
	ErrInvalidPassword = errors.New("platform: invalid password")
	ErrUserCancelled   = errors.New("platform: user cancelled")
	ErrAccessDenied    = errors.New("platform: access denied")
	ErrNotConnected    = errors.New("platform: not connected")
)

// JobFailedError is a job-level failure of the capability itself.
type JobFailedError struct {
	Job   string
	Cause error
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("platform job %s failed: %v", e.Job, e.Cause)
}

func (e *JobFailedError) Unwrap() error {
	return e.Cause
}
