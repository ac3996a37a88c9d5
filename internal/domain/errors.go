package domain

import (
	"errors"
	"fmt"
)

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Authentication errors
	ErrMsgRefreshExpired   = "refresh token expired"
	ErrMsgInvalidPassword  = "invalid password"
	ErrMsgUserCancelled    = "login cancelled by user"
	ErrMsgNotAuthenticated = "session is not authenticated"

	// History errors
	ErrMsgMalformedPage = "malformed history page"

	// Connection errors
	ErrMsgConnectExhausted = "connect retries exhausted"
)

// Common domain errors
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	// ErrRefreshExpired means the stored refresh credential can no longer be used;
	// the caller has to run an interactive login again.
	ErrRefreshExpired = errors.New(ErrMsgRefreshExpired)

	ErrInvalidPassword  = errors.New(ErrMsgInvalidPassword)
	ErrUserCancelled    = errors.New(ErrMsgUserCancelled)
	ErrNotAuthenticated = errors.New(ErrMsgNotAuthenticated)
	ErrMalformedPage    = errors.New(ErrMsgMalformedPage)
	ErrConnectExhausted = errors.New(ErrMsgConnectExhausted)
)

// AuthError is a non-recoverable authentication failure carrying the platform
// result code and/or the underlying cause.
type AuthError struct {
	Op     string
	Result int
	Cause  error
}

func (e *AuthError) Error() string {
	switch {
	case e.Cause != nil && e.Result != 0:
		return fmt.Sprintf("authentication failed during %s (result %d): %v", e.Op, e.Result, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("authentication failed during %s: %v", e.Op, e.Cause)
	default:
		return fmt.Sprintf("authentication failed during %s (result %d)", e.Op, e.Result)
	}
}

func (e *AuthError) Unwrap() error { return e.Cause }

// HandshakeFailedError is raised when the platform's login job itself failed.
// It is not retried.
type HandshakeFailedError struct {
	Cause error
}

func (e *HandshakeFailedError) Error() string {
	return fmt.Sprintf("login handshake failed: %v", e.Cause)
}

func (e *HandshakeFailedError) Unwrap() error { return e.Cause }
