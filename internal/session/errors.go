package session

import (
	"fmt"

	"github.com/osse101/DropTracker_Go/internal/domain"
)

// ConnectError is returned when the connect retry budget is exhausted.
type ConnectError struct {
	Label    string
	Attempts int
	Last     error
}

func (e *ConnectError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("%s: %s after %d attempts: %v", domain.ErrMsgConnectExhausted, e.Label, e.Attempts, e.Last)
	}
	return fmt.Sprintf("%s: %s after %d attempts", domain.ErrMsgConnectExhausted, e.Label, e.Attempts)
}

// Is lets errors.Is match domain.ErrConnectExhausted.
func (e *ConnectError) Is(target error) bool {
	return target == domain.ErrConnectExhausted
}

func (e *ConnectError) Unwrap() error {
	return e.Last
}
