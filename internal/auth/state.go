package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/metrics"
)

// State is a step of an authentication flow.
type State int

const (
	StateIdle State = iota
	StateAwaitingHandshake
	StateLoggingOn
	StateLoggedOn
	StateRefreshExpired
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingHandshake:
		return "awaiting_handshake"
	case StateLoggingOn:
		return "logging_on"
	case StateLoggedOn:
		return "logged_on"
	case StateRefreshExpired:
		return "refresh_expired"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s >= StateLoggedOn
}

// flow tracks one authentication attempt through the state machine.
type flow struct {
	kind  string
	state State
	log   *slog.Logger
}

func newFlow(ctx context.Context, kind, label string) *flow {
	return &flow{
		kind:  kind,
		state: StateIdle,
		log:   logger.FromContext(ctx).With("flow", kind, "label", label),
	}
}

func (f *flow) to(next State) {
	if f.state.Terminal() {
		return
	}
	f.log.Debug(LogMsgStateTransition, "from", f.state.String(), "to", next.String())
	f.state = next
}

// finish moves the flow to the terminal state implied by err and returns err unchanged.
func (f *flow) finish(err error) error {
	f.to(terminalState(err))
	metrics.AuthOutcomes.WithLabelValues(f.kind, f.state.String()).Inc()
	return err
}

func terminalState(err error) State {
	switch {
	case err == nil:
		return StateLoggedOn
	case errors.Is(err, domain.ErrRefreshExpired):
		return StateRefreshExpired
	case errors.Is(err, domain.ErrUserCancelled), errors.Is(err, context.Canceled):
		return StateCancelled
	default:
		return StateFailed
	}
}
