package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/osse101/DropTracker_Go/internal/event"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/metrics"
	"github.com/osse101/DropTracker_Go/internal/platform"
)

// Config bounds the connect loop.
type Config struct {
	MaxAttempts    int
	ConnectTimeout time.Duration
}

// Manager caches at most one live session per platform account id.
type Manager struct {
	dialer   platform.Dialer
	cfg      Config
	sessions sync.Map // uint64 -> *Session
}

// NewManager creates a session manager. Zero config values fall back to the defaults.
func NewManager(dialer platform.Dialer, cfg Config) *Manager {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	return &Manager{dialer: dialer, cfg: cfg}
}

// GetOrCreate returns the cached live session for accountID, or dials and connects a new one.
// accountID 0 always creates a new session.
func (m *Manager) GetOrCreate(ctx context.Context, accountID uint64, label string) (*Session, error) {
	log := logger.FromContext(ctx)

	if accountID != 0 {
		if cached, ok := m.sessions.Load(accountID); ok {
			sess := cached.(*Session)
			if sess.IsAlive() {
				log.Debug(LogMsgReusingSession, "label", label, "steam_id", accountID)
				return sess, nil
			}
			log.Info(LogMsgEvictingDead, "label", label, "steam_id", accountID)
			if m.sessions.CompareAndDelete(accountID, sess) {
				metrics.SessionsActive.Dec()
			}
			_ = sess.Close()
		}
	}

	conn, err := m.dialer.Dial(label)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", label, err)
	}
	if err := m.connect(ctx, conn, label); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return newSession(conn, label), nil
}

// connect runs the bounded connect loop. A disconnect, a failed Connect call or a
// per-attempt timeout each consume one attempt.
func (m *Manager) connect(ctx context.Context, conn platform.Connection, label string) error {
	log := logger.FromContext(ctx)

	signals := make(chan event.Type, 4)
	notify := func(_ context.Context, e event.Event) error {
		select {
		case signals <- e.Type:
		default:
		}
		return nil
	}
	unsubConnected := conn.Subscribe(event.Connected, notify)
	defer unsubConnected()
	unsubDisconnected := conn.Subscribe(event.Disconnected, notify)
	defer unsubDisconnected()

	var last error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		drain(signals)
		log.Info(LogMsgConnectAttempt, "label", label, "attempt", attempt, "max_attempts", m.cfg.MaxAttempts)

		if err := conn.Connect(ctx); err != nil {
			metrics.ConnectAttempts.WithLabelValues(OutcomeError).Inc()
			log.Warn(LogMsgConnectCallFailed, "label", label, "attempt", attempt, "error", err)
			last = err
			continue
		}

		outcome, err := m.await(ctx, signals)
		if err != nil {
			return err
		}
		metrics.ConnectAttempts.WithLabelValues(outcome).Inc()

		switch outcome {
		case OutcomeConnected:
			log.Info(LogMsgConnected, "label", label, "attempt", attempt)
			return nil
		case OutcomeDisconnected:
			log.Warn(LogMsgDisconnected, "label", label, "attempt", attempt)
			last = nil
		case OutcomeTimeout:
			log.Warn(LogMsgConnectTimeout, "label", label, "attempt", attempt, "timeout", m.cfg.ConnectTimeout)
			last = context.DeadlineExceeded
		}
	}

	log.Error(LogMsgConnectExhausted, "label", label, "attempts", m.cfg.MaxAttempts)
	return &ConnectError{Label: label, Attempts: m.cfg.MaxAttempts, Last: last}
}

// await blocks until one connect signal arrives or the attempt times out.
// It only returns an error when the caller's context ends.
func (m *Manager) await(ctx context.Context, signals <-chan event.Type) (string, error) {
	timer := time.NewTimer(m.cfg.ConnectTimeout)
	defer timer.Stop()

	select {
	case sig := <-signals:
		if sig == event.Connected {
			return OutcomeConnected, nil
		}
		return OutcomeDisconnected, nil
	case <-timer.C:
		return OutcomeTimeout, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func drain(ch <-chan event.Type) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// Register caches sess under its now-known account id. Binding a second live
// session to an id that already has one is a programming error and panics.
func (m *Manager) Register(sess *Session) {
	id := sess.SteamID()
	if id == 0 {
		panic(fmt.Sprintf("session: cannot register %q without an account id", sess.Label()))
	}

	existing, loaded := m.sessions.LoadOrStore(id, sess)
	if !loaded {
		metrics.SessionsActive.Inc()
		logger.FromContext(context.Background()).Debug(LogMsgSessionRegistered, "label", sess.Label(), "steam_id", id)
		return
	}
	if existing.(*Session) != sess {
		panic(fmt.Sprintf("session: account %d already has a live session (%q)", id, existing.(*Session).Label()))
	}
}

// Lookup returns the cached session for accountID.
func (m *Manager) Lookup(accountID uint64) (*Session, bool) {
	v, ok := m.sessions.Load(accountID)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Release evicts sess from the cache and closes it.
func (m *Manager) Release(sess *Session) error {
	if id := sess.SteamID(); id != 0 && m.sessions.CompareAndDelete(id, sess) {
		metrics.SessionsActive.Dec()
	}
	logger.FromContext(context.Background()).Debug(LogMsgSessionReleased, "label", sess.Label())
	return sess.Close()
}

// CloseAll releases every cached session.
func (m *Manager) CloseAll() error {
	var errs []error
	m.sessions.Range(func(key, value any) bool {
		if err := m.Release(value.(*Session)); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}
