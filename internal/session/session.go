// Package session owns live platform connections and the per-account session cache.
package session

import (
	"context"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/event"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/platform"
)

// Session is one platform connection plus the per-run state resolved over it.
// The bound account, wallet and parental settings are each set at most once.
type Session struct {
	conn  platform.Connection
	label string

	account  domain.WriteOnce[*domain.Account]
	wallet   domain.WriteOnce[domain.WalletInfo]
	parental domain.WriteOnce[event.ParentalSettings]

	unsubscribe event.Unsubscribe
}

func newSession(conn platform.Connection, label string) *Session {
	s := &Session{conn: conn, label: label}
	s.unsubscribe = conn.Subscribe(event.Disconnected, func(ctx context.Context, e event.Event) error {
		logger.FromContext(ctx).Info(LogMsgSessionClosed, "label", s.label)
		return nil
	})
	return s
}

// Conn returns the underlying connection.
func (s *Session) Conn() platform.Connection { return s.conn }

// Label is the name the session was created for.
func (s *Session) Label() string { return s.label }

// IsAuthenticated reports whether the connection holds a logged-on session.
func (s *Session) IsAuthenticated() bool { return s.conn.SessionID() != 0 }

// IsAlive reports whether the connection is still up.
func (s *Session) IsAlive() bool { return s.conn.IsConnected() }

// SteamID is the account id of the bound account, or of the connection when none is bound.
func (s *Session) SteamID() uint64 {
	if acc, ok := s.account.Get(); ok && acc.SteamID != 0 {
		return acc.SteamID
	}
	return s.conn.SteamID()
}

// Account returns the bound account.
func (s *Session) Account() (*domain.Account, bool) { return s.account.Get() }

// BindAccount binds acc to the session. It reports false if an account was already bound.
func (s *Session) BindAccount(acc *domain.Account) bool { return s.account.Set(acc) }

// Wallet returns the cached wallet.
func (s *Session) Wallet() (domain.WalletInfo, bool) { return s.wallet.Get() }

// SetWallet caches the resolved wallet.
func (s *Session) SetWallet(w domain.WalletInfo) bool { return s.wallet.Set(w) }

// Parental returns the parental-control settings received at logon.
func (s *Session) Parental() (event.ParentalSettings, bool) { return s.parental.Get() }

// SetParental records the parental-control settings.
func (s *Session) SetParental(p event.ParentalSettings) bool { return s.parental.Set(p) }

// Close disconnects and releases the connection.
func (s *Session) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.conn.Disconnect()
	return s.conn.Close()
}
