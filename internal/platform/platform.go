// Package platform defines the boundary to the gaming platform's client capability:
// connection lifecycle, event subscription, logon and the credential handshakes.
package platform

import (
	"context"

	"github.com/osse101/DropTracker_Go/internal/event"
)

// Credentials are issued by a completed handshake.
type Credentials struct {
	SteamID      uint64
	AccountName  string
	AccessToken  string
	RefreshToken string
}

// RenewedTokens is the result of an access token renewal. RefreshToken is
// empty unless the platform rotated it.
type RenewedTokens struct {
	AccessToken  string
	RefreshToken string
}

// LogOnDetails identifies the account for a token logon.
type LogOnDetails struct {
	Username    string
	AccessToken string
}

// WalletDetails is the reply of the wallet RPC.
type WalletDetails struct {
	HasWallet    bool
	CurrencyCode string
}

// Handshake is an in-progress credential exchange.
type Handshake interface {
	// PollResult blocks until the handshake completes, fails or ctx ends.
	PollResult(ctx context.Context) (Credentials, error)
}

// QRHandshake is a handshake driven by scanning a rotating challenge URL.
type QRHandshake interface {
	Handshake
	ChallengeURL() string
	// OnChallengeRotated registers fn to be called with every new challenge URL.
	OnChallengeRotated(fn func(url string))
}

// Connection is one live link to the platform. Events are delivered
// sequentially on a single dispatch goroutine owned by the connection.
type Connection interface {
	// Connect starts connecting. The outcome arrives as a Connected or Disconnected event.
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	// SessionID is non-zero once logged on.
	SessionID() int32
	SteamID() uint64

	Subscribe(eventType event.Type, handler event.Handler) event.Unsubscribe

	// LogOn sends the logon request. The outcome arrives as a LoggedOn event.
	LogOn(ctx context.Context, details LogOnDetails) error
	BeginAuthViaCredentials(ctx context.Context, username, password string) (Handshake, error)
	BeginAuthViaQR(ctx context.Context) (QRHandshake, error)
	RenewAccessToken(ctx context.Context, steamID uint64, refreshToken string) (RenewedTokens, error)
	WalletDetails(ctx context.Context) (WalletDetails, error)

	Close() error
}

// Dialer creates connections. label names the connection in logs.
type Dialer interface {
	Dial(label string) (Connection, error)
}
