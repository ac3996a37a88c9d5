package auth

import "time"

// DefaultLogOnTimeout bounds the wait for a logon outcome.
const DefaultLogOnTimeout = 60 * time.Second

// Flow kinds, used as a metric label.
const (
	FlowToken    = "token"
	FlowPassword = "password"
	FlowQR       = "qr"
)

// Operation names carried by AuthError.
const (
	OpRenew     = "renew access token"
	OpLogOn     = "logon"
	OpHandshake = "handshake"
	OpBind      = "bind account"
)

// Log messages
const (
	LogMsgAlreadyAuthenticated = "Session already authenticated"
	LogMsgRefreshExpired       = "Refresh token expired, login required"
	LogMsgRenewingAccessToken  = "Access token expired, renewing"
	LogMsgAccessTokenRenewed   = "Access token renewed"
	LogMsgSaveAccountFailed    = "Failed to persist account"
	LogMsgLogOnSent            = "Logon sent, awaiting outcome"
	LogMsgLoggedOn             = "Logged on"
	LogMsgLogOnFailed          = "Logon failed"
	LogMsgStateTransition      = "Auth state transition"
	LogMsgChallengeRotated     = "QR challenge rotated"
	LogMsgPersonaUpdated       = "Display name updated"
	LogMsgLateEventIgnored     = "Logon event after completion ignored"
	LogMsgAccountAlreadyBound  = "Session already bound to another account"
)
