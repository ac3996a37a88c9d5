package session

import "time"

// Connect budget defaults
const (
	DefaultMaxAttempts    = 3
	DefaultConnectTimeout = 30 * time.Second
)

// Connect outcome labels
const (
	OutcomeConnected    = "connected"
	OutcomeDisconnected = "disconnected"
	OutcomeTimeout      = "timeout"
	OutcomeError        = "error"
)

// Log messages
const (
	LogMsgReusingSession    = "Reusing cached session"
	LogMsgEvictingDead      = "Cached session is no longer connected, evicting"
	LogMsgConnectAttempt    = "Connecting to platform"
	LogMsgConnected         = "Connected to platform"
	LogMsgDisconnected      = "Disconnected while connecting, retrying"
	LogMsgConnectTimeout    = "Timed out waiting for connection, retrying"
	LogMsgConnectCallFailed = "Connect call failed, retrying"
	LogMsgConnectExhausted  = "Connect retry budget exhausted"
	LogMsgSessionRegistered = "Session registered"
	LogMsgSessionReleased   = "Session released"
	LogMsgSessionClosed     = "Disconnected from platform"
)
