package bridge

import "time"

// Default configuration values
const (
	// DefaultURL is the default WebSocket URL of the local bridge process
	DefaultURL = "ws://127.0.0.1:8765/"

	// DefaultPollInterval is how often a pending handshake is polled
	DefaultPollInterval = 2 * time.Second

	// DefaultRequestTimeout bounds a request that has no deadline of its own
	DefaultRequestTimeout = 30 * time.Second

	// HelloTimeout is how long to wait for the greeting after dialling
	HelloTimeout = 2 * time.Second

	// WriteTimeout is the timeout for writing messages
	WriteTimeout = 10 * time.Second

	// ReadBufferSize is the WebSocket read buffer size
	ReadBufferSize = 4096

	// WriteBufferSize is the WebSocket write buffer size
	WriteBufferSize = 4096
)

// Request types understood by the bridge
const (
	RequestAuthenticate            = "Authenticate"
	RequestConnect                 = "Connect"
	RequestDisconnect              = "Disconnect"
	RequestLogOn                   = "LogOn"
	RequestBeginAuthViaCredentials = "BeginAuthViaCredentials"
	RequestBeginAuthViaQR          = "BeginAuthViaQR"
	RequestPollAuth                = "PollAuth"
	RequestRenewAccessToken        = "RenewAccessToken"
	RequestGetWalletDetails        = "GetWalletDetails"
)

// Events pushed by the bridge
const (
	EventHello            = "hello"
	EventConnected        = "connected"
	EventDisconnected     = "disconnected"
	EventLoggedOn         = "loggedOn"
	EventAccountInfo      = "accountInfo"
	EventChallengeRotated = "challengeRotated"
)

// Response status values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Error codes carried by failed responses
const (
	CodeInvalidPassword = "InvalidPassword"
	CodeUserCancelled   = "UserCancelled"
	CodeAccessDenied    = "AccessDenied"
	CodeNotConnected    = "NotConnected"
)

// Log messages
const (
	LogMsgConnecting       = "Connecting to platform bridge"
	LogMsgConnected        = "Connected to platform bridge"
	LogMsgAuthRequired     = "Platform bridge requires authentication"
	LogMsgAuthSuccess      = "Platform bridge authentication successful"
	LogMsgReadError        = "Error reading from platform bridge"
	LogMsgClosed           = "Platform bridge connection closed"
	LogMsgUnknownEvent     = "Ignoring unknown bridge event"
	LogMsgBadMessage       = "Ignoring unparseable bridge message"
	LogMsgHandlerFailed    = "Platform event handler failed"
	LogMsgDisconnectFailed = "Disconnect request failed"
	LogMsgLinkLost         = "Platform bridge link lost"
	LogMsgPollFailed       = "Handshake poll failed"
)
