package pipeline

// DefaultMaxParallelAccounts bounds concurrent account pipelines.
const DefaultMaxParallelAccounts = 4

// Log messages
const (
	LogMsgAccountStarting  = "Account pipeline starting"
	LogMsgAccountFinished  = "Account pipeline finished"
	LogMsgAccountFailed    = "Account pipeline failed"
	LogMsgRefreshExpired   = "Refresh token expired, removing account; log in again"
	LogMsgRemoveFailed     = "Failed to remove expired account"
	LogMsgCurrencyFallback = "Wallet currency unavailable, pricing in default currency"
	LogMsgReleaseFailed    = "Failed to release session"
	LogMsgPublishFailed    = "Failed to publish run event"
	LogMsgRunStarting      = "Run starting"
	LogMsgRunCompleted     = "Run completed"
)

// Report markers
const (
	availableYes     = "yes"
	availableNo      = "no"
	availableUnknown = "unknown"
	unconvertedMark  = "(!)"
)
