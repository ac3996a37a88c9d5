package history

import "time"

// Endpoint defaults
const (
	DefaultBaseURL         = "https://steamcommunity.com"
	DefaultLanguage        = "english"
	DefaultAppID           = 730
	DefaultRequestInterval = 2 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultPageCap         = 3

	loginCookieName = "steamLoginSecure"
	maxRetries      = 2
	initialBackoff  = 2 * time.Second
	maxBackoff      = 16 * time.Second
)

// Markup the scanner relies on
const (
	classRow         = "tradehistoryrow"
	classDate        = "tradehistory_date"
	classTimestamp   = "tradehistory_timestamp"
	classDescription = "tradehistory_event_description"
	classItem        = "history_item"
	classItemName    = "history_item_name"

	attrClassID    = "data-classid"
	attrInstanceID = "data-instanceid"
	attrAppID      = "data-appid"

	dateLayout = "2 Jan, 2006 3:04pm"
)

// Row descriptions that mark a rank-up drop, compared case-insensitively.
var dropPhrases = []string{
	"earned a new rank and got a drop",
	"got an item drop",
}

// Scan outcome labels
const (
	OutcomeFound      = "found"
	OutcomeNoResult   = "no_result"
	OutcomeMispaged   = "mispaged"
	OutcomeNoHistory  = "no_history"
	OutcomeMalformed  = "malformed"
	OutcomeTooLong    = "too_long"
	fetchResultOK     = "ok"
	fetchResultFailed = "error"
)

// Log messages
const (
	LogMsgFetchingPage       = "Fetching history page"
	LogMsgFetchRetry         = "History request failed, retrying"
	LogMsgRowTimestampFailed = "Could not parse history row timestamp, skipping"
	LogMsgPairingFailed      = "Second drop item could not be resolved, reporting single item"
	LogMsgMispagedResolved   = "Resolved drop split across pages"
	LogMsgHistoryTooLong     = "Gave up scanning history"
	LogMsgNoDropHistory      = "No drop in history"
	LogMsgDropFound          = "Found drop"
)
