package metrics

// ============================================================================
// Metric Names
// ============================================================================

// Outbound HTTP metric names
const (
	MetricNameHTTPRequestsTotal   = "droptracker_http_requests_total"
	MetricNameHTTPRequestDuration = "droptracker_http_request_duration_seconds"
)

// Session and auth metric names
const (
	MetricNameConnectAttempts = "droptracker_connect_attempts_total"
	MetricNameSessionsActive  = "droptracker_sessions_active"
	MetricNameAuthOutcomes    = "droptracker_auth_outcomes_total"
)

// History metric names
const (
	MetricNameHistoryPagesFetched = "droptracker_history_pages_fetched_total"
	MetricNameScanOutcomes        = "droptracker_history_scan_outcomes_total"
)

// Pricing metric names
const (
	MetricNamePriceLookups        = "droptracker_price_lookups_total"
	MetricNameExchangeRateLookups = "droptracker_exchange_rate_lookups_total"
)

// Run metric names
const (
	MetricNameEventsPublished   = "droptracker_events_published_total"
	MetricNameAccountsProcessed = "droptracker_accounts_processed_total"
	MetricNameDropsFound        = "droptracker_drops_found_total"
)

// ============================================================================
// Metric Help Text
// ============================================================================

const (
	HelpTextHTTPRequestsTotal   = "Total number of outbound HTTP requests"
	HelpTextHTTPRequestDuration = "Outbound HTTP request latency in seconds"

	HelpTextConnectAttempts = "Platform connect attempts by outcome"
	HelpTextSessionsActive  = "Number of cached platform sessions"
	HelpTextAuthOutcomes    = "Authentication flows by flow kind and terminal state"

	HelpTextHistoryPagesFetched = "Total number of inventory history pages fetched"
	HelpTextScanOutcomes        = "History page scan outcomes"

	HelpTextPriceLookups        = "Price lookups by provider and result"
	HelpTextExchangeRateLookups = "Exchange rate lookups by provider and result"

	HelpTextEventsPublished   = "Total number of run events observed"
	HelpTextAccountsProcessed = "Accounts processed by result"
	HelpTextDropsFound        = "Drops found by availability"
)

// ============================================================================
// Metric Label Names
// ============================================================================

const (
	LabelHost     = "host"
	LabelStatus   = "status"
	LabelOutcome  = "outcome"
	LabelFlow     = "flow"
	LabelState    = "state"
	LabelProvider = "provider"
	LabelResult   = "result"
	LabelType     = "type"
)

// Common label values
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultMiss    = "miss"
	ResultCached  = "cached"
	ResultUnknown = "unknown"
)

// ============================================================================
// Histogram Buckets
// ============================================================================

// HTTPLatencyBuckets covers 10ms to 30s; the history endpoint is slow under load.
var HTTPLatencyBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// ============================================================================
// Log Messages
// ============================================================================

const (
	LogMsgMetricsRecorded     = "Metrics recorded for event"
	LogMsgEventPayloadInvalid = "Event payload could not be decoded"
	LogMsgTextfileWritten     = "Metrics textfile written"
)
