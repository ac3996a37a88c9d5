package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outbound HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelHost, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelHost},
	)
)

// Session Metrics
var (
	ConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameConnectAttempts,
			Help: HelpTextConnectAttempts,
		},
		[]string{LabelOutcome},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameSessionsActive,
			Help: HelpTextSessionsActive,
		},
	)

	AuthOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameAuthOutcomes,
			Help: HelpTextAuthOutcomes,
		},
		[]string{LabelFlow, LabelState},
	)
)

// History Metrics
var (
	HistoryPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHistoryPagesFetched,
			Help: HelpTextHistoryPagesFetched,
		},
		[]string{LabelResult},
	)

	ScanOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameScanOutcomes,
			Help: HelpTextScanOutcomes,
		},
		[]string{LabelOutcome},
	)
)

// Pricing Metrics
var (
	PriceLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePriceLookups,
			Help: HelpTextPriceLookups,
		},
		[]string{LabelProvider, LabelResult},
	)

	ExchangeRateLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameExchangeRateLookups,
			Help: HelpTextExchangeRateLookups,
		},
		[]string{LabelProvider, LabelResult},
	)
)

// Run Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	AccountsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameAccountsProcessed,
			Help: HelpTextAccountsProcessed,
		},
		[]string{LabelResult},
	)

	DropsFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameDropsFound,
			Help: HelpTextDropsFound,
		},
		[]string{LabelResult},
	)
)
