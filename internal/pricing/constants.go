package pricing

import "time"

// Defaults
const (
	DefaultCurrency       = "USD"
	DefaultPrimaryBaseURL = "https://api.csgoprices.net"
	DefaultMarketBaseURL  = "https://steamcommunity.com"
	DefaultMarketInterval = 3 * time.Second
	DefaultRequestTimeout = 20 * time.Second
	DefaultOpenERBaseURL  = "https://open.er-api.com"
	DefaultFrankfurterURL = "https://api.frankfurter.app"
	DefaultRateCacheSize  = 64
	DefaultRateCacheTTL   = 6 * time.Hour
	defaultMarketAppID    = 730
	marketMaxRetries      = 2
	marketInitialBackoff  = 2 * time.Second
	marketMaxBackoff      = 16 * time.Second
)

// DefaultDenylist lists currencies the primary provider does not price in.
var DefaultDenylist = []string{"ARS", "CRC", "KWD", "KZT", "QAR", "UAH", "UYU", "VND"}

// marketCurrencyIDs maps ISO codes to the market's numeric currency ids.
var marketCurrencyIDs = map[string]int{
	"USD": 1, "GBP": 2, "EUR": 3, "CHF": 4, "RUB": 5, "PLN": 6, "BRL": 7, "JPY": 8,
	"NOK": 9, "IDR": 10, "MYR": 11, "PHP": 12, "SGD": 13, "THB": 14, "VND": 15, "KRW": 16,
	"TRY": 17, "UAH": 18, "MXN": 19, "CAD": 20, "AUD": 21, "NZD": 22, "CNY": 23, "INR": 24,
	"CLP": 25, "PEN": 26, "COP": 27, "ZAR": 28, "HKD": 29, "TWD": 30, "SAR": 31, "AED": 32,
	"ARS": 34, "ILS": 35, "KZT": 37, "KWD": 38, "QAR": 39, "CRC": 40, "UYU": 41,
}

// Provider label values for metrics
const (
	providerLabelPrimary     = "primary"
	providerLabelSecondary   = "secondary"
	providerLabelOpenER      = "open_er_api"
	providerLabelFrankfurter = "frankfurter"
	providerLabelCache       = "cache"
)

// Log messages
const (
	LogMsgPrimaryFailed        = "Primary price provider request failed, treating as zero prices"
	LogMsgPrimaryMissing       = "No primary price, falling back to secondary provider"
	LogMsgSecondaryFailed      = "Secondary price lookup failed"
	LogMsgSecondaryNoPrice     = "Secondary provider has no price"
	LogMsgSecondaryUnsupported = "Secondary provider does not support currency"
	LogMsgCurrencyDenied       = "Currency not supported by primary provider, fetching in default currency"
	LogMsgConverted            = "Prices converted"
	LogMsgUnconverted          = "No exchange rate available, prices left in default currency"
	LogMsgRateFailed           = "Exchange rate provider failed"
	LogMsgRateCached           = "Exchange rate served from cache"
	LogMsgQuoteUnmatched       = "Price quote matches no item"
	LogMsgQuoteAlreadyBound    = "Item already has a price"
	LogMsgMarketRetry          = "Market request retry"
)
