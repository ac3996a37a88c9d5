package config

import "time"

// Default values used when the environment leaves a setting unset
const (
	DefaultAccountsFile       = "accounts.json"
	DefaultBridgeURL          = "ws://127.0.0.1:8765/"
	DefaultBridgePollInterval = 2 * time.Second
	DefaultLogDir             = "logs"

	DefaultConnectMaxAttempts = 3
	DefaultConnectTimeout     = 30 * time.Second
	DefaultLogOnTimeout       = 60 * time.Second

	DefaultHistoryBaseURL         = "https://steamcommunity.com"
	DefaultHistoryPageCap         = 3
	DefaultHistoryRequestInterval = 2 * time.Second
	DefaultHistoryLanguage        = "english"
	DefaultHistoryAppID           = 730

	DefaultPricingPrimaryURL        = "https://api.csgoprices.net"
	DefaultPricingSecondaryURL      = "https://steamcommunity.com"
	DefaultPricingSecondaryInterval = 3 * time.Second
	DefaultPricingRequestTimeout    = 20 * time.Second
	DefaultPricingCurrency          = "USD"
	DefaultUnsupportedCurrencies    = "ARS,CRC,KWD,KZT,QAR,UAH,UYU,VND"
	DefaultExchangePrimaryURL       = "https://open.er-api.com"
	DefaultExchangeSecondaryURL     = "https://api.frankfurter.app"
	DefaultExchangeCacheTTL         = 6 * time.Hour

	DefaultMaxParallelAccounts = 4
	DefaultDeadLetterPath      = "logs/notify_deadletter.jsonl"
)
