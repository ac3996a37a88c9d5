package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	LogLevel    string `validate:"oneof=debug info warn warning error DEBUG INFO WARN ERROR"`
	LogFormat   string `validate:"oneof=text json"`
	Environment string `validate:"required"`
	Version     string
	LogDir      string

	AccountsFile       string        `validate:"required"`
	BridgeURL          string        `validate:"required,url"`
	BridgePassword     string
	BridgePollInterval time.Duration `validate:"gt=0"`

	ConnectMaxAttempts int           `validate:"min=1"`
	ConnectTimeout     time.Duration `validate:"gt=0"`
	LogOnTimeout       time.Duration `validate:"gt=0"`

	HistoryBaseURL         string        `validate:"required,url"`
	HistoryPageCap         int           `validate:"min=0"`
	HistoryRequestInterval time.Duration `validate:"gte=0"`
	HistoryLanguage        string        `validate:"required"`
	HistoryAppID           int           `validate:"gt=0"`

	PricingPrimaryURL        string        `validate:"required,url"`
	PricingSecondaryURL      string        `validate:"required,url"`
	PricingSecondaryInterval time.Duration `validate:"gte=0"`
	PricingRequestTimeout    time.Duration `validate:"gt=0"`
	PricingCurrency          string        `validate:"len=3"`
	UnsupportedCurrencies    []string      `validate:"dive,len=3"`
	ExchangePrimaryURL       string        `validate:"required,url"`
	ExchangeSecondaryURL     string        `validate:"required,url"`
	ExchangeCacheTTL         time.Duration `validate:"gt=0"`

	MaxParallelAccounts int `validate:"min=1"`
	MetricsFile         string
	DiscordWebhookURL   string `validate:"omitempty,url"`
	DeadLetterPath      string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		Environment: getEnv("ENVIRONMENT", "dev"),
		Version:     getEnv("VERSION", "dev"),
		LogDir:      getEnv("LOG_DIR", DefaultLogDir),

		AccountsFile:   getEnv("ACCOUNTS_FILE", DefaultAccountsFile),
		BridgeURL:      getEnv("BRIDGE_URL", DefaultBridgeURL),
		BridgePassword: getEnv("BRIDGE_PASSWORD", ""),

		HistoryBaseURL:  getEnv("HISTORY_BASE_URL", DefaultHistoryBaseURL),
		HistoryLanguage: getEnv("HISTORY_LANGUAGE", DefaultHistoryLanguage),

		PricingPrimaryURL:     getEnv("PRICING_PRIMARY_URL", DefaultPricingPrimaryURL),
		PricingSecondaryURL:   getEnv("PRICING_SECONDARY_URL", DefaultPricingSecondaryURL),
		PricingCurrency:       strings.ToUpper(getEnv("PRICING_DEFAULT_CURRENCY", DefaultPricingCurrency)),
		UnsupportedCurrencies: splitList(getEnv("PRICING_UNSUPPORTED_CURRENCIES", DefaultUnsupportedCurrencies)),
		ExchangePrimaryURL:    getEnv("EXCHANGE_PRIMARY_URL", DefaultExchangePrimaryURL),
		ExchangeSecondaryURL:  getEnv("EXCHANGE_SECONDARY_URL", DefaultExchangeSecondaryURL),

		MetricsFile:       getEnv("METRICS_FILE", ""),
		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		DeadLetterPath:    getEnv("DEAD_LETTER_PATH", DefaultDeadLetterPath),
	}

	var err error
	if cfg.ConnectMaxAttempts, err = getEnvInt("CONNECT_MAX_ATTEMPTS", DefaultConnectMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.HistoryPageCap, err = getEnvInt("HISTORY_PAGE_CAP", DefaultHistoryPageCap); err != nil {
		return nil, err
	}
	if cfg.HistoryAppID, err = getEnvInt("HISTORY_APP_ID", DefaultHistoryAppID); err != nil {
		return nil, err
	}
	if cfg.MaxParallelAccounts, err = getEnvInt("MAX_PARALLEL_ACCOUNTS", DefaultMaxParallelAccounts); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout, err = getEnvDuration("CONNECT_TIMEOUT", DefaultConnectTimeout); err != nil {
		return nil, err
	}
	if cfg.LogOnTimeout, err = getEnvDuration("LOGON_TIMEOUT", DefaultLogOnTimeout); err != nil {
		return nil, err
	}
	if cfg.HistoryRequestInterval, err = getEnvDuration("HISTORY_REQUEST_INTERVAL", DefaultHistoryRequestInterval); err != nil {
		return nil, err
	}
	if cfg.BridgePollInterval, err = getEnvDuration("BRIDGE_POLL_INTERVAL", DefaultBridgePollInterval); err != nil {
		return nil, err
	}
	if cfg.PricingSecondaryInterval, err = getEnvDuration("PRICING_SECONDARY_INTERVAL", DefaultPricingSecondaryInterval); err != nil {
		return nil, err
	}
	if cfg.PricingRequestTimeout, err = getEnvDuration("PRICING_REQUEST_TIMEOUT", DefaultPricingRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.ExchangeCacheTTL, err = getEnvDuration("EXCHANGE_CACHE_TTL", DefaultExchangeCacheTTL); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
