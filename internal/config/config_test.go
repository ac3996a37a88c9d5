package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"LOG_LEVEL", "LOG_FORMAT", "ENVIRONMENT", "VERSION", "LOG_DIR",
	"ACCOUNTS_FILE", "BRIDGE_URL", "BRIDGE_PASSWORD", "BRIDGE_POLL_INTERVAL",
	"CONNECT_MAX_ATTEMPTS", "CONNECT_TIMEOUT", "LOGON_TIMEOUT",
	"HISTORY_BASE_URL", "HISTORY_PAGE_CAP", "HISTORY_REQUEST_INTERVAL", "HISTORY_LANGUAGE", "HISTORY_APP_ID",
	"PRICING_PRIMARY_URL", "PRICING_SECONDARY_URL", "PRICING_SECONDARY_INTERVAL", "PRICING_REQUEST_TIMEOUT",
	"PRICING_DEFAULT_CURRENCY",
	"PRICING_UNSUPPORTED_CURRENCIES", "EXCHANGE_PRIMARY_URL", "EXCHANGE_SECONDARY_URL", "EXCHANGE_CACHE_TTL",
	"MAX_PARALLEL_ACCOUNTS", "METRICS_FILE", "DISCORD_WEBHOOK_URL", "DEAD_LETTER_PATH",
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		if prev, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, prev) })
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads config with defaults when no env vars set", func(t *testing.T) {
		clearEnvVars(t)

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, DefaultConnectMaxAttempts, cfg.ConnectMaxAttempts)
		assert.Equal(t, DefaultHistoryPageCap, cfg.HistoryPageCap)
		assert.Equal(t, DefaultHistoryAppID, cfg.HistoryAppID)
		assert.Equal(t, "USD", cfg.PricingCurrency)
		assert.Contains(t, cfg.UnsupportedCurrencies, "UAH")
		assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
		assert.Equal(t, DefaultBridgePollInterval, cfg.BridgePollInterval)
		assert.Empty(t, cfg.BridgePassword)
	})

	t.Run("loads config from environment variables", func(t *testing.T) {
		clearEnvVars(t)
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "json")
		t.Setenv("HISTORY_PAGE_CAP", "5")
		t.Setenv("CONNECT_TIMEOUT", "5s")
		t.Setenv("PRICING_DEFAULT_CURRENCY", "eur")
		t.Setenv("PRICING_UNSUPPORTED_CURRENCIES", "uah, kzt ,")
		t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, 5, cfg.HistoryPageCap)
		assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
		assert.Equal(t, "EUR", cfg.PricingCurrency)
		assert.Equal(t, []string{"UAH", "KZT"}, cfg.UnsupportedCurrencies)
		assert.Equal(t, "https://discord.com/api/webhooks/1/abc", cfg.DiscordWebhookURL)
	})

	t.Run("returns error for invalid integer", func(t *testing.T) {
		clearEnvVars(t)
		t.Setenv("HISTORY_PAGE_CAP", "three")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid HISTORY_PAGE_CAP")
	})

	t.Run("returns error for invalid duration", func(t *testing.T) {
		clearEnvVars(t)
		t.Setenv("LOGON_TIMEOUT", "soon")

		_, err := Load()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid LOGON_TIMEOUT")
	})

	t.Run("rejects values that fail validation", func(t *testing.T) {
		clearEnvVars(t)
		t.Setenv("CONNECT_MAX_ATTEMPTS", "0")
		t.Setenv("LOG_FORMAT", "xml")

		_, err := Load()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ConnectMaxAttempts")
		assert.Contains(t, err.Error(), "LogFormat")
	})

	t.Run("rejects malformed currency codes", func(t *testing.T) {
		clearEnvVars(t)
		t.Setenv("PRICING_UNSUPPORTED_CURRENCIES", "UAH,EURO")

		_, err := Load()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "UnsupportedCurrencies")
	})
}
