package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/metrics"
)

// ErrUnsupportedCurrency is returned by ItemSource implementations that cannot quote in a currency.
var ErrUnsupportedCurrency = errors.New("currency not supported by provider")

// ItemSource prices a single market name. ok is false when the provider has no price.
type ItemSource interface {
	Price(ctx context.Context, name, currency string) (value float64, ok bool, err error)
}

type priceOverview struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
}

// MarketClient queries the community market price overview, one item per request.
type MarketClient struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	backoff     time.Duration
}

// NewMarketClient creates a MarketClient. Requests are spaced by interval.
func NewMarketClient(baseURL string, interval, timeout time.Duration) *MarketClient {
	if baseURL == "" {
		baseURL = DefaultMarketBaseURL
	}
	if interval <= 0 {
		interval = DefaultMarketInterval
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &MarketClient{
		httpClient:  metrics.NewClient(timeout),
		rateLimiter: rate.NewLimiter(rate.Every(interval), 1),
		baseURL:     strings.TrimRight(baseURL, "/"),
		backoff:     marketInitialBackoff,
	}
}

// Price implements ItemSource.
func (c *MarketClient) Price(ctx context.Context, name, currency string) (float64, bool, error) {
	id, ok := marketCurrencyIDs[currency]
	if !ok {
		return 0, false, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}

	q := url.Values{}
	q.Set("appid", strconv.Itoa(defaultMarketAppID))
	q.Set("currency", strconv.Itoa(id))
	q.Set("market_hash_name", name)
	reqURL := c.baseURL + "/market/priceoverview/?" + q.Encode()

	var overview priceOverview
	if err := c.doRequest(ctx, reqURL, &overview); err != nil {
		return 0, false, fmt.Errorf("failed to get market price for %q: %w", name, err)
	}
	if !overview.Success {
		return 0, false, nil
	}

	for _, text := range []string{overview.LowestPrice, overview.MedianPrice} {
		if text == "" {
			continue
		}
		value, err := ParseLocalizedPrice(text)
		if err != nil {
			return 0, false, err
		}
		if value > 0 {
			return value, true, nil
		}
	}
	return 0, false, nil
}

// doRequest performs a GET with rate limiting, retrying 429 and 5xx with backoff.
func (c *MarketClient) doRequest(ctx context.Context, reqURL string, result any) error {
	log := logger.FromContext(ctx)
	backoff := c.backoff
	var lastErr error

	for attempt := 0; attempt <= marketMaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		retry, err := c.once(ctx, reqURL, result)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == marketMaxRetries {
			break
		}

		log.Debug(LogMsgMarketRetry, "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = min(backoff*2, marketMaxBackoff)
	}
	return lastErr
}

func (c *MarketClient) once(ctx context.Context, reqURL string, result any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, fmt.Errorf("failed to read response body: %w", err)
		}
		if err := json.Unmarshal(body, result); err != nil {
			return false, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("rate limited (HTTP 429)")
	case resp.StatusCode >= http.StatusInternalServerError:
		return true, fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
	default:
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// ParseLocalizedPrice reads a market price string such as "$1,234.56", "1.234,56€",
// "0,--€" or "CDN$ 12.30". When both separators occur the later one is the decimal
// mark; a lone separator followed by exactly three digits groups thousands.
func ParseLocalizedPrice(text string) (float64, error) {
	s := strings.ReplaceAll(text, "--", "00")
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	s = strings.Trim(b.String(), ".,")
	if s == "" {
		return 0, fmt.Errorf("no digits in price %q", text)
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	decimal := -1
	switch {
	case lastComma >= 0 && lastDot >= 0:
		decimal = max(lastComma, lastDot)
	case lastComma >= 0 || lastDot >= 0:
		sep := max(lastComma, lastDot)
		sepChar := s[sep]
		if strings.Count(s, string(sepChar)) == 1 && len(s)-sep-1 != 3 {
			decimal = sep
		}
	}

	var digits strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case i == decimal:
			digits.WriteByte('.')
		case s[i] >= '0' && s[i] <= '9':
			digits.WriteByte(s[i])
		}
	}
	value, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	return value, nil
}
