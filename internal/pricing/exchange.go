package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/metrics"
)

// RateSource returns the multiplier converting an amount in from to an amount in to.
// ok is false when the source explicitly has no rate for the pair.
type RateSource interface {
	Name() string
	Rate(ctx context.Context, from, to string) (rate float64, ok bool, err error)
}

// OpenERClient reads rates from open.er-api.com.
type OpenERClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewOpenERClient creates an OpenERClient. An empty baseURL uses DefaultOpenERBaseURL.
func NewOpenERClient(baseURL string, timeout time.Duration) *OpenERClient {
	if baseURL == "" {
		baseURL = DefaultOpenERBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &OpenERClient{httpClient: metrics.NewClient(timeout), baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *OpenERClient) Name() string { return providerLabelOpenER }

// Rate implements RateSource.
func (c *OpenERClient) Rate(ctx context.Context, from, to string) (float64, bool, error) {
	var body struct {
		Result string             `json:"result"`
		Rates  map[string]float64 `json:"rates"`
	}
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/v6/latest/"+url.PathEscape(from), &body); err != nil {
		return 0, false, err
	}
	if body.Result != "success" {
		return 0, false, nil
	}
	rate, ok := body.Rates[to]
	return rate, ok && rate > 0, nil
}

// FrankfurterClient reads rates from api.frankfurter.app.
type FrankfurterClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFrankfurterClient creates a FrankfurterClient. An empty baseURL uses DefaultFrankfurterURL.
func NewFrankfurterClient(baseURL string, timeout time.Duration) *FrankfurterClient {
	if baseURL == "" {
		baseURL = DefaultFrankfurterURL
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &FrankfurterClient{httpClient: metrics.NewClient(timeout), baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *FrankfurterClient) Name() string { return providerLabelFrankfurter }

// Rate implements RateSource. Frankfurter answers 404 for currencies it does not track.
func (c *FrankfurterClient) Rate(ctx context.Context, from, to string) (float64, bool, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)

	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/latest?"+q.Encode(), &body); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	rate, ok := body.Rates[to]
	return rate, ok && rate > 0, nil
}

type statusError struct {
	status int
}

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status code: %d", e.status) }

func getJSON(ctx context.Context, client *http.Client, reqURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &statusError{status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// RateChain asks each source in order until one has a rate. Rates are cached per pair.
type RateChain struct {
	sources []RateSource
	cache   *expirable.LRU[string, float64]
}

// NewRateChain creates a chain over sources.
func NewRateChain(size int, ttl time.Duration, sources ...RateSource) *RateChain {
	if size <= 0 {
		size = DefaultRateCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultRateCacheTTL
	}
	return &RateChain{
		sources: sources,
		cache:   expirable.NewLRU[string, float64](size, nil, ttl),
	}
}

// Rate returns the from→to multiplier, or false when no source could supply one.
// Source errors move on to the next source.
func (c *RateChain) Rate(ctx context.Context, from, to string) (float64, bool) {
	log := logger.FromContext(ctx)
	if from == to {
		return 1, true
	}

	key := from + "->" + to
	if rate, ok := c.cache.Get(key); ok {
		log.Debug(LogMsgRateCached, "pair", key, "rate", rate)
		metrics.ExchangeRateLookups.WithLabelValues(providerLabelCache, metrics.ResultCached).Inc()
		return rate, true
	}

	for _, src := range c.sources {
		rate, ok, err := src.Rate(ctx, from, to)
		switch {
		case err != nil:
			log.Warn(LogMsgRateFailed, "provider", src.Name(), "pair", key, "error", err)
			metrics.ExchangeRateLookups.WithLabelValues(src.Name(), metrics.ResultError).Inc()
		case !ok:
			metrics.ExchangeRateLookups.WithLabelValues(src.Name(), metrics.ResultMiss).Inc()
		default:
			metrics.ExchangeRateLookups.WithLabelValues(src.Name(), metrics.ResultOK).Inc()
			c.cache.Add(key, rate)
			return rate, true
		}
	}
	return 0, false
}
