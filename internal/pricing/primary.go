package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/osse101/DropTracker_Go/internal/metrics"
)

// BatchSource prices many market names in one call.
type BatchSource interface {
	Prices(ctx context.Context, names []string, currency string) (map[string]float64, error)
}

// ProviderPrice is one source's value inside a price index entry.
type ProviderPrice struct {
	Provider string  `json:"provider"`
	Value    float64 `json:"value"`
}

type indexRequest struct {
	Currency string   `json:"currency"`
	Names    []string `json:"names"`
}

type indexResponse struct {
	Prices map[string][]ProviderPrice `json:"prices"`
}

// IndexClient queries the batch price index.
type IndexClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewIndexClient creates an IndexClient. An empty baseURL uses DefaultPrimaryBaseURL.
func NewIndexClient(baseURL string, timeout time.Duration) *IndexClient {
	if baseURL == "" {
		baseURL = DefaultPrimaryBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &IndexClient{
		httpClient: metrics.NewClient(timeout),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Prices implements BatchSource. Each name maps to the first positive value in
// its provider list; names without one are absent from the result.
func (c *IndexClient) Prices(ctx context.Context, names []string, currency string) (map[string]float64, error) {
	body, err := json.Marshal(indexRequest{Currency: currency, Names: names})
	if err != nil {
		return nil, fmt.Errorf("encode price request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/prices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price index request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("price index returned status %d", resp.StatusCode)
	}

	var decoded indexResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to parse price index response: %w", err)
	}

	prices := make(map[string]float64, len(decoded.Prices))
	for name, entries := range decoded.Prices {
		for _, e := range entries {
			if e.Value > 0 {
				prices[name] = e.Value
				break
			}
		}
	}
	return prices, nil
}
