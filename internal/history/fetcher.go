package history

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

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/metrics"
)

// PageFetcher loads one history page.
type PageFetcher interface {
	FetchPage(ctx context.Context, creds Credentials, cursor domain.Cursor) (*Page, error)
}

// FetcherConfig configures Fetcher.
type FetcherConfig struct {
	BaseURL         string
	Language        string
	AppID           int
	RequestInterval time.Duration
	Timeout         time.Duration
}

// Fetcher requests inventory history pages over HTTP with rate limiting.
type Fetcher struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	cfg         FetcherConfig
	backoff     time.Duration
}

// NewFetcher creates a Fetcher. Zero config values fall back to the defaults.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.AppID == 0 {
		cfg.AppID = DefaultAppID
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = DefaultRequestInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Fetcher{
		httpClient:  metrics.NewClient(cfg.Timeout),
		rateLimiter: rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		cfg:         cfg,
		backoff:     initialBackoff,
	}
}

// PageURL builds the request URL for cursor.
func (f *Fetcher) PageURL(steamID uint64, cursor domain.Cursor) string {
	q := url.Values{}
	q.Set("ajax", "1")
	q.Set("cursor[time]", strconv.FormatInt(cursor.Time, 10))
	q.Set("cursor[time_frac]", strconv.FormatInt(cursor.TimeFrac, 10))
	q.Set("cursor[s]", cursor.S)
	q.Set("l", f.cfg.Language)
	q.Set("app[]", strconv.Itoa(f.cfg.AppID))
	return fmt.Sprintf("%s/profiles/%d/inventoryhistory/?%s", f.cfg.BaseURL, steamID, q.Encode())
}

// FetchPage implements PageFetcher. Rate-limited (429) and server errors are retried with backoff.
func (f *Fetcher) FetchPage(ctx context.Context, creds Credentials, cursor domain.Cursor) (*Page, error) {
	log := logger.FromContext(ctx)
	pageURL := f.PageURL(creds.SteamID, cursor)
	backoff := f.backoff

	var lastErr *FetchError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, &FetchError{Cursor: cursor, Cause: fmt.Errorf("rate limiter: %w", err)}
		}

		log.Debug(LogMsgFetchingPage, "cursor_time", cursor.Time, "cursor_s", cursor.S, "attempt", attempt)
		page, fetchErr, retryable := f.fetchOnce(ctx, creds, cursor, pageURL)
		if fetchErr == nil {
			metrics.HistoryPagesFetched.WithLabelValues(fetchResultOK).Inc()
			return page, nil
		}
		lastErr = fetchErr
		if !retryable || attempt == maxRetries {
			break
		}

		log.Warn(LogMsgFetchRetry, "attempt", attempt, "status", fetchErr.Status, "error", fetchErr.Cause)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, &FetchError{Cursor: cursor, Cause: ctx.Err()}
		}
		backoff = min(backoff*2, maxBackoff)
	}

	metrics.HistoryPagesFetched.WithLabelValues(fetchResultFailed).Inc()
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, creds Credentials, cursor domain.Cursor, pageURL string) (*Page, *FetchError, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{Cursor: cursor, Cause: err}, false
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: loginCookieName, Value: creds.cookieValue()})

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Cursor: cursor, Cause: err}, ctx.Err() == nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Status: resp.StatusCode, Cursor: cursor, Cause: err}, true
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return nil, &FetchError{
			Status: resp.StatusCode,
			Cursor: cursor,
			Cause:  fmt.Errorf("unexpected status: %s", http.StatusText(resp.StatusCode)),
		}, retryable
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &FetchError{Status: resp.StatusCode, Cursor: cursor, Cause: fmt.Errorf("decode page: %w", err)}, false
	}
	if !page.Success {
		return nil, &FetchError{Status: resp.StatusCode, Cursor: cursor, Cause: errors.New("response reported success=false")}, false
	}
	return &page, nil, false
}
