package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// Transport wraps an http.RoundTripper and records request count and latency per host.
type Transport struct {
	Base http.RoundTripper
}

// NewClient returns an http.Client whose transport is instrumented.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{Base: http.DefaultTransport},
	}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	HTTPRequestDuration.WithLabelValues(req.URL.Host).Observe(time.Since(start).Seconds())

	status := ResultError
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	HTTPRequestsTotal.WithLabelValues(req.URL.Host, status).Inc()

	return resp, err
}
