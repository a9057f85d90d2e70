package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// MetricsRecorder receives a latency/outcome sample for every request Client
// issues. internal/metrics implements it on top of a Prometheus histogram;
// tests and callers that don't care about metrics can pass nil.
type MetricsRecorder interface {
	ObserveRequest(venue string, basePos int, d time.Duration, statusCode int, err error)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRequest(string, int, time.Duration, int, error) {}

// Client wraps an *http.Client with a BestURLPicker and a minimum spacing
// between requests issued to the same venue, so a burst of calls can never
// exceed a venue's rate limit by construction.
type Client struct {
	venue      string
	httpClient *http.Client
	picker     *BestURLPicker
	minSpacing time.Duration
	metrics    MetricsRecorder

	mu            sync.Mutex
	lastRequestAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client (useful for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics attaches a MetricsRecorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a Client for venue, spacing consecutive requests by at least
// minSpacing and picking among picker's base URLs by observed latency.
func New(venue string, picker *BestURLPicker, minSpacing time.Duration, opts ...Option) *Client {
	c := &Client{
		venue:      venue,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		picker:     picker,
		minSpacing: minSpacing,
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// waitForSpacing blocks until at least minSpacing has elapsed since the
// last request this Client issued, or ctx is canceled first.
func (c *Client) waitForSpacing(ctx context.Context) error {
	for {
		c.mu.Lock()
		wait := c.minSpacing - time.Since(c.lastRequestAt)
		if wait <= 0 {
			c.lastRequestAt = time.Now()
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Do issues method+path against the currently best-scoring base URL,
// recording the round trip latency against both the picker and the
// attached metrics recorder. The caller owns closing resp.Body.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	if err := c.waitForSpacing(ctx); err != nil {
		return nil, err
	}

	pos := c.picker.NextBaseURLPos()
	url := c.picker.BaseURL(pos) + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.mu.Lock()
	c.lastRequestAt = time.Now()
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	c.picker.StoreResponseTime(pos, elapsed)
	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	c.metrics.ObserveRequest(c.venue, pos, elapsed, statusCode, err)

	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, url, err)
	}
	return resp, nil
}

// ReadAll drains and closes resp.Body, returning its content. A convenience
// wrapper since every adapter needs this after Do.
func ReadAll(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
