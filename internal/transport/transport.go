// Package transport is the single HTTP client for the crawl: one pooled
// connection to the credit API, fixed browser-shaped headers, request
// pacing, and bounded retry. Everything above it speaks []byte.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/credit-crawler/internal/resilience"
)

// maxURLInError keeps logged URLs (which embed captcha codes) short.
const maxURLInError = 100

// NetworkError is a request that failed after the full retry budget.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Options configures the client.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	Referer    string
	RatePerSec float64
}

// Client executes GET requests against the credit API. One Client (and
// its connection pool) lives for the whole crawl run.
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates a Client with a persistent connection pool.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}

	retry := resilience.DefaultRetryConfig()
	retry.Attempts = opts.MaxRetries
	retry.OnRetry = func(attempt int, err error) {
		zap.L().Warn("request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		retry:   retry,
	}
}

// Get fetches rawURL and returns the response body. Network failures
// and retryable status codes are re-attempted with backoff; exhaustion
// yields a *NetworkError carrying a truncated URL.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.getOnce(ctx, rawURL)
	})
	if err != nil {
		return nil, &NetworkError{URL: truncate(rawURL, maxURLInError), Err: err}
	}
	return body, nil
}

func (c *Client) getOnce(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.opts.Referer != "" {
		req.Header.Set("Referer", c.opts.Referer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("http %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "read body"), 0)
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
