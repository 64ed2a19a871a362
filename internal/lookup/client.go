// Package lookup executes search requests against the registration service
// with bounded concurrency and per-request retry.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"avcheck/internal/platform/metrics"
)

// ErrExhausted marks a request that failed every retry attempt.
var ErrExhausted = errors.New("lookup request exhausted retries")

const (
	defaultConcurrency = 50
	defaultRetryMax    = 5
	defaultRetryDelay  = 5 * time.Second
	defaultTimeout     = 20 * time.Second

	maxBodyBytes = 2 << 20
)

// Client posts voter search forms to the lookup service. A weighted
// semaphore caps in-flight requests; each retry re-enters the gate so a
// sleeping request never holds a slot.
type Client struct {
	url         string
	httpClient  *http.Client
	gate        *semaphore.Weighted
	concurrency int
	retryMax    int
	retryDelay  time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Client)

// WithConcurrency sets the admission gate size.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		c.concurrency = n
	}
}

// WithRetry sets the total attempt budget per request and the fixed delay
// between attempts.
func WithRetry(max int, delay time.Duration) Option {
	return func(c *Client) {
		c.retryMax = max
		c.retryDelay = delay
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func New(rawURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("lookup URL is required")
	}
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("invalid lookup URL: %w", err)
	}

	c := &Client{
		url:         rawURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		concurrency: defaultConcurrency,
		retryMax:    defaultRetryMax,
		retryDelay:  defaultRetryDelay,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", c.concurrency)
	}
	if c.retryMax < 1 {
		return nil, fmt.Errorf("retry max must be positive, got %d", c.retryMax)
	}
	c.gate = semaphore.NewWeighted(int64(c.concurrency))
	return c, nil
}

// Post executes one lookup, retrying transport failures up to the attempt
// budget. Returns the response body as text, or ErrExhausted wrapping the
// last failure once the budget is spent.
func (c *Client) Post(ctx context.Context, params url.Values) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retryMax; attempt++ {
		if attempt > 1 && c.metrics != nil {
			c.metrics.IncrementLookupRetries()
		}
		body, err := c.attempt(ctx, params)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		c.logger.WarnContext(ctx, "lookup attempt failed",
			"attempt", attempt,
			"error", err,
		)
		if attempt < c.retryMax {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	if c.metrics != nil {
		c.metrics.IncrementLookupExhausted()
	}
	return "", fmt.Errorf("%w: %d attempts, last error: %v", ErrExhausted, c.retryMax, lastErr)
}

// attempt holds a gate slot only for the duration of one HTTP exchange.
func (c *Client) attempt(ctx context.Context, params url.Values) (string, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.gate.Release(1)

	if c.metrics != nil {
		c.metrics.IncrementLookupAttempts()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(params.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return string(body), nil
}
