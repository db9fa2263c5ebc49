// Package httpx provides the rate-limited, retrying HTTP client used for all
// Baseball Savant traffic.
//
// Savant blocks aggressive clients by IP and user agent regardless of path,
// so pacing is a single global token: every request through one Client is
// spaced at least the configured interval after the previous one. The Client
// is not safe for concurrent use; callers issue requests one at a time.
package httpx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// TransportError is returned once all attempts against an endpoint failed.
// It wraps the error from the final attempt.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("httpx: %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// statusError marks a response outside the 2xx range as a transport-level
// failure so that it participates in the retry loop.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// Client issues GET requests with minimum inter-request spacing and bounded
// exponential-backoff retry.
type Client struct {
	httpClient  *http.Client
	interval    time.Duration
	maxAttempts int
	userAgent   string
	logger      *slog.Logger

	lastRequest time.Time

	// Injectable clock, for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a paced client. interval is the minimum wall-clock
// spacing between outbound requests; maxAttempts is the total number of
// tries per call (a value below 1 is treated as 1).
func NewClient(interval time.Duration, maxAttempts int, timeout time.Duration, userAgent string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		interval:    interval,
		maxAttempts: maxAttempts,
		userAgent:   userAgent,
		logger:      logger,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// pace sleeps until at least interval has passed since the previous request,
// then claims the slot.
func (c *Client) pace() {
	if !c.lastRequest.IsZero() {
		elapsed := c.now().Sub(c.lastRequest)
		if elapsed < c.interval {
			wait := c.interval - elapsed
			c.logger.Debug("rate limit wait", "wait", wait)
			c.sleep(wait)
		}
	}
	c.lastRequest = c.now()
}

// Get fetches rawURL with the given query parameters and headers. On
// transport-level failure (connection error, timeout, non-2xx status) it
// retries with 1s, 2s, 4s, ... backoff and fails with *TransportError once
// the attempt budget is spent.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, error) {
	u := rawURL
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			c.logger.Warn("retrying request", "url", rawURL, "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			c.sleep(backoff)
		}
		c.pace()

		body, err := c.attempt(ctx, u, headers)
		if err == nil {
			c.logger.Debug("request ok", "url", rawURL, "bytes", len(body))
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	c.logger.Error("request failed", "url", rawURL, "attempts", c.maxAttempts, "error", lastErr)
	return nil, &TransportError{URL: rawURL, Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Client) attempt(ctx context.Context, u string, headers http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{status: resp.StatusCode, body: truncate(body, 200)}
	}
	return body, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
