// Package httputil wraps net/http with the retry, rate limiting and
// request logging all upstream calls go through.
package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// Client issues GET requests against the upstream API.
type Client struct {
	hc      *http.Client
	log     *logger.Logger
	retry   retryPolicy
	limiter *rate.Limiter
}

// retryPolicy controls backoff on 5xx and 429 responses. attempts
// counts retries after the first try.
type retryPolicy struct {
	enabled  bool
	attempts int
	delay    time.Duration
	maxDelay time.Duration
}

// backoff doubles the delay per attempt, capped at maxDelay.
func (p retryPolicy) backoff(attempt int) time.Duration {
	d := p.delay << attempt
	if d <= 0 || d > p.maxDelay {
		return p.maxDelay
	}
	return d
}

// New returns a client with a 3-retry exponential backoff policy and
// no rate limit.
func New(log *logger.Logger, timeout time.Duration) *Client {
	return &Client{
		hc:  &http.Client{Timeout: timeout},
		log: log,
		retry: retryPolicy{
			enabled:  true,
			attempts: 3,
			delay:    time.Second,
			maxDelay: 10 * time.Second,
		},
	}
}

// WithRetry overrides the retry count and first backoff step.
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retry.enabled = true
	c.retry.attempts = maxRetries
	c.retry.delay = initialDelay
	return c
}

// DisableRetry makes every request single-shot.
func (c *Client) DisableRetry() *Client {
	c.retry.enabled = false
	return c
}

// WithRateLimit throttles outgoing requests to rps requests per second
// with the given burst.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// Get performs a GET request. The caller owns the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build GET request: %w", err)
	}
	return c.do(req)
}

// GetJSON performs a GET request and decodes the JSON response body
// into target. Non-2xx responses become errors.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, url); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// GetBody performs a GET request and returns the raw response body.
// Non-2xx responses become errors.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, url); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", url, err)
	}
	return body, nil
}

func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, url, snippet)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	log := c.log.WithField("url", req.URL.String())
	log.Debug("http request")

	start := time.Now()
	resp, err := c.send(req)
	if err != nil {
		log.WithError(err).Error("http request failed")
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("http response")
	return resp, nil
}

// send runs the request under the retry policy. The final attempt's
// response is returned as is, even when its status is retryable.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if !c.retry.enabled {
		return c.hc.Do(req)
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.hc.Do(req)
		if err == nil && !retryable(resp.StatusCode) {
			return resp, nil
		}
		if attempt >= c.retry.attempts {
			return resp, err
		}
		if resp != nil {
			// Drain so the connection can be reused
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		delay := c.retry.backoff(attempt)
		c.log.WithFields(map[string]interface{}{
			"url":     req.URL.String(),
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).Warn("retrying http request")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}
}

func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}
