package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/crmgeek/backend/pkg/logger"
	"github.com/wonny/crmgeek/backend/pkg/redis"
)

// Client is an HTTP client wrapper with timeouts, throttling and logging.
// Requests are sent exactly once: callers in the forecast pipeline surface
// every failure instead of retrying.
// ⭐ SSOT: outbound HTTP goes through this client only
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
	throttle   Throttle
	headers    http.Header
}

// Throttle blocks until the next request may be sent.
// *rate.Limiter from golang.org/x/time/rate satisfies it directly.
type Throttle interface {
	Wait(ctx context.Context) error
}

// RedisThrottle adapts the shared sliding-window limiter to Throttle
type RedisThrottle struct {
	Limiter *redis.RateLimiter
	Config  redis.RateLimitConfig
}

// Wait implements Throttle
func (t RedisThrottle) Wait(ctx context.Context) error {
	return t.Limiter.Wait(ctx, t.Config)
}

// New creates a new HTTP client
// ⭐ SSOT: http.Client instances are created here only
func New(log *logger.Logger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		headers:    make(http.Header),
	}
}

// WithThrottle sets the limiter consulted before every request
func (c *Client) WithThrottle(t Throttle) *Client {
	c.throttle = t
	return c
}

// WithHeader adds a header sent on every request (e.g. Authorization)
func (c *Client) WithHeader(key, value string) *Client {
	c.headers.Set(key, value)
	return c
}

// Timeout returns the per-request timeout
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.do(req)
}

// Post performs a POST request with body
func (c *Client) Post(ctx context.Context, url string, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	return c.do(req)
}

// PostJSON performs a POST request with JSON body
func (c *Client) PostJSON(ctx context.Context, url string, data interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return c.Post(ctx, url, "application/json", bytes.NewReader(jsonData))
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.throttle != nil {
		if err := c.throttle.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	log := c.logger.WithFields(map[string]interface{}{
		"method": req.Method,
		"host":   req.URL.Host,
		"path":   req.URL.Path,
	})
	log.Debug("HTTP request started")

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		log.WithField("duration", duration).WithError(err).Error("HTTP request failed")
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("HTTP request completed")

	return resp, nil
}

// ReadBody drains and closes the response body, capping it at limit bytes
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()
	if limit <= 0 {
		limit = 4 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// IsSuccess reports a 2xx status
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
