// Package apiclient is the HTTP transport between resource stores and the
// marketplace admin API. It handles bearer tokens, rate limiting, retry of
// idempotent reads, de-duplication of identical concurrent reads and
// decoding of the per-resource response envelopes.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/HerbHall/marketdesk/internal/version"
)

// Client defaults.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultRetries       = 3
	DefaultRetryInterval = time.Second
	maxResponseBytes     = 16 << 20
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRateLimit caps outgoing requests to limit per second with the given
// burst. A limit of zero or less disables limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(limit), max(burst, 1))
	}
}

// WithRetries sets how many times a failed GET is repeated and the initial
// backoff interval.
func WithRetries(n int, interval time.Duration) Option {
	return func(c *Client) {
		c.retries = uint64(max(n, 0))
		if interval > 0 {
			c.retryInterval = interval
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client issues JSON requests against the admin API.
type Client struct {
	baseURL       *url.URL
	http          *http.Client
	tokens        TokenSource
	limiter       *rate.Limiter
	retries       uint64
	retryInterval time.Duration
	logger        *zap.Logger
	group         singleflight.Group
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:       u,
		http:          &http.Client{Timeout: DefaultTimeout},
		retries:       DefaultRetries,
		retryInterval: DefaultRetryInterval,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Do sends a request and returns the response body of a 2xx answer. body is
// JSON-encoded when non-nil. GETs are retried on transient failures and
// identical concurrent GETs share one round trip; the returned slice must not
// be modified.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	target := c.resolve(path, query)

	if method != http.MethodGet {
		return c.send(ctx, method, target, path, body)
	}

	v, err, shared := c.group.Do(target, func() (any, error) {
		return c.getWithRetry(ctx, target, path)
	})
	if shared {
		c.logger.Debug("shared in-flight request", zap.String("url", target))
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) getWithRetry(ctx context.Context, target, path string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxElapsedTime = 0

	var out []byte
	attempt := 0
	op := func() error {
		attempt++
		data, err := c.send(ctx, http.MethodGet, target, path, nil)
		if err == nil {
			out = data
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		c.logger.Debug("retrying request",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, method, target, path string, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil && req.Header.Get("Authorization") != "" {
			c.logger.Warn("token rejected, discarding", zap.String("path", path))
			c.tokens.Invalidate()
		}
		return nil, newStatusError(method, path, resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	// path arrives escaped; ids are substituted with url.PathEscape.
	u := *c.baseURL
	raw := strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	if p, err := url.PathUnescape(raw); err == nil {
		u.Path, u.RawPath = p, raw
	} else {
		u.Path, u.RawPath = raw, ""
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
