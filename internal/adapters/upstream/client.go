// Package upstream is the shared HTTP fetch path for every remote data
// source: rate limiting, retries with exponential backoff, an optional
// response cache and per-source metrics.
package upstream

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/samirrijal/sitescout/internal/core/ports"
	"github.com/samirrijal/sitescout/internal/pkg/config"
	"github.com/samirrijal/sitescout/internal/pkg/metrics"
)

const maxBodyBytes = 64 << 20

// Options configures a Client.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	RetryInterval     time.Duration // first backoff interval
	UserAgent         string
	Cache             ports.CacheService // nil disables caching
	CacheTTLSeconds   int
}

// OptionsFromConfig builds Options from the upstream and cache sections.
func OptionsFromConfig(cfg *config.Config, cache ports.CacheService) Options {
	return Options{
		Timeout:           time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
		MaxRetries:        cfg.Upstream.MaxRetries,
		RetryInterval:     500 * time.Millisecond,
		UserAgent:         cfg.Upstream.UserAgent,
		Cache:             cache,
		CacheTTLSeconds:   cfg.Cache.TTLSeconds,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.URL, e.Code)
}

// Validator is implemented by response payloads that can carry an in-band
// error, such as ArcGIS {"error": {...}} bodies served with HTTP 200.
// Invalid payloads are returned as errors and never cached.
type Validator interface {
	Validate() error
}

// Client fetches JSON documents for one named source.
type Client struct {
	source  string
	http    *http.Client
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger
}

// New creates a Client. source names the upstream in metrics and logs.
func New(source string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	return &Client{
		source:  source,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		opts:    opts,
		logger:  slog.Default().With("source", source),
	}
}

// Source returns the source name.
func (c *Client) Source() string {
	return c.source
}

// GetJSON issues GET endpoint?params and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	target := u.String()
	key := c.cacheKey(target)

	if body, ok := c.cached(ctx, key); ok {
		if err := decode(body, out); err == nil {
			return nil
		}
		// stale or corrupt entry; fall through to a live fetch
	}

	start := time.Now()
	body, err := c.fetch(ctx, target)
	metrics.UpstreamDuration.WithLabelValues(c.source).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(c.source, "error").Inc()
		return err
	}

	if err := decode(body, out); err != nil {
		metrics.UpstreamRequests.WithLabelValues(c.source, "invalid").Inc()
		return err
	}
	metrics.UpstreamRequests.WithLabelValues(c.source, "ok").Inc()

	c.store(ctx, key, body)
	return nil
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.RetryInterval
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(c.opts.MaxRetries, 0))), ctx)

	op := func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		return c.do(ctx, target)
	}
	notify := func(err error, wait time.Duration) {
		metrics.UpstreamRetries.WithLabelValues(c.source).Inc()
		c.logger.WarnContext(ctx, "upstream request failed, retrying", "error", err, "wait", wait.String())
	}

	return backoff.RetryNotifyWithData(op, b, notify)
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		serr := &StatusError{Code: resp.StatusCode, URL: redact(target)}
		if retryable(resp.StatusCode) {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// redact drops the query string, which is long and carries the coordinate.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	u.RawQuery = ""
	return u.String()
}

// decode keeps untyped numbers as json.Number so attribute values survive
// without float rounding.
func decode(body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) cacheKey(target string) string {
	sum := sha256.Sum256([]byte(target))
	return "sitescout:upstream:" + c.source + ":" + hex.EncodeToString(sum[:16])
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.opts.Cache == nil {
		return nil, false
	}
	body, err := c.opts.Cache.Get(ctx, key)
	if err != nil || len(body) == 0 {
		metrics.CacheMisses.WithLabelValues(c.source).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(c.source).Inc()
	return body, true
}

func (c *Client) store(ctx context.Context, key string, body []byte) {
	if c.opts.Cache == nil || c.opts.CacheTTLSeconds <= 0 {
		return
	}
	if err := c.opts.Cache.Set(ctx, key, body, c.opts.CacheTTLSeconds); err != nil {
		c.logger.DebugContext(ctx, "cache write failed", "error", err)
	}
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.Code == code
}
