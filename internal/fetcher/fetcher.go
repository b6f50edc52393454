// Package fetcher provides rate-limited HTTP fetching for crawl workers.
// Requests to the same host are spaced by a delay drawn uniformly from the
// configured wait window; transient failures are retried with exponential
// backoff; 404 is a skip outcome, not an error.
package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

// Defaults for the fetch policy.
const (
	DefaultMinWait    = 3 * time.Second
	DefaultMaxWait    = 7 * time.Second
	DefaultTimeout    = 30 * time.Second
	DefaultRetries    = 3
	defaultUserAgent  = "Myaku-Crawler/1.0"
	maxBodyBytes      = 10 * 1024 * 1024
	retryInitialDelay = 500 * time.Millisecond
)

// Config holds the fetch policy.
type Config struct {
	// MinWait / MaxWait bound the uniform per-host inter-request delay.
	MinWait time.Duration
	MaxWait time.Duration
	// Timeout applies per HTTP request.
	Timeout time.Duration
	// Retries bounds attempts for transient failures.
	Retries   int
	UserAgent string
}

// WithDefaults returns a copy of the config with defaults applied for
// zero-value fields.
func (c Config) WithDefaults() Config {
	if c.MinWait <= 0 {
		c.MinWait = DefaultMinWait
	}
	if c.MaxWait <= c.MinWait {
		c.MaxWait = c.MinWait + (DefaultMaxWait - DefaultMinWait)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retries <= 0 {
		c.Retries = DefaultRetries
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return c
}

// Fetcher performs rate-limited GETs. Safe for concurrent use. Each host
// gets its own collector limit rule, so the delay and single-flight apply
// per host; fetches against different hosts proceed in parallel.
type Fetcher struct {
	collector *colly.Collector
	cfg       Config
	log       logger.Logger

	mu      sync.Mutex
	limited map[string]bool
}

// New creates a fetcher with the given policy.
func New(cfg Config, log logger.Logger) (*Fetcher, error) {
	cfg = cfg.WithDefaults()

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(maxBodyBytes),
	)
	c.SetRequestTimeout(cfg.Timeout)

	f := &Fetcher{
		collector: c,
		cfg:       cfg,
		log:       log,
		limited:   make(map[string]bool),
	}

	c.OnResponse(func(r *colly.Response) {
		if out, ok := r.Ctx.GetAny(captureKey).(*capture); ok {
			out.body = r.Body
			out.status = r.StatusCode
		}
	})
	c.OnError(func(r *colly.Response, reqErr error) {
		if out, ok := r.Ctx.GetAny(captureKey).(*capture); ok {
			out.err = reqErr
			if r != nil {
				out.status = r.StatusCode
			}
		}
	})

	return f, nil
}

const captureKey = "capture"

// capture collects the outcome of one request via the colly request context.
type capture struct {
	body   []byte
	status int
	err    error
}

// Fetch GETs url and returns the response body. A 404 returns a
// models.SkipError; other client errors return models.ErrPageUnreachable.
// Transient failures (timeouts, resets, 5xx) are retried up to the
// configured bound with exponential backoff.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.ensureHostLimit(url); err != nil {
		return nil, err
	}

	delay := retryInitialDelay
	var lastErr error

	for attempt := 1; attempt <= f.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := f.fetchOnce(url)
		if err == nil {
			return body, nil
		}
		if !retryable(err) {
			return nil, err
		}

		lastErr = err
		f.log.Warn("transient fetch failure",
			logger.String("url", url),
			logger.Int("attempt", attempt),
			logger.Err(err),
		)

		if attempt < f.cfg.Retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return nil, fmt.Errorf("%w: %s: %v", models.ErrPageUnreachable, url, lastErr)
}

// ensureHostLimit registers the rate-limit rule for the URL's host on first
// use. The collector matches rules by request host, so one rule per host
// keeps rate limiting scoped to that host.
func (f *Fetcher) ensureHostLimit(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse fetch URL %s: %w", rawURL, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limited[u.Host] {
		return nil
	}

	err = f.collector.Limit(&colly.LimitRule{
		DomainGlob:  u.Host,
		Parallelism: 1,
		// Per-request wait is Delay plus rand(RandomDelay): uniform in
		// [MinWait, MaxWait).
		Delay:       f.cfg.MinWait,
		RandomDelay: f.cfg.MaxWait - f.cfg.MinWait,
	})
	if err != nil {
		return fmt.Errorf("set fetch rate limit for %s: %w", u.Host, err)
	}
	f.limited[u.Host] = true
	return nil
}

// fetchOnce performs a single rate-limited request.
func (f *Fetcher) fetchOnce(url string) ([]byte, error) {
	res := &capture{}
	reqCtx := colly.NewContext()
	reqCtx.Put(captureKey, res)

	// Request blocks until the response callbacks have run; the collector
	// is synchronous.
	if err := f.collector.Request("GET", url, nil, reqCtx, nil); err != nil {
		res.err = err
	}

	switch {
	case res.err == nil:
		return res.body, nil
	case res.status == 404:
		return nil, &models.SkipError{Reason: models.SkipReasonNotFound, URL: url}
	case res.status >= 500:
		return nil, &transientError{fmt.Errorf("server error %d: %s", res.status, url)}
	case res.status >= 400:
		return nil, fmt.Errorf("%w: HTTP %d: %s", models.ErrPageUnreachable, res.status, url)
	default:
		return nil, &transientError{fmt.Errorf("fetch %s: %w", url, res.err)}
	}
}

// transientError marks failures worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func retryable(err error) bool {
	_, ok := err.(*transientError)
	return ok
}
