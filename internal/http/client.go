package http

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"github.com/handiism/neko-downloader/internal/identity"
)

// Config holds the retry and pacing policy of a Client.
type Config struct {
	// MaxAttempts is the number of attempts per fetch, including the first.
	MaxAttempts int

	// BaseDelay is slept before every attempt and is the unit of the 429
	// backoff (BaseDelay * 2^attempt).
	BaseDelay time.Duration

	// JitterMin and JitterMax bound the uniform jitter added to BaseDelay.
	JitterMin time.Duration
	JitterMax time.Duration

	// Timeout bounds a single attempt. It should be short relative to the
	// backoff delays so a wedged connection cannot stall a worker.
	Timeout time.Duration

	// RequestsPerSecond caps the request rate across all workers. Zero
	// disables the cap.
	RequestsPerSecond float64
}

// DefaultConfig returns the stock retry policy:
// 5 attempts, 3s base delay, 1–3s jitter and a 30s timeout.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseDelay:   3 * time.Second,
		JitterMin:   1 * time.Second,
		JitterMax:   3 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Client performs logical GETs with retry, backoff and identity rotation.
//
// Client is safe for concurrent use by all workers of a run. The identity
// pool and cookie jar it holds are shared state.
//
// Example usage:
//
//	client := NewClient(DefaultConfig(), identity.NewPool(nil), NewCookieJar())
//
//	// Fetch an HTML page (through the challenge solver if one is set)
//	page, err := client.FetchPage(ctx, "https://site.example/chap-1")
//
//	// Fetch an image with the chapter as referer
//	img, err := client.FetchAsset(ctx, "https://cdn.example/001.jpg", page.URL)
type Client struct {
	cfg     Config
	pool    *identity.Pool
	jar     *CookieJar
	direct  Fetcher
	solver  Fetcher
	limiter *rate.Limiter
	logger  *log.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(min, max time.Duration) time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithFetcher replaces the default net/http fetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *Client) { c.direct = f }
}

// WithChallengeSolver routes HTML page requests through f.
func WithChallengeSolver(f Fetcher) Option {
	return func(c *Client) { c.solver = f }
}

// WithLogger sets the structured logger for attempt failures.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSleep replaces the delay function.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithJitter replaces the jitter source.
func WithJitter(jitter func(min, max time.Duration) time.Duration) Option {
	return func(c *Client) { c.jitter = jitter }
}

// NewClient creates a Client.
func NewClient(cfg Config, pool *identity.Pool, jar *CookieJar, opts ...Option) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if jar == nil {
		jar = NewCookieJar()
	}
	if pool == nil {
		pool = identity.NewPool(nil)
	}

	c := &Client{
		cfg:    cfg,
		pool:   pool,
		jar:    jar,
		direct: NewTransportFetcher(cfg.Timeout),
		logger: &log.Logger{Level: log.ErrorLevel, Writer: log.IOWriter{Writer: io.Discard}},
		sleep:  Sleep,
		jitter: Jitter,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Jar returns the shared cookie jar.
func (c *Client) Jar() *CookieJar {
	return c.jar
}

// FetchPage fetches an HTML document. When a challenge solver is configured
// the page is fetched through it; bodies that are still anti-bot
// interstitials count as failed attempts.
func (c *Client) FetchPage(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, kindPage, url, "")
}

// FetchAPI fetches a JSON document directly, bypassing the challenge solver.
func (c *Client) FetchAPI(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, kindAPI, url, "")
}

// FetchAsset fetches a binary asset directly with referer set.
func (c *Client) FetchAsset(ctx context.Context, url, referer string) (*Response, error) {
	return c.do(ctx, kindAsset, url, referer)
}

// Backoff returns the extra wait after a 429 on the given 0-based attempt:
// base * 2^attempt.
//
// Example:
//
//	Backoff(3*time.Second, 0) // 3s
//	Backoff(3*time.Second, 4) // 48s
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return base * time.Duration(1<<uint(attempt))
}

func (c *Client) do(ctx context.Context, kind requestKind, url, referer string) (*Response, error) {
	fetcher := c.direct
	if kind == kindPage && c.solver != nil {
		fetcher = c.solver
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		id, err := c.pool.Next()
		if err != nil {
			c.logger.Error().Str("url", url).Int("attempt", attempt+1).Err(err).Msg("No proxies left")
			return nil, err
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if err := c.sleep(ctx, c.cfg.BaseDelay+c.jitter(c.cfg.JitterMin, c.cfg.JitterMax)); err != nil {
			return nil, err
		}

		req := &Request{
			URL:     url,
			Header:  headersFor(kind, id, referer),
			Proxy:   id.Proxy,
			Cookies: c.jar.Snapshot(),
		}

		// The attempt itself is not cancelled with ctx; it completes or
		// times out so no partial state is left behind.
		resp, err := fetcher.Fetch(context.WithoutCancel(ctx), req)
		if err == nil {
			err = checkResponse(kind, url, resp)
		}
		if err == nil {
			c.jar.Merge(resp.Cookies)
			return resp, nil
		}

		lastErr = err
		c.logger.Warn().
			Str("url", url).
			Str("kind", kind.String()).
			Str("proxy", id.Proxy).
			Int("attempt", attempt+1).
			Int("max_attempts", c.cfg.MaxAttempts).
			Err(err).
			Msg("Attempt failed")

		if attempt == c.cfg.MaxAttempts-1 {
			break
		}

		if errors.Is(err, ErrRateLimited) {
			wait := Backoff(c.cfg.BaseDelay, attempt)
			c.logger.Warn().Str("url", url).Dur("wait", wait).Msg("Rate limited, backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if id.Proxy != "" && c.pool.Evict(id.Proxy) {
			c.logger.Warn().Str("proxy", id.Proxy).Int("remaining", c.pool.Remaining()).Msg("Evicted proxy")
		}
	}

	return nil, &AttemptsError{URL: url, Attempts: c.cfg.MaxAttempts, Err: lastErr}
}

func checkResponse(kind requestKind, url string, resp *Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if kind == kindPage && looksLikeChallenge(resp.Body) {
		return ErrChallenge
	}
	return nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jitter returns a uniform duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}
