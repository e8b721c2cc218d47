package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/neko-downloader/internal/identity"
)

// scriptedFetcher answers attempts from a list of canned results.
type scriptedFetcher struct {
	mu       sync.Mutex
	results  []scriptedResult
	fallback scriptedResult
	requests []*Request
}

type scriptedResult struct {
	status  int
	body    string
	cookies []*http.Cookie
	err     error
}

func (f *scriptedFetcher) Fetch(_ context.Context, r *Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r)
	res := f.fallback
	if len(f.results) > 0 {
		res = f.results[0]
		f.results = f.results[1:]
	}
	if res.err != nil {
		return nil, res.err
	}
	return &Response{URL: r.URL, StatusCode: res.status, Body: []byte(res.body), Cookies: res.cookies}, nil
}

func (f *scriptedFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func noJitter(_, _ time.Duration) time.Duration { return 0 }

func firstIndex(int) int { return 0 }

func newTestClient(cfg Config, pool *identity.Pool, f Fetcher, rec *sleepRecorder, opts ...Option) *Client {
	if rec == nil {
		rec = &sleepRecorder{}
	}
	opts = append([]Option{WithFetcher(f), WithSleep(rec.sleep), WithJitter(noJitter)}, opts...)
	return NewClient(cfg, pool, NewCookieJar(), opts...)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 3 * time.Second},
		{1, 6 * time.Second},
		{2, 12 * time.Second},
		{3, 24 * time.Second},
		{4, 48 * time.Second},
		{-1, 3 * time.Second},
	}

	for _, tt := range tests {
		got := Backoff(3*time.Second, tt.attempt)
		if got != tt.want {
			t.Errorf("Backoff(3s, %d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestClient_RateLimitBackoffSequence(t *testing.T) {
	f := &scriptedFetcher{
		results: []scriptedResult{
			{status: 429}, {status: 429}, {status: 429}, {status: 429}, {status: 429},
			{status: 200, body: "ok"},
		},
	}
	rec := &sleepRecorder{}
	cfg := Config{MaxAttempts: 6, BaseDelay: 3 * time.Second}
	client := newTestClient(cfg, identity.NewPool([]string{"http://p1:8080"}), f, rec)

	resp, err := client.FetchAsset(context.Background(), "https://cdn.example/001.jpg", "https://site.example/c1")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))

	s := time.Second
	assert.Equal(t, []time.Duration{3 * s, 3 * s, 3 * s, 6 * s, 3 * s, 12 * s, 3 * s, 24 * s, 3 * s, 48 * s, 3 * s}, rec.sleeps)
	assert.Equal(t, 6, f.calls())
	assert.False(t, client.pool.Evicted("http://p1:8080"), "429 must not evict the proxy")
}

func TestClient_EvictsFailingProxy(t *testing.T) {
	f := &scriptedFetcher{
		results: []scriptedResult{
			{err: errors.New("connection refused")},
			{status: 200, body: "page"},
		},
	}
	pool := identity.NewPool([]string{"http://p1:8080", "http://p2:8080"}, identity.WithRand(firstIndex))
	client := newTestClient(Config{MaxAttempts: 3}, pool, f, nil)

	_, err := client.FetchAPI(context.Background(), "https://api.example/x")
	require.NoError(t, err)

	require.Len(t, f.requests, 2)
	assert.Equal(t, "http://p1:8080", f.requests[0].Proxy)
	assert.Equal(t, "http://p2:8080", f.requests[1].Proxy)
	assert.True(t, pool.Evicted("http://p1:8080"))
	assert.Equal(t, 1, pool.Remaining())
}

func TestClient_ProxyExhaustion(t *testing.T) {
	f := &scriptedFetcher{fallback: scriptedResult{err: errors.New("timeout")}}
	pool := identity.NewPool([]string{"http://only:8080"})
	client := newTestClient(Config{MaxAttempts: 5}, pool, f, nil)

	_, err := client.FetchPage(context.Background(), "https://site.example/")
	require.ErrorIs(t, err, identity.ErrProxiesExhausted)
	assert.Equal(t, 1, f.calls())

	// Later requests fail before any network call.
	_, err = client.FetchAsset(context.Background(), "https://cdn.example/1.jpg", "")
	require.ErrorIs(t, err, identity.ErrProxiesExhausted)
	assert.Equal(t, 1, f.calls())
}

func TestClient_AttemptsExhausted(t *testing.T) {
	f := &scriptedFetcher{fallback: scriptedResult{status: 500}}
	client := newTestClient(Config{MaxAttempts: 2}, identity.NewPool(nil), f, nil)

	_, err := client.FetchAsset(context.Background(), "https://cdn.example/1.jpg", "")
	require.Error(t, err)

	var attemptsErr *AttemptsError
	require.ErrorAs(t, err, &attemptsErr)
	assert.Equal(t, 2, attemptsErr.Attempts)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 500, statusErr.StatusCode)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestClient_ChallengePageIsRetried(t *testing.T) {
	f := &scriptedFetcher{
		results: []scriptedResult{
			{status: 200, body: "<html><title>Just a moment...</title></html>"},
			{status: 200, body: "<html><h1>Chapter 1</h1></html>"},
		},
	}
	client := newTestClient(Config{MaxAttempts: 3}, identity.NewPool(nil), f, nil)

	resp, err := client.FetchPage(context.Background(), "https://site.example/c1")
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "Chapter 1")
	assert.Equal(t, 2, f.calls())
}

func TestClient_SolverOnlyForPages(t *testing.T) {
	direct := &scriptedFetcher{fallback: scriptedResult{status: 200, body: "direct"}}
	solver := &scriptedFetcher{fallback: scriptedResult{status: 200, body: "solved"}}
	client := newTestClient(Config{MaxAttempts: 1}, identity.NewPool(nil), direct, nil, WithChallengeSolver(solver))

	page, err := client.FetchPage(context.Background(), "https://site.example/c1")
	require.NoError(t, err)
	assert.Equal(t, "solved", string(page.Body))

	asset, err := client.FetchAsset(context.Background(), "https://cdn.example/1.jpg", "https://site.example/c1")
	require.NoError(t, err)
	assert.Equal(t, "direct", string(asset.Body))

	api, err := client.FetchAPI(context.Background(), "https://api.example/x")
	require.NoError(t, err)
	assert.Equal(t, "direct", string(api.Body))
}

func TestClient_CancelledBeforeAttempt(t *testing.T) {
	f := &scriptedFetcher{fallback: scriptedResult{status: 200}}
	client := newTestClient(Config{MaxAttempts: 3, BaseDelay: time.Second}, identity.NewPool(nil), f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPage(ctx, "https://site.example/")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.calls())
}

func TestClient_MergesCookies(t *testing.T) {
	f := &scriptedFetcher{
		results: []scriptedResult{
			{status: 200, cookies: []*http.Cookie{{Name: "cf_clearance", Value: "abc"}}},
			{status: 200},
		},
	}
	client := newTestClient(Config{MaxAttempts: 1}, identity.NewPool(nil), f, nil)

	_, err := client.FetchPage(context.Background(), "https://site.example/")
	require.NoError(t, err)
	assert.Equal(t, "abc", client.Jar().Snapshot()["cf_clearance"])

	_, err = client.FetchAsset(context.Background(), "https://cdn.example/1.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cf_clearance": "abc"}, f.requests[1].Cookies)
}

func TestClient_TransportHeaders(t *testing.T) {
	var (
		mu      sync.Mutex
		headers []http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Clone())
		mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1"})
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	pool := identity.NewPool(nil, identity.WithUserAgents([]string{"test-agent/1.0"}))
	client := NewClient(Config{MaxAttempts: 1, Timeout: 5 * time.Second}, pool, nil,
		WithSleep(func(context.Context, time.Duration) error { return nil }))

	_, err := client.FetchPage(context.Background(), srv.URL+"/chapter-1")
	require.NoError(t, err)
	_, err = client.FetchAsset(context.Background(), srv.URL+"/001.jpg", srv.URL+"/chapter-1")
	require.NoError(t, err)

	require.Len(t, headers, 2)
	assert.Equal(t, "test-agent/1.0", headers[0].Get("User-Agent"))
	assert.Contains(t, headers[0].Get("Accept"), "text/html")
	assert.Empty(t, headers[0].Get("Referer"))

	assert.Contains(t, headers[1].Get("Accept"), "image/")
	assert.Equal(t, srv.URL+"/chapter-1", headers[1].Get("Referer"))
	assert.Contains(t, headers[1].Get("Cookie"), "session=s1")
}

func TestLooksLikeChallenge(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{"<html><title>Just a moment...</title></html>", true},
		{`<div id="cf-browser-verification">`, true},
		{"<title>Attention Required! | Cloudflare</title>", true},
		{"<html><h1>Chapter 5</h1></html>", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := looksLikeChallenge([]byte(tt.body)); got != tt.want {
			t.Errorf("looksLikeChallenge(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestStatusError_Is(t *testing.T) {
	assert.ErrorIs(t, &StatusError{StatusCode: 429}, ErrRateLimited)
	assert.NotErrorIs(t, &StatusError{StatusCode: 503}, ErrRateLimited)
}
