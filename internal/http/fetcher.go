package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Request is a single attempt as handed to a Fetcher.
type Request struct {
	URL     string
	Header  http.Header
	Proxy   string
	Cookies map[string]string
}

// Response is a fully read response.
type Response struct {
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Cookies    []*http.Cookie
}

// Fetcher performs exactly one network attempt, without retries.
//
// The default Fetcher uses net/http; a challenge solver such as
// BrowserSolver is another Fetcher used for HTML pages only.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// transportFetcher issues plain net/http requests, keeping one client per
// proxy so connections are reused between attempts through the same proxy.
type transportFetcher struct {
	timeout time.Duration

	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewTransportFetcher creates the default Fetcher with a per-request timeout.
func NewTransportFetcher(timeout time.Duration) Fetcher {
	return &transportFetcher{
		timeout: timeout,
		clients: make(map[string]*http.Client),
	}
}

func (f *transportFetcher) client(proxy string) (*http.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[proxy]; ok {
		return c, nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	c := &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
	}
	f.clients[proxy] = c
	return c, nil
}

func (f *transportFetcher) Fetch(ctx context.Context, r *Request) (*Response, error) {
	c, err := f.client(r.Proxy)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, err
	}
	for name, values := range r.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	applyCookies(req, r.Cookies)

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", r.URL, err)
	}

	return &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Cookies:    resp.Cookies(),
	}, nil
}
