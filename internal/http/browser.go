package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserSolver fetches HTML pages through headless Chrome so JavaScript
// challenges are solved before the document is read.
//
// Each attempt starts a fresh browser with the attempt's User-Agent and
// proxy. Cookies set by the challenge are returned in the Response and end
// up in the shared CookieJar, so later plain requests reuse them.
type BrowserSolver struct {
	// Wait is how long the page is left to run its challenge script after
	// navigation completes.
	Wait time.Duration

	// Timeout bounds the whole browser session for one attempt.
	Timeout time.Duration

	// ExecPath overrides the Chrome binary. Empty uses chromedp's lookup.
	ExecPath string
}

// NewBrowserSolver creates a BrowserSolver.
func NewBrowserSolver(wait, timeout time.Duration) *BrowserSolver {
	return &BrowserSolver{Wait: wait, Timeout: timeout}
}

func (s *BrowserSolver) Fetch(ctx context.Context, r *Request) (*Response, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(r.Header.Get("User-Agent")),
		chromedp.WindowSize(1280, 900),
	)
	if r.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(r.Proxy))
	}
	if s.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.ExecPath))
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	headers := network.Headers{}
	for name := range r.Header {
		if name == "User-Agent" {
			continue
		}
		headers[name] = r.Header.Get(name)
	}

	setup := chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
	}
	if len(r.Cookies) > 0 {
		params := make([]*network.CookieParam, 0, len(r.Cookies))
		for name, value := range r.Cookies {
			params = append(params, &network.CookieParam{Name: name, Value: value, URL: r.URL})
		}
		setup = append(setup, network.SetCookies(params))
	}
	if err := chromedp.Run(tabCtx, setup); err != nil {
		return nil, fmt.Errorf("browser setup: %w", err)
	}

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(r.URL))
	if err != nil {
		return nil, fmt.Errorf("browser navigate %s: %w", r.URL, err)
	}

	var (
		html     string
		location string
		cookies  []*network.Cookie
	)
	err = chromedp.Run(tabCtx,
		chromedp.Sleep(s.Wait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs([]string{location}).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser read %s: %w", r.URL, err)
	}

	status := http.StatusOK
	if resp != nil {
		status = int(resp.Status)
	}
	// The interstitial answers 403/503 and then reloads into the real page.
	if (status == http.StatusForbidden || status == http.StatusServiceUnavailable) && !looksLikeChallenge([]byte(html)) {
		status = http.StatusOK
	}

	return &Response{
		URL:        location,
		StatusCode: status,
		Header:     responseHeaders(resp),
		Body:       []byte(html),
		Cookies:    convertCookies(cookies),
	}, nil
}

func responseHeaders(resp *network.Response) http.Header {
	h := http.Header{}
	if resp == nil {
		return h
	}
	for name, value := range resp.Headers {
		h.Set(name, fmt.Sprint(value))
	}
	return h
}

func convertCookies(in []*network.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		cookie := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, cookie)
	}
	return out
}
