// Package http provides the fetch client used for every network call of a run.
//
// The Client in this package handles:
//   - Politeness jitter before every attempt
//   - Retry with exponential backoff on HTTP 429
//   - Identity rotation and proxy eviction through an identity.Pool
//   - A process-wide cookie jar, replayed on each request and updated from
//     each response
//   - Distinct request paths for HTML pages (optionally through a challenge
//     solver such as a headless browser), API documents and binary assets
//
// # Basic Usage
//
//	pool := identity.NewPool(proxies)
//	jar, _ := http.LoadCookieJar("cookies.json")
//	client := http.NewClient(http.DefaultConfig(), pool, jar)
//
//	page, err := client.FetchPage(ctx, "https://site.example/truyen/one-piece")
//	img, err := client.FetchAsset(ctx, imageURL, page.URL)
//
//	_ = jar.Save("cookies.json")
//
// # Errors
//
// Non-2xx responses surface as *StatusError; 429 matches ErrRateLimited.
// When attempts run out the terminal error is wrapped in *AttemptsError.
// identity.ErrProxiesExhausted is returned unwrapped and must abort the run.
package http
