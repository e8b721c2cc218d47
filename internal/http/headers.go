package http

import (
	"bytes"
	"net/http"

	"github.com/handiism/neko-downloader/internal/identity"
)

// requestKind selects headers and the fetch path for a request.
type requestKind int

const (
	kindPage requestKind = iota
	kindAPI
	kindAsset
)

func (k requestKind) String() string {
	switch k {
	case kindPage:
		return "page"
	case kindAPI:
		return "api"
	default:
		return "asset"
	}
}

// headersFor builds browser-grade headers for one attempt.
func headersFor(kind requestKind, id identity.Identity, referer string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", id.UserAgent)
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Connection", "keep-alive")

	switch kind {
	case kindPage:
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		h.Set("Upgrade-Insecure-Requests", "1")
		h.Set("Cache-Control", "max-age=0")
	case kindAPI:
		h.Set("Accept", "application/json")
	case kindAsset:
		h.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")
	}

	if referer != "" {
		h.Set("Referer", referer)
	}
	return h
}

var challengeMarkers = [][]byte{
	[]byte("cf-browser-verification"),
	[]byte("<title>Just a moment...</title>"),
	[]byte("Attention Required! | Cloudflare"),
}

// looksLikeChallenge reports whether an HTML body is an anti-bot
// interstitial rather than content.
func looksLikeChallenge(body []byte) bool {
	for _, marker := range challengeMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}
