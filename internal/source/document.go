package source

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/handiism/neko-downloader/internal/http"
)

// parseDocument decodes an HTML response to UTF-8 and parses it.
func parseDocument(page *http.Response) (*goquery.Document, error) {
	var reader io.Reader = bytes.NewReader(page.Body)
	if utf8Reader, err := charset.NewReader(reader, page.Header.Get("Content-Type")); err == nil {
		reader = utf8Reader
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page.URL, err)
	}
	return doc, nil
}

// resolveURL makes ref absolute against base. Unparsable refs are returned
// trimmed as-is.
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// pageURL is the URL relative links of page resolve against.
func pageURL(page *http.Response, fallback string) string {
	if page.URL != "" {
		return page.URL
	}
	return fallback
}

func firstText(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(doc.Find(selector).First().Text())
}
