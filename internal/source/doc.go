// Package source turns a series locator into units and a unit document into
// assets.
//
// A ContentSource knows one site (or one family of sites sharing markup).
// It never touches the network itself: ListUnits receives a PageFetcher and
// ListAssets receives the already fetched unit document, so retry, identity
// rotation and challenge solving stay in the fetch client.
//
// Built-in sources:
//   - nettruyen, truyenqq: CSS selector profiles over HTML pages
//   - mangadex: the MangaDex JSON API
//   - hako: light novel chapters rendered to a single text asset
//
// Further selector profiles can be loaded from YAML with LoadProfiles.
//
// # Basic Usage
//
//	src, err := source.New("nettruyen", source.Config{})
//	series, err := src.ListUnits(ctx, rootURL, client.FetchPage)
//	for _, unit := range series.Units {
//	    page, err := client.FetchPage(ctx, unit.URL)
//	    content, err := src.ListAssets(unit, page)
//	}
package source
