// Package model defines the core data structures used throughout
// the neko-downloader application.
//
// # Series and Units
//
// A Series is what a content source resolves a root URL to: a title and an
// ordered list of units (chapters).
//
//	series := &model.Series{Title: "One Piece", Units: units}
//	for _, u := range series.Units {
//	    fmt.Println(u.Key(), u.Name)
//	}
//
// # Assets
//
// An Asset is one downloadable file of a unit. Its local path is derived
// from its 1-based index and the URL's extension, so re-running a unit finds
// files that are already on disk:
//
//	path := model.AssetPath("/out/One Piece/Chapter 1", 3, "https://cdn/x/p3.png", ".jpg")
//	// path = "/out/One Piece/Chapter 1/003.png"
//
// # Status
//
// Unit progress moves pending → fetching → completed | incomplete | failed.
// Only the aggregate unit status is persisted; assets are ephemeral.
package model
