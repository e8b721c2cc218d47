package model

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Series is a resolved source root: a title plus its ordered units.
type Series struct {
	// Root is the locator the series was resolved from.
	Root string

	// Title is the human-readable series name, used for the series folder.
	Title string

	// Units are the chapters of the series, in source order.
	Units []*Unit
}

// Unit is one addressable chunk of content within a series, e.g. a chapter.
//
// ID and URL are stable across runs; Key is what the progress store uses.
type Unit struct {
	// ID is a source-assigned identifier. Empty for sources that identify
	// units by URL.
	ID string

	// URL locates the document describing the unit's assets.
	URL string

	// Name is the display name found while listing units. Sources may
	// refine it once the unit page is fetched.
	Name string

	// Status is the in-memory processing state.
	Status Status
}

// Key returns the identity used for progress tracking.
func (u *Unit) Key() string {
	if u.ID != "" {
		return u.ID
	}
	return u.URL
}

// FallbackName returns the last path segment of the unit URL, used when no
// title could be extracted.
func (u *Unit) FallbackName() string {
	parsed, err := url.Parse(u.URL)
	if err != nil || parsed.Path == "" {
		return u.Key()
	}
	base := path.Base(strings.TrimRight(parsed.Path, "/"))
	if base == "." || base == "/" || base == "" {
		return u.Key()
	}
	return base
}

// AssetRef describes one asset as returned by a content source.
type AssetRef struct {
	// URL is the absolute asset URL. For inline assets it is the page the
	// content was extracted from.
	URL string

	// Ext overrides the extension derived from URL, including the dot.
	Ext string

	// Data holds inline content extracted from the unit page. Inline assets
	// are written without a network call.
	Data []byte
}

// Asset is an AssetRef bound to a unit and a local path.
type Asset struct {
	UnitKey string
	URL     string
	Referer string
	Path    string
	Data    []byte
}

// NewAsset binds ref to a unit directory using its 1-based index.
func NewAsset(unit *Unit, unitDir string, index int, ref AssetRef, defaultExt string) *Asset {
	ext := ref.Ext
	if ext == "" {
		ext = ExtFromURL(ref.URL, defaultExt)
	}
	return &Asset{
		UnitKey: unit.Key(),
		URL:     ref.URL,
		Referer: unit.URL,
		Path:    filepath.Join(unitDir, IndexedName(index, ext)),
		Data:    ref.Data,
	}
}

// AssetPath computes the deterministic local path of an asset.
func AssetPath(unitDir string, index int, assetURL, defaultExt string) string {
	return filepath.Join(unitDir, IndexedName(index, ExtFromURL(assetURL, defaultExt)))
}

// IndexedName returns the zero-padded file name for a 1-based index.
func IndexedName(index int, ext string) string {
	return fmt.Sprintf("%03d%s", index, ext)
}

// ExtFromURL returns the extension of the URL path, or defaultExt when the
// path has none.
func ExtFromURL(rawURL, defaultExt string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return defaultExt
	}
	ext := path.Ext(parsed.Path)
	if ext == "" || ext == "." {
		return defaultExt
	}
	return ext
}

var (
	invalidNameChars = regexp.MustCompile(`[\\/*?:"<>|]`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// SanitizeFileName strips characters that are invalid in file and folder
// names and collapses whitespace.
//
// The characters \ / * ? : " < > | are removed. Runs of whitespace become a
// single space and the result is trimmed.
//
// Example:
//
//	SanitizeFileName("Chapter 1: The  Beginning?") // "Chapter 1 The Beginning"
func SanitizeFileName(name string) string {
	name = invalidNameChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
