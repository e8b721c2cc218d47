package source

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/handiism/neko-downloader/internal/http"
	"github.com/handiism/neko-downloader/internal/model"
)

var (
	// ErrNoUnits is returned when a series page lists no units.
	ErrNoUnits = errors.New("no units found")

	// ErrNoAssets is returned when a unit document yields no assets.
	ErrNoAssets = errors.New("no assets found")
)

// PageFetcher retrieves one document with the fetch client's retry policy.
type PageFetcher func(ctx context.Context, url string) (*http.Response, error)

// UnitContent is what a unit document resolves to.
type UnitContent struct {
	// Title is the unit title found in the document. Empty means the caller
	// should fall back to the unit name.
	Title string

	Assets []model.AssetRef
}

// ContentSource lists units of a series and assets of a unit.
type ContentSource interface {
	Name() string

	// ListUnits resolves root into a series with its units in source order.
	ListUnits(ctx context.Context, root string, fetch PageFetcher) (*model.Series, error)

	// ListAssets extracts the ordered assets of unit from its fetched
	// document. Asset URLs are absolute.
	ListAssets(unit *model.Unit, page *http.Response) (*UnitContent, error)
}

// APISource is implemented by sources whose documents are JSON API
// responses. Their pages are fetched directly instead of through a
// challenge solver.
type APISource interface {
	ContentSource
	IsAPI() bool
}

// IsAPI reports whether src fetches its documents from a JSON API.
func IsAPI(src ContentSource) bool {
	api, ok := src.(APISource)
	return ok && api.IsAPI()
}

// Config selects and parameterizes sources.
type Config struct {
	// Profiles are additional selector profiles, keyed by name. They
	// override built-ins of the same name.
	Profiles map[string]Profile

	// Language is the MangaDex translated language filter.
	Language string

	// MangaDexURL overrides the MangaDex API base URL.
	MangaDexURL string
}

// New returns the source registered under name.
func New(name string, cfg Config) (ContentSource, error) {
	switch name {
	case MangaDexName:
		return NewMangaDex(cfg.MangaDexURL, cfg.Language), nil
	case HakoName:
		return NewHako(), nil
	}

	if p, ok := cfg.profiles()[name]; ok {
		return NewSelectorSource(p)
	}
	return nil, fmt.Errorf("unknown source profile %q", name)
}

// Names returns every source name New accepts, sorted.
func Names(cfg Config) []string {
	names := slices.Collect(maps.Keys(cfg.profiles()))
	names = append(names, MangaDexName, HakoName)
	slices.Sort(names)
	return slices.Compact(names)
}

func (c Config) profiles() map[string]Profile {
	all := BuiltinProfiles()
	maps.Copy(all, c.Profiles)
	return all
}
