package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/handiism/neko-downloader/internal/http"
	"github.com/handiism/neko-downloader/internal/model"
)

// Profile is a set of CSS selectors describing one HTML site.
type Profile struct {
	Name string `yaml:"name"`

	// SeriesTitle selects the series title on the root page.
	SeriesTitle string `yaml:"series_title"`

	// UnitLinks selects the anchors of every unit on the root page.
	UnitLinks string `yaml:"unit_links"`

	// UnitTitle selects the unit title on a unit page.
	UnitTitle string `yaml:"unit_title"`

	// Assets selects the asset elements on a unit page.
	Assets string `yaml:"assets"`

	// AssetAttrs are tried in order for the asset URL.
	AssetAttrs []string `yaml:"asset_attrs"`
}

// DefaultSeriesTitle is used when the series title selector matches nothing.
const DefaultSeriesTitle = "manga"

// Validate checks the selectors every profile needs.
func (p Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if p.UnitLinks == "" {
		errs = append(errs, errors.New("unit_links is required"))
	}
	if p.Assets == "" {
		errs = append(errs, errors.New("assets is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return nil
}

func (p Profile) withDefaults() Profile {
	if p.SeriesTitle == "" {
		p.SeriesTitle = `h1[itemprop="name"]`
	}
	if p.UnitTitle == "" {
		p.UnitTitle = "h1"
	}
	if len(p.AssetAttrs) == 0 {
		p.AssetAttrs = []string{"src", "data-src"}
	}
	return p
}

// BuiltinProfiles returns the selector profiles shipped with the downloader.
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"nettruyen": {
			Name:      "nettruyen",
			UnitLinks: ".col-xs-5.chapter a[href]",
			Assets:    "img.lozad",
		},
		"truyenqq": {
			Name:      "truyenqq",
			UnitLinks: "div.works-chapter-list a[href]",
			Assets:    "img.lazy",
		},
	}
}

// SelectorSource is a ContentSource driven by a Profile.
type SelectorSource struct {
	profile Profile
}

// NewSelectorSource creates a source for p.
func NewSelectorSource(p Profile) (*SelectorSource, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &SelectorSource{profile: p.withDefaults()}, nil
}

func (s *SelectorSource) Name() string {
	return s.profile.Name
}

func (s *SelectorSource) ListUnits(ctx context.Context, root string, fetch PageFetcher) (*model.Series, error) {
	page, err := fetch(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("fetch series page: %w", err)
	}
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	series := &model.Series{Root: root, Title: firstText(doc, s.profile.SeriesTitle)}
	if series.Title == "" {
		series.Title = DefaultSeriesTitle
	}

	base := pageURL(page, root)
	seen := make(map[string]bool)
	doc.Find(s.profile.UnitLinks).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		unitURL := resolveURL(base, href)
		if seen[unitURL] {
			return
		}
		seen[unitURL] = true

		name := strings.TrimSpace(sel.Text())
		if name == "" {
			name, _ = sel.Attr("title")
		}
		series.Units = append(series.Units, &model.Unit{URL: unitURL, Name: strings.TrimSpace(name), Status: model.StatusPending})
	})

	if len(series.Units) == 0 {
		return series, fmt.Errorf("%s: %w", root, ErrNoUnits)
	}
	return series, nil
}

func (s *SelectorSource) ListAssets(unit *model.Unit, page *http.Response) (*UnitContent, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	content := &UnitContent{Title: firstText(doc, s.profile.UnitTitle)}
	base := pageURL(page, unit.URL)
	doc.Find(s.profile.Assets).Each(func(_ int, sel *goquery.Selection) {
		if src := s.assetURL(sel); src != "" {
			content.Assets = append(content.Assets, model.AssetRef{URL: resolveURL(base, src)})
		}
	})

	if len(content.Assets) == 0 {
		return content, fmt.Errorf("%s: %w", unit.URL, ErrNoAssets)
	}
	return content, nil
}

// assetURL returns the first usable attribute value. Inline data URIs are
// lazy-load placeholders and are skipped.
func (s *SelectorSource) assetURL(sel *goquery.Selection) string {
	for _, attr := range s.profile.AssetAttrs {
		v := strings.TrimSpace(sel.AttrOr(attr, ""))
		if v == "" || strings.HasPrefix(v, "data:") {
			continue
		}
		return v
	}
	return ""
}
