package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/handiism/neko-downloader/internal/http"
	"github.com/handiism/neko-downloader/internal/model"
)

const (
	HakoName = "hako"

	defaultNovelTitle = "LightNovel"
)

// Hako downloads light novels. Each chapter becomes a single text asset
// holding the chapter title followed by its paragraphs.
type Hako struct{}

// NewHako creates the hako source.
func NewHako() *Hako { return &Hako{} }

func (h *Hako) Name() string { return HakoName }

func (h *Hako) ListUnits(ctx context.Context, root string, fetch PageFetcher) (*model.Series, error) {
	page, err := fetch(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("fetch novel page: %w", err)
	}
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	series := &model.Series{Root: root, Title: firstText(doc, ".series-name")}
	if series.Title == "" {
		series.Title = defaultNovelTitle
	}

	base := pageURL(page, root)
	seen := make(map[string]bool)
	doc.Find(".chapter-name a").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}
		unitURL := resolveURL(base, href)
		if seen[unitURL] {
			return
		}
		seen[unitURL] = true

		title := strings.TrimSpace(sel.AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(sel.Text())
		}
		series.Units = append(series.Units, &model.Unit{URL: unitURL, Name: title, Status: model.StatusPending})
	})

	if len(series.Units) == 0 {
		return series, fmt.Errorf("%s: %w", root, ErrNoUnits)
	}
	return series, nil
}

func (h *Hako) ListAssets(unit *model.Unit, page *http.Response) (*UnitContent, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	title := unit.Name
	if title == "" {
		title = firstText(doc, "h4.title-item")
	}

	paragraphs := numberedParagraphs(doc)
	if len(paragraphs) == 0 {
		paragraphs, err = readableParagraphs(page, unit.URL)
		if err != nil {
			return nil, err
		}
	}
	if len(paragraphs) == 0 {
		return &UnitContent{Title: title}, fmt.Errorf("%s: %w", unit.URL, ErrNoAssets)
	}

	var text strings.Builder
	text.WriteString(title)
	text.WriteString("\n\n")
	for _, p := range paragraphs {
		text.WriteString(p)
		text.WriteString("\n\n")
	}

	return &UnitContent{
		Title: title,
		Assets: []model.AssetRef{{
			URL:  pageURL(page, unit.URL),
			Ext:  ".txt",
			Data: []byte(text.String()),
		}},
	}, nil
}

// numberedParagraphs collects the text of elements whose id is an integer,
// the markup hako uses for chapter paragraphs.
func numberedParagraphs(doc *goquery.Document) []string {
	var out []string
	doc.Find("[id]").Each(func(_ int, sel *goquery.Selection) {
		if _, err := strconv.Atoi(sel.AttrOr("id", "")); err != nil {
			return
		}
		out = append(out, sel.Text())
	})
	return out
}

func readableParagraphs(page *http.Response, fallbackURL string) ([]string, error) {
	parsed, err := url.Parse(pageURL(page, fallbackURL))
	if err != nil {
		return nil, fmt.Errorf("parse chapter URL: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(page.Body)), parsed)
	if err != nil {
		return nil, fmt.Errorf("extract chapter text: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, fmt.Errorf("parse chapter text: %w", err)
	}

	var out []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			out = append(out, t)
		}
	})
	if len(out) == 0 {
		if t := strings.TrimSpace(doc.Text()); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
