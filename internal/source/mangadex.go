package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/handiism/neko-downloader/internal/http"
	"github.com/handiism/neko-downloader/internal/model"
)

const (
	MangaDexName = "mangadex"

	// DefaultMangaDexURL is the public MangaDex API.
	DefaultMangaDexURL = "https://api.mangadex.org"

	defaultLanguage = "vi"
)

var (
	mangaDexTitleID = regexp.MustCompile(`/title/([a-f0-9\-]+)`)
	mangaDexBareID  = regexp.MustCompile(`^[a-f0-9\-]+$`)
)

// MangaDex lists chapters through the aggregate endpoint and images through
// the at-home server endpoint.
type MangaDex struct {
	baseURL  string
	language string
}

// NewMangaDex creates the MangaDex source. Empty arguments select the public
// API and Vietnamese translations.
func NewMangaDex(baseURL, language string) *MangaDex {
	if baseURL == "" {
		baseURL = DefaultMangaDexURL
	}
	if language == "" {
		language = defaultLanguage
	}
	return &MangaDex{baseURL: strings.TrimRight(baseURL, "/"), language: language}
}

func (m *MangaDex) Name() string { return MangaDexName }

func (m *MangaDex) IsAPI() bool { return true }

// MangaID extracts the manga id from a title URL, or accepts a bare id.
func MangaID(root string) (string, error) {
	root = strings.TrimSpace(root)
	if match := mangaDexTitleID.FindStringSubmatch(root); match != nil {
		return match[1], nil
	}
	if mangaDexBareID.MatchString(root) {
		return root, nil
	}
	return "", fmt.Errorf("invalid MangaDex title URL %q", root)
}

type aggregateResponse struct {
	Volumes json.RawMessage `json:"volumes"`
}

type aggregateVolume struct {
	Volume   string          `json:"volume"`
	Chapters json.RawMessage `json:"chapters"`
}

type aggregateChapter struct {
	Chapter string `json:"chapter"`
	ID      string `json:"id"`
}

func (m *MangaDex) ListUnits(ctx context.Context, root string, fetch PageFetcher) (*model.Series, error) {
	id, err := MangaID(root)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/manga/%s/aggregate?%s", m.baseURL, id,
		url.Values{"translatedLanguage[]": {m.language}}.Encode())
	resp, err := fetch(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch chapter list: %w", err)
	}

	var agg aggregateResponse
	if err := json.Unmarshal(resp.Body, &agg); err != nil {
		return nil, fmt.Errorf("decode aggregate: %w", err)
	}

	// Empty collections are encoded as [] instead of {}.
	volumes, err := decodeKeyed[aggregateVolume](agg.Volumes)
	if err != nil {
		return nil, fmt.Errorf("decode volumes: %w", err)
	}

	series := &model.Series{Root: root, Title: "manga_" + id}
	for _, volKey := range sortedNumericKeys(volumes) {
		vol := volumes[volKey]
		chapters, err := decodeKeyed[aggregateChapter](vol.Chapters)
		if err != nil {
			return nil, fmt.Errorf("decode chapters of volume %s: %w", volKey, err)
		}
		for _, chKey := range sortedNumericKeys(chapters) {
			ch := chapters[chKey]
			if ch.ID == "" {
				continue
			}
			series.Units = append(series.Units, &model.Unit{
				ID:     ch.ID,
				URL:    m.baseURL + "/at-home/server/" + ch.ID,
				Name:   fmt.Sprintf("volume_%s chapter_%s", volKey, chKey),
				Status: model.StatusPending,
			})
		}
	}

	if len(series.Units) == 0 {
		return series, fmt.Errorf("manga %s (%s): %w", id, m.language, ErrNoUnits)
	}
	return series, nil
}

type atHomeResponse struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash string   `json:"hash"`
		Data []string `json:"data"`
	} `json:"chapter"`
}

func (m *MangaDex) ListAssets(unit *model.Unit, page *http.Response) (*UnitContent, error) {
	var home atHomeResponse
	if err := json.Unmarshal(page.Body, &home); err != nil {
		return nil, fmt.Errorf("decode at-home response for %s: %w", unit.Key(), err)
	}

	content := &UnitContent{Title: unit.Name}
	for _, file := range home.Chapter.Data {
		content.Assets = append(content.Assets, model.AssetRef{
			URL: fmt.Sprintf("%s/data/%s/%s", strings.TrimRight(home.BaseURL, "/"), home.Chapter.Hash, file),
		})
	}

	if len(content.Assets) == 0 {
		return content, fmt.Errorf("chapter %s: %w", unit.Key(), ErrNoAssets)
	}
	return content, nil
}

func decodeKeyed[T any](raw json.RawMessage) (map[string]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '[' || bytes.Equal(raw, []byte("null")) {
		return map[string]T{}, nil
	}
	var out map[string]T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// sortedNumericKeys orders keys by numeric value. Non-numeric keys such as
// "none" sort last, alphabetically.
func sortedNumericKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		fa, errA := strconv.ParseFloat(a, 64)
		fb, errB := strconv.ParseFloat(b, 64)
		switch {
		case errA == nil && errB == nil:
			if fa != fb {
				if fa < fb {
					return -1
				}
				return 1
			}
			return strings.Compare(a, b)
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
	return keys
}
