package model

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"normal-name", "normal-name"},
		{"chapter:with:colons", "chapterwithcolons"},
		{"name<with>brackets", "namewithbrackets"},
		{"name/with\\slashes", "namewithslashes"},
		{"name|with|pipes", "namewithpipes"},
		{"name?with*wildcards", "namewithwildcards"},
		{"name\"with\"quotes", "namewithquotes"},
		{"multiple   spaces", "multiple spaces"},
		{"  padded\ttabs \n", "padded tabs"},
		{"Chapter 1: The  Beginning?", "Chapter 1 The Beginning"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeFileName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/a/b/001.png", ".png"},
		{"https://cdn.example.com/a/b/001.webp?token=abc", ".webp"},
		{"https://cdn.example.com/a/b/image", ".jpg"},
		{"https://cdn.example.com/", ".jpg"},
		{"://bad", ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := ExtFromURL(tt.url, ".jpg"); got != tt.want {
				t.Errorf("ExtFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestAssetPath(t *testing.T) {
	dir := filepath.Join("out", "Chapter 1")

	got := AssetPath(dir, 7, "https://cdn.example.com/p/7.png", ".jpg")
	want := filepath.Join(dir, "007.png")
	if got != want {
		t.Errorf("AssetPath() = %q, want %q", got, want)
	}

	got = AssetPath(dir, 12, "https://cdn.example.com/p/noext", ".jpg")
	want = filepath.Join(dir, "012.jpg")
	if got != want {
		t.Errorf("AssetPath() = %q, want %q", got, want)
	}
}

func TestNewAsset(t *testing.T) {
	unit := &Unit{URL: "https://site.example/chap-1"}

	asset := NewAsset(unit, "dir", 2, AssetRef{URL: "https://cdn.example/2.gif"}, ".jpg")
	if asset.Path != filepath.Join("dir", "002.gif") {
		t.Errorf("Path = %q", asset.Path)
	}
	if asset.Referer != unit.URL {
		t.Errorf("Referer = %q, want %q", asset.Referer, unit.URL)
	}
	if asset.UnitKey != unit.URL {
		t.Errorf("UnitKey = %q, want %q", asset.UnitKey, unit.URL)
	}

	inline := NewAsset(unit, "dir", 1, AssetRef{URL: unit.URL, Ext: ".txt", Data: []byte("x")}, ".jpg")
	if inline.Path != filepath.Join("dir", "001.txt") {
		t.Errorf("inline Path = %q", inline.Path)
	}
}

func TestUnit_Key(t *testing.T) {
	byURL := &Unit{URL: "https://site.example/c/1"}
	if byURL.Key() != "https://site.example/c/1" {
		t.Errorf("Key() = %q", byURL.Key())
	}

	byID := &Unit{ID: "abc-123", URL: "https://api.example/at-home/abc-123"}
	if byID.Key() != "abc-123" {
		t.Errorf("Key() = %q", byID.Key())
	}
}

func TestUnit_FallbackName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://site.example/truyen/one-piece/chap-1", "chap-1"},
		{"https://site.example/truyen/one-piece/chap-2/", "chap-2"},
		{"https://site.example", "https://site.example"},
	}

	for _, tt := range tests {
		u := &Unit{URL: tt.url}
		if got := u.FallbackName(); got != tt.want {
			t.Errorf("FallbackName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestUnitStatus(t *testing.T) {
	tests := []struct {
		name                      string
		downloaded, queued, total int
		want                      Status
	}{
		{"all present", 5, 0, 5, StatusCompleted},
		{"partial", 3, 2, 5, StatusIncomplete},
		{"nothing and queued", 0, 1, 1, StatusFailed},
		{"nothing found", 0, 0, 0, StatusIncomplete},
		{"cancelled midway", 2, 0, 5, StatusIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnitStatus(tt.downloaded, tt.queued, tt.total); got != tt.want {
				t.Errorf("UnitStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetryItems(t *testing.T) {
	unit := &Unit{URL: "u"}
	item := UnitRetry(unit, errors.New("boom"))
	if item.Kind != RetryUnit || item.Unit != unit || item.Reason != "boom" {
		t.Errorf("unexpected unit retry: %+v", item)
	}

	asset := &Asset{URL: "a"}
	item = AssetRetry(asset, nil)
	if item.Kind != RetryAsset || item.Asset != asset || item.Reason != "" {
		t.Errorf("unexpected asset retry: %+v", item)
	}
	if item.Kind.String() != "asset" {
		t.Errorf("String() = %q", item.Kind.String())
	}
}
