package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/neko-downloader/internal/model"
)

func TestHako_ListUnits(t *testing.T) {
	root := "https://ln.hako.example/truyen/11727-villainess"
	body := `<html><body>
<span class="series-name"><a href="#">The Villainess</a></span>
<div class="chapter-name"><a href="/truyen/11727/c1" title="Chapter 1: Start">Ch 1</a></div>
<div class="chapter-name"><a href="/truyen/11727/c2" title="Chapter 2: Middle">Ch 2</a></div>
<div class="chapter-name"><span>no link</span></div>
</body></html>`

	series, err := NewHako().ListUnits(context.Background(), root, pages{root: body}.fetch)
	require.NoError(t, err)

	assert.Equal(t, "The Villainess", series.Title)
	require.Len(t, series.Units, 2)
	assert.Equal(t, "https://ln.hako.example/truyen/11727/c1", series.Units[0].URL)
	assert.Equal(t, "Chapter 1: Start", series.Units[0].Name)
}

func TestHako_ListAssetsNumberedParagraphs(t *testing.T) {
	unit := &model.Unit{URL: "https://ln.hako.example/truyen/11727/c1", Name: "Chapter 1"}
	body := `<html><body>
<div id="chapter-content">
  <p id="1">First line.</p>
  <p id="2">Second line.</p>
  <p id="note">Not a paragraph.</p>
</div>
</body></html>`

	content, err := NewHako().ListAssets(unit, page(unit.URL, body))
	require.NoError(t, err)

	require.Len(t, content.Assets, 1)
	asset := content.Assets[0]
	assert.Equal(t, ".txt", asset.Ext)
	assert.Equal(t, unit.URL, asset.URL)
	assert.Equal(t, "Chapter 1\n\nFirst line.\n\nSecond line.\n\n", string(asset.Data))
}

func TestHako_ListAssetsReadabilityFallback(t *testing.T) {
	unit := &model.Unit{URL: "https://ln.hako.example/truyen/11727/c2", Name: "Chapter 2"}
	body := `<html><head><title>Chapter 2</title></head><body>
<article>
  <p>It was a dark and stormy night, and the rain fell in torrents across the empty city streets.</p>
  <p>Except at occasional intervals, when it was checked by a violent gust of wind which swept up the streets.</p>
  <p>The scanty flame of the lamps struggled against the darkness, rattling along the housetops.</p>
</article>
</body></html>`

	content, err := NewHako().ListAssets(unit, page(unit.URL, body))
	require.NoError(t, err)
	require.Len(t, content.Assets, 1)
	assert.Contains(t, string(content.Assets[0].Data), "dark and stormy night")
	assert.Contains(t, string(content.Assets[0].Data), "Chapter 2\n\n")
}
