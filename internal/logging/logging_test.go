package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	assert.Equal(t, "neko_downloader_20240309_140507.log", FileName(ts))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew_WritesRunFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

	l := New(Options{Level: "info", Dir: dir, RunID: "run-1", Now: now})
	l.Info().Str("unit", "c1").Msg("Unit completed")
	l.Debug().Msg("hidden")
	require.NoError(t, l.Close())

	assert.Equal(t, filepath.Join(dir, "neko_downloader_20240102_030405.log"), l.Path)
	data, err := os.ReadFile(l.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run":"run-1"`)
	assert.Contains(t, string(data), "Unit completed")
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_GeneratesRunID(t *testing.T) {
	l := Discard()
	assert.Len(t, l.RunID, 36)
	assert.Empty(t, l.Path)
	assert.NoError(t, l.Close())
}
