package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	cfg := s.ToClientConfig()
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.BaseDelay)
	assert.Equal(t, time.Second, cfg.JitterMin)
	assert.Equal(t, 3*time.Second, cfg.JitterMax)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2, s.MaxConcurrentUnits)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoad_JSONOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"output_dir": "/data/manga", "max_attempts": 7, "base_delay": 0.5}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/manga", s.OutputDir)
	assert.Equal(t, 7, s.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, s.ToClientConfig().BaseDelay)
	assert.Equal(t, 2, s.MaxConcurrentUnits, "unset fields keep defaults")
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
output_dir = "out"
profile = "mangadex"
proxies = ["http://p1:8080", "http://p2:8080"]
progress_backend = "badger"
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mangadex", s.Profile)
	assert.Equal(t, []string{"http://p1:8080", "http://p2:8080"}, s.Proxies)
	assert.Equal(t, filepath.Join("out", "progress.db"), s.ProgressPath())
	assert.Equal(t, filepath.Join("out", "cookies.json"), s.CookiesPath())
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_attempts": "many"}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			s := DefaultSettings()
			s.Proxies = []string{"http://10.0.0.1:3128"}
			s.ChallengeSolver = "browser"
			require.NoError(t, s.Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, s, loaded)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"no output dir", func(s *Settings) { s.OutputDir = "" }},
		{"zero workers", func(s *Settings) { s.MaxConcurrentUnits = 0 }},
		{"zero attempts", func(s *Settings) { s.MaxAttempts = 0 }},
		{"negative delay", func(s *Settings) { s.BaseDelay = -1 }},
		{"inverted jitter", func(s *Settings) { s.JitterMin, s.JitterMax = 3, 1 }},
		{"inverted pacing", func(s *Settings) { s.AssetPacingMin, s.AssetPacingMax = 2, 1 }},
		{"bad backend", func(s *Settings) { s.ProgressBackend = "sqlite" }},
		{"bad solver", func(s *Settings) { s.ChallengeSolver = "captcha" }},
		{"bad log level", func(s *Settings) { s.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestResolvePath(t *testing.T) {
	s := DefaultSettings()
	s.OutputDir = "/data"

	assert.Equal(t, filepath.Join("/data", "cookies.json"), s.ResolvePath("cookies.json"))
	assert.Equal(t, "/etc/cookies.json", s.ResolvePath("/etc/cookies.json"))
	assert.Equal(t, "", s.ResolvePath(""))
	assert.Equal(t, filepath.Join("/data", "progress.json"), s.ProgressPath())
}

func TestToSourceConfig(t *testing.T) {
	s := DefaultSettings()
	cfg, err := s.ToSourceConfig()
	require.NoError(t, err)
	assert.Equal(t, "vi", cfg.Language)
	assert.Empty(t, cfg.Profiles)

	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles:\n  - {name: x, unit_links: a, assets: img}\n"), 0o644))
	s.ProfilesFile = path
	cfg, err = s.ToSourceConfig()
	require.NoError(t, err)
	assert.Contains(t, cfg.Profiles, "x")
}
