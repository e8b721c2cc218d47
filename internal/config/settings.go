package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/handiism/neko-downloader/internal/http"
	ioutils "github.com/handiism/neko-downloader/internal/io"
	"github.com/handiism/neko-downloader/internal/source"
)

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	OutputDir          string `json:"output_dir" toml:"output_dir"`
	Profile            string `json:"profile" toml:"profile"`
	ProfilesFile       string `json:"profiles_file" toml:"profiles_file"`
	SeriesFolder       bool   `json:"series_folder" toml:"series_folder"`
	MaxConcurrentUnits int    `json:"max_concurrent_units" toml:"max_concurrent_units"`
	DefaultExtension   string `json:"default_extension" toml:"default_extension"`
	VerifyImages       bool   `json:"verify_images" toml:"verify_images"`
	Language           string `json:"language" toml:"language"` // MangaDex translated language

	// Retry and pacing, in seconds
	MaxAttempts       int     `json:"max_attempts" toml:"max_attempts"`
	BaseDelay         float64 `json:"base_delay" toml:"base_delay"`
	JitterMin         float64 `json:"jitter_min" toml:"jitter_min"`
	JitterMax         float64 `json:"jitter_max" toml:"jitter_max"`
	AssetPacingMin    float64 `json:"asset_pacing_min" toml:"asset_pacing_min"`
	AssetPacingMax    float64 `json:"asset_pacing_max" toml:"asset_pacing_max"`
	RequestTimeout    float64 `json:"request_timeout" toml:"request_timeout"`
	RequestsPerSecond float64 `json:"requests_per_second" toml:"requests_per_second"` // 0 = unlimited

	// Identity settings
	Proxies []string `json:"proxies" toml:"proxies"`

	// Persistence, relative paths are resolved against OutputDir
	CookiesFile     string `json:"cookies_file" toml:"cookies_file"`
	ProgressFile    string `json:"progress_file" toml:"progress_file"`
	ProgressBackend string `json:"progress_backend" toml:"progress_backend"` // file, badger

	// Challenge solving
	ChallengeSolver string  `json:"challenge_solver" toml:"challenge_solver"` // none, browser
	BrowserWait     float64 `json:"browser_wait" toml:"browser_wait"`

	// Logging
	LogLevel  string `json:"log_level" toml:"log_level"` // debug, info, warn, error
	LogToFile bool   `json:"log_to_file" toml:"log_to_file"`
	LogDir    string `json:"log_dir" toml:"log_dir"`
}

const (
	defaultProgressFile = "progress.json"
	defaultProgressDB   = "progress.db"
)

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OutputDir:          "downloads",
		Profile:            "nettruyen",
		SeriesFolder:       true,
		MaxConcurrentUnits: 2,
		DefaultExtension:   ".jpg",
		VerifyImages:       false,
		Language:           "vi",

		MaxAttempts:       5,
		BaseDelay:         3,
		JitterMin:         1,
		JitterMax:         3,
		AssetPacingMin:    0.5,
		AssetPacingMax:    1.5,
		RequestTimeout:    30,
		RequestsPerSecond: 0,

		CookiesFile:     "cookies.json",
		ProgressFile:    defaultProgressFile,
		ProgressBackend: "file",

		ChallengeSolver: "none",
		BrowserWait:     5,

		LogLevel:  "info",
		LogToFile: true,
		LogDir:    "logs",
	}
}

// Load reads settings from a JSON file, or a TOML file when path ends in
// ".toml". A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isTOML(path) {
		err = toml.Unmarshal(data, settings)
	} else {
		err = json.Unmarshal(data, settings)
	}
	if err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to path in the format its extension selects.
func (s *Settings) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return ioutils.WriteFileAtomic(path, data)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Validate reports every invalid option.
func (s *Settings) Validate() error {
	var errs []error
	if s.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if s.MaxConcurrentUnits < 1 {
		errs = append(errs, errors.New("max_concurrent_units must be at least 1"))
	}
	if s.MaxAttempts < 1 {
		errs = append(errs, errors.New("max_attempts must be at least 1"))
	}
	if s.BaseDelay < 0 || s.JitterMin < 0 || s.AssetPacingMin < 0 || s.RequestTimeout < 0 || s.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("delays, timeouts and rates must not be negative"))
	}
	if s.JitterMax < s.JitterMin {
		errs = append(errs, errors.New("jitter_max must not be less than jitter_min"))
	}
	if s.AssetPacingMax < s.AssetPacingMin {
		errs = append(errs, errors.New("asset_pacing_max must not be less than asset_pacing_min"))
	}
	switch s.ProgressBackend {
	case "file", "badger":
	default:
		errs = append(errs, fmt.Errorf("progress_backend %q must be file or badger", s.ProgressBackend))
	}
	switch s.ChallengeSolver {
	case "none", "browser":
	default:
		errs = append(errs, fmt.Errorf("challenge_solver %q must be none or browser", s.ChallengeSolver))
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q must be debug, info, warn or error", s.LogLevel))
	}
	return errors.Join(errs...)
}

// ResolvePath joins a relative path onto OutputDir.
func (s *Settings) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.OutputDir, path)
}

// ProgressPath returns the resolved progress location. The badger backend
// stores a directory, so the default JSON file name is swapped for one.
func (s *Settings) ProgressPath() string {
	path := s.ProgressFile
	if s.ProgressBackend == "badger" && path == defaultProgressFile {
		path = defaultProgressDB
	}
	return s.ResolvePath(path)
}

// CookiesPath returns the resolved cookie jar location.
func (s *Settings) CookiesPath() string {
	return s.ResolvePath(s.CookiesFile)
}

// LogPath returns the resolved log directory.
func (s *Settings) LogPath() string {
	return s.ResolvePath(s.LogDir)
}

// ToClientConfig converts settings to the fetch client policy.
func (s *Settings) ToClientConfig() http.Config {
	return http.Config{
		MaxAttempts:       s.MaxAttempts,
		BaseDelay:         Seconds(s.BaseDelay),
		JitterMin:         Seconds(s.JitterMin),
		JitterMax:         Seconds(s.JitterMax),
		Timeout:           Seconds(s.RequestTimeout),
		RequestsPerSecond: s.RequestsPerSecond,
	}
}

// ToSourceConfig loads the profiles file, if any, into a source.Config.
func (s *Settings) ToSourceConfig() (source.Config, error) {
	cfg := source.Config{Language: s.Language}
	if s.ProfilesFile == "" {
		return cfg, nil
	}

	profiles, err := source.LoadProfiles(s.ProfilesFile)
	if err != nil {
		return cfg, err
	}
	cfg.Profiles = profiles
	return cfg, nil
}

// Seconds converts a float number of seconds to a Duration.
func Seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
