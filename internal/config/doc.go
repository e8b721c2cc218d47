// Package config provides configuration management for neko-downloader.
//
// This package handles:
//   - Loading and saving settings from JSON or TOML files
//   - Default configuration values
//   - Conversion to the fetch client policy and source configuration
//
// # Default Settings
//
// Use DefaultSettings() to get the stock defaults:
//
//	settings := config.DefaultSettings()
//	// 2 units in parallel, 5 attempts per request
//	// 3s base delay plus 1–3s jitter, 0.5–1.5s between assets
//	// progress.json and cookies.json inside the output directory
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.toml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//	if err := settings.Validate(); err != nil {
//	    return err
//	}
//
// # Saving Settings
//
//	settings.Proxies = []string{"http://10.0.0.1:3128"}
//	err := settings.Save("/path/to/config.json")
//
// Durations are stored as fractional seconds. Relative cookie, progress and
// log paths are resolved against OutputDir.
package config
