// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and PROFILES_* env vars.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the scoring API root; /upload and /download hang off it.
	APIBaseURL string `koanf:"api_base_url"`

	// APITimeoutMS bounds every call to the scoring API.
	APITimeoutMS int `koanf:"api_timeout_ms"`

	// PageSize is the number of profiles per table page.
	PageSize int `koanf:"page_size"`

	// SiblingCount is the page window on each side of the current page.
	SiblingCount int `koanf:"sibling_count"`

	// DownloadName is the file name the processed spreadsheet is saved under.
	DownloadName string `koanf:"download_name"`

	// MaxUploadMB caps the accepted spreadsheet size.
	MaxUploadMB int `koanf:"max_upload_mb"`

	// SessionCapacity bounds the in-memory session registry (<= 0 unbounded).
	SessionCapacity int `koanf:"session_capacity"`

	// AcceptedExtensions lists the file extensions the picker accepts.
	AcceptedExtensions []string `koanf:"accepted_extensions"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		APIBaseURL:         "http://localhost:8000",
		APITimeoutMS:       120_000,
		PageSize:           10,
		SiblingCount:       1,
		DownloadName:       "profiles_with_scores.xlsx",
		MaxUploadMB:        32,
		SessionCapacity:    10_000,
		AcceptedExtensions: []string{".xlsx", ".xls"},
	}
}

// APITimeout returns APITimeoutMS as a duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutMS) * time.Millisecond
}

// MaxUploadBytes returns MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
