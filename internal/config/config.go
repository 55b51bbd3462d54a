// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of the defaults.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ProviderBaseURL is the root of the OpenF1-compatible session-data API.
	ProviderBaseURL string `koanf:"provider_base_url"`

	// ProviderTimeoutMS bounds every upstream HTTP request.
	ProviderTimeoutMS int `koanf:"provider_timeout_ms"`

	// CacheDir holds the on-disk response cache. Empty disables caching.
	CacheDir string `koanf:"cache_dir"`

	// CacheTTLHours expires cached responses; 0 keeps them forever.
	CacheTTLHours int `koanf:"cache_ttl_hours"`

	// CacheMaxEntries bounds the response cache; 0 means unbounded.
	CacheMaxEntries int `koanf:"cache_max_entries"`

	// SessionMemoSize bounds the number of session handles kept in memory.
	SessionMemoSize int `koanf:"session_memo_size"`
}

// New creates a Config with defaults. The context is reserved for loaders
// that need one and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		ProviderBaseURL:   "https://api.openf1.org",
		ProviderTimeoutMS: 30_000,
		CacheDir:          filepath.Join(os.TempDir(), "perfectlap-cache"),
		CacheTTLHours:     0,
		CacheMaxEntries:   10_000,
		SessionMemoSize:   16,
	}
}

// ProviderTimeout returns ProviderTimeoutMS as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLHours as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}
