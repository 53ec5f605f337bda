// Package testsupport provides helpers for building isolated configs and
// stores inside tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"ward/internal/config"
)

// ConfigOption allows callers to customize the generated test
// configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test, credentials filled with placeholders, and any options applied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"
	cfg.CitySearch.APIKey = "test"
	cfg.CitySearch.BaseURL = "https://search.invalid"
	cfg.Pulse.APIKey = "test"
	cfg.Pulse.BaseURL = "https://pulse.invalid"
	cfg.API.Bind = "127.0.0.1:0"
	cfg.API.Token = "test-token"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSource toggles individual sources on the test config.
func WithSource(citysearch, pulse, rss bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.CitySearch.Enabled = citysearch
		cfg.Pulse.Enabled = pulse
		cfg.RSS.Enabled = rss
	}
}

// WithWindow overrides the scheduling window on the test config.
func WithWindow(start, end int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Schedule.WindowStartHour = start
		cfg.Schedule.WindowEndHour = end
	}
}
