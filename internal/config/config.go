// Package config defines run settings and the source/topic catalog.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - Failures wrap ErrInvalidConfig or ErrLoadConfig so callers can use errors.Is.
package config

import (
	"fmt"
	"time"
)

// DisabledOutput turns off an artifact path when used as its value.
const DisabledOutput = "-"

// Config contains the settings for one pipeline run.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// ConfigDir holds topics, news_sources and the optional agent settings file.
	ConfigDir string `koanf:"config_dir"`

	// SampleDataDir holds offline_articles.json for offline runs.
	SampleDataDir string `koanf:"sample_data_dir"`

	// RequestTimeout is the per-source fetch timeout in seconds.
	RequestTimeout int `koanf:"request_timeout"`

	// MaxItemsPerSource caps entries taken from one feed. 0 means no cap.
	MaxItemsPerSource int `koanf:"max_items_per_source"`

	// WorkerCount bounds concurrent fetches.
	WorkerCount int `koanf:"worker_count"`

	UserAgent  string `koanf:"user_agent"`
	RetryCount int    `koanf:"retry_count"`

	// Limit caps the final ranked output. 0 means no limit.
	Limit int `koanf:"limit"`

	// Offline reads the fixture instead of fetching feeds.
	Offline bool `koanf:"offline"`

	OutputJSON     string `koanf:"output_json"`
	OutputMarkdown string `koanf:"output_markdown"`

	// Print writes the Markdown briefing to stdout.
	Print bool `koanf:"print"`

	// Optional outputs, disabled when empty.
	MetricsFile    string `koanf:"metrics_file"`
	ArchivePath    string `koanf:"archive_path"`
	PublishersFile string `koanf:"publishers_file"`

	// Addr is the listen address of the dashboard server.
	Addr string `koanf:"addr"`

	// Metrics naming. Labels are attached to every series; buckets apply to
	// the latency histograms.
	MetricsEnabled   bool              `koanf:"metrics_enabled"`
	MetricsNamespace string            `koanf:"metrics_namespace"`
	MetricsLabels    map[string]string `koanf:"metrics_labels"`
	MetricsBuckets   []float64         `koanf:"metrics_buckets"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		ConfigDir:         "config",
		SampleDataDir:     "sample_data",
		RequestTimeout:    20,
		MaxItemsPerSource: 0,
		WorkerCount:       4,
		UserAgent:         "compliance-radar/1.0",
		RetryCount:        0,
		Limit:             0,
		Offline:           false,
		OutputJSON:        "artifacts/data/latest.json",
		OutputMarkdown:    "artifacts/latest.md",
		Print:             true,
		Addr:              ":8080",
		MetricsEnabled:    true,
		MetricsNamespace:  "radar",
	}
}

// Timeout returns RequestTimeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.ConfigDir == "":
		return fmt.Errorf("%w: config_dir must not be empty", ErrInvalidConfig)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("%w: request_timeout must be positive, got %d", ErrInvalidConfig, c.RequestTimeout)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be at least 1, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.MaxItemsPerSource < 0:
		return fmt.Errorf("%w: max_items_per_source must not be negative, got %d", ErrInvalidConfig, c.MaxItemsPerSource)
	case c.Limit < 0:
		return fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidConfig, c.Limit)
	case c.RetryCount < 0:
		return fmt.Errorf("%w: retry_count must not be negative, got %d", ErrInvalidConfig, c.RetryCount)
	}
	return nil
}

// Enabled reports whether an artifact path is switched on.
func Enabled(path string) bool {
	return path != "" && path != DisabledOutput
}
