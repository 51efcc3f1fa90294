// Package config loads and validates the .happo.yaml project configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the project configuration.
type Config struct {
	// Project is the project identifier used in reports.
	Project string `yaml:"project"`

	// Endpoint is the comparison service endpoint.
	Endpoint string `yaml:"endpoint,omitempty"`

	// APIKey and APISecret authenticate uploads and remote execution.
	// Normally supplied via HAPPO_API_KEY / HAPPO_API_SECRET.
	APIKey    string `yaml:"api_key,omitempty"`
	APISecret string `yaml:"api_secret,omitempty"`

	// Prerender selects local rendering before packaging. When false the
	// remote side renders from a single shared static package.
	Prerender *bool `yaml:"prerender,omitempty"`

	// StaticDir is the directory packaged once up front in direct mode.
	StaticDir string `yaml:"static_dir,omitempty"`

	// ExamplesDir holds prerendered example markup, one directory per
	// component with one <variant>.html per example.
	ExamplesDir string `yaml:"examples_dir,omitempty"`

	Targets     []Target         `yaml:"targets"`
	Stylesheets []StylesheetDecl `yaml:"stylesheets,omitempty"`

	Upload  UploadConfig  `yaml:"upload,omitempty"`
	Watch   WatchConfig   `yaml:"watch,omitempty"`
	Events  EventsConfig  `yaml:"events,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// Target declares a rendering/comparison environment.
type Target struct {
	Name           string `yaml:"name"`
	Browser        string `yaml:"browser,omitempty"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`

	// CSS is an optional target-specific stylesheet appended after the
	// base CSS blocks when packaging for this target.
	CSS string `yaml:"css,omitempty"`
}

// UploadConfig selects and configures the asset package uploader.
type UploadConfig struct {
	// Kind is "s3" or "local".
	Kind   string `yaml:"kind,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Region string `yaml:"region,omitempty"`
	// Dir is the destination directory for the local uploader.
	Dir string `yaml:"dir,omitempty"`
}

// WatchConfig configures continuous mode.
type WatchConfig struct {
	// Entry is the directory handed to the dev bundler.
	Entry string `yaml:"entry,omitempty"`

	// QuietWindow and MaxDelay debounce change bursts before a bundle is
	// considered ready.
	QuietWindow Duration `yaml:"quiet_window,omitempty"`
	MaxDelay    Duration `yaml:"max_delay,omitempty"`

	// RequireAck gates the next build on user acknowledgment so terminal
	// output can be inspected before it is overwritten.
	RequireAck bool `yaml:"require_ack,omitempty"`

	// FullRebuildEvery optionally schedules a forced rebuild.
	FullRebuildEvery Duration `yaml:"full_rebuild_every,omitempty"`

	// ListenAddr serves /metrics and /status while watching.
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// EventsConfig configures the optional NATS build-event publisher.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// HistoryConfig configures the run-history store.
type HistoryConfig struct {
	// Path is the sqlite database file. Empty disables history.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// IsPrerender reports the effective rendering mode (prerender by default).
func (c *Config) IsPrerender() bool {
	return c.Prerender == nil || *c.Prerender
}

// Load reads, expands, defaults, and validates the configuration file.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides lets the environment win over file values for
// credentials and endpoint, matching CI usage.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HAPPO_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("HAPPO_API_SECRET"); v != "" {
		c.APISecret = v
	}
	if v := os.Getenv("HAPPO_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
}
