package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	// Scan configuration
	Scan ScanConfig `yaml:"scan" json:"scan" validate:"required"`

	// Output configuration
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// ScanConfig holds probe run settings
type ScanConfig struct {
	// Number of random public addresses to generate when no
	// explicit target source is configured
	Count int `yaml:"count" json:"count" validate:"min=1"`

	// Per-address probe budget in milliseconds, split evenly
	// across the configured ports
	TimeoutMS int `yaml:"timeout_ms" json:"timeout_ms" validate:"min=1"`

	// Maximum number of concurrent probes
	Workers int `yaml:"workers" json:"workers" validate:"min=1"`

	// Probe dispatch rate in addresses per second
	Rate int `yaml:"rate" json:"rate" validate:"min=1"`

	// Ports to attempt on each address, comma separated,
	// ranges allowed (e.g. "80,443,8000-8010")
	Ports string `yaml:"ports" json:"ports" validate:"required"`

	// CIDR blocks to expand into host addresses instead of
	// random generation
	CIDR []string `yaml:"cidr" json:"cidr"`

	// Path to a file of addresses to probe instead of random
	// generation
	File string `yaml:"file" json:"file"`

	// Simulate probes instead of opening real connections
	Simulate bool `yaml:"simulate" json:"simulate"`
}

// OutputConfig holds result sink settings
type OutputConfig struct {
	// Path of the hit log file
	LogPath string `yaml:"log_path" json:"log_path"`

	// Path of the clean list file (bare addresses only)
	CleanPath string `yaml:"clean_path" json:"clean_path"`

	// Write hits as JSON lines instead of plain log lines
	JSON bool `yaml:"json" json:"json"`

	// Suppress per-hit terminal output
	Quiet bool `yaml:"quiet" json:"quiet"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig holds metrics endpoint settings
type MetricsConfig struct {
	// Enable the Prometheus metrics endpoint
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Listen address for the metrics endpoint
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// System metrics refresh interval
	UpdateInterval time.Duration `yaml:"update_interval" json:"update_interval"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Count:     1000,
			TimeoutMS: 1500,
			Workers:   64,
			Rate:      500,
			Ports:     "80,443,22,8080",
			CIDR:      nil,
			File:      "",
			Simulate:  false,
		},
		Output: OutputConfig{
			LogPath:   "pulse_results.log",
			CleanPath: "found_ips.txt",
			JSON:      false,
			Quiet:     false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:        false,
			ListenAddr:     "127.0.0.1:9464",
			UpdateInterval: 15 * time.Second,
		},
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	// Start with defaults
	config := Default()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // Return defaults if no config file
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to YAML
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write file
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid value for %s: failed %s constraint", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// A zero dispatch rate or zero workers would stall the run
	// before the first probe, so reject them explicitly even
	// though the struct tags already cover the common case.
	if c.Scan.Rate <= 0 {
		return fmt.Errorf("scan rate must be positive, got %d", c.Scan.Rate)
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.Scan.Workers)
	}

	if len(c.Scan.CIDR) > 0 && c.Scan.File != "" {
		return fmt.Errorf("cidr and file target sources are mutually exclusive")
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics listen address is required when metrics are enabled")
	}

	return nil
}

// Timeout returns the per-address probe budget as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Scan.TimeoutMS) * time.Millisecond
}

// HasExplicitTargets returns true when addresses come from a CIDR
// list or a file rather than random generation
func (c *Config) HasExplicitTargets() bool {
	return len(c.Scan.CIDR) > 0 || c.Scan.File != ""
}

// GetLogOutput returns the log output destination
func (c *Config) GetLogOutput() string {
	return c.Logging.Output
}
