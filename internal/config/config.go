// Package config loads the YAML configuration for bleboard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Backend  string       `yaml:"backend"` // "auto", "tinygo" or "bluez"
	Device   DeviceConfig `yaml:"device"`
	Scan     ScanConfig   `yaml:"scan"`
	Keys     KeyConfig    `yaml:"keys"`
	LogLevel string       `yaml:"log_level"`
}

// DeviceConfig identifies the peer to connect to when no device is
// picked interactively.
type DeviceConfig struct {
	Address string `yaml:"address"` // MAC, or CoreBluetooth UUID on macOS
	Name    string `yaml:"name"`    // informational only
}

// ScanConfig holds discovery settings.
type ScanConfig struct {
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
}

// KeyConfig holds keystroke timing settings.
type KeyConfig struct {
	IntervalMs int `yaml:"interval_ms"` // pause between press and release
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bleboard")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend: "auto",
		Scan: ScanConfig{
			TimeoutSeconds: 10,
		},
		Keys: KeyConfig{
			IntervalMs: 10,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ScanTimeout returns the scan window as a duration.
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.Scan.TimeoutSeconds * float64(time.Second))
}

// KeyInterval returns the press/release pause as a duration.
func (c *Config) KeyInterval() time.Duration {
	return time.Duration(c.Keys.IntervalMs) * time.Millisecond
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Backend {
	case "auto", "tinygo", "bluez":
	default:
		return fmt.Errorf("backend must be \"auto\", \"tinygo\" or \"bluez\", got %q", c.Backend)
	}

	if c.Scan.TimeoutSeconds <= 0 {
		return fmt.Errorf("scan.timeout_seconds must be > 0")
	}

	if c.Keys.IntervalMs < 10 {
		return fmt.Errorf("keys.interval_ms must be >= 10 (hosts debounce shorter taps)")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}
