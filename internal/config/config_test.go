package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
	if cfg.Backend != "auto" {
		t.Errorf("Backend = %q, want auto", cfg.Backend)
	}
	if cfg.Scan.TimeoutSeconds != 10 {
		t.Errorf("Scan.TimeoutSeconds = %v, want 10", cfg.Scan.TimeoutSeconds)
	}
	if cfg.Keys.IntervalMs != 10 {
		t.Errorf("Keys.IntervalMs = %d, want 10", cfg.Keys.IntervalMs)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeTempConfig(t, `
backend: bluez
device:
  address: "AA:BB:CC:DD:EE:FF"
  name: Pad
scan:
  timeout_seconds: 5.5
keys:
  interval_ms: 25
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend != "bluez" {
		t.Errorf("Backend = %q, want bluez", cfg.Backend)
	}
	if cfg.Device.Address != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Device.Address = %q", cfg.Device.Address)
	}
	if cfg.Device.Name != "Pad" {
		t.Errorf("Device.Name = %q", cfg.Device.Name)
	}
	if cfg.Scan.TimeoutSeconds != 5.5 {
		t.Errorf("Scan.TimeoutSeconds = %v, want 5.5", cfg.Scan.TimeoutSeconds)
	}
	if cfg.Keys.IntervalMs != 25 {
		t.Errorf("Keys.IntervalMs = %d, want 25", cfg.Keys.IntervalMs)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeTempConfig(t, `
device:
  address: "AA:BB:CC:DD:EE:FF"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend != "auto" {
		t.Errorf("Backend = %q, want default auto", cfg.Backend)
	}
	if cfg.Keys.IntervalMs != 10 {
		t.Errorf("Keys.IntervalMs = %d, want default 10", cfg.Keys.IntervalMs)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.LogLevel)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() of missing file returned nil error")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeTempConfig(t, "backend: [not: closed")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() of malformed yaml returned nil error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad backend", func(c *Config) { c.Backend = "bleak" }, "backend"},
		{"zero scan timeout", func(c *Config) { c.Scan.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"interval too short", func(c *Config) { c.Keys.IntervalMs = 5 }, "interval_ms"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	cfg.Scan.TimeoutSeconds = 2.5
	cfg.Keys.IntervalMs = 30

	if got := cfg.ScanTimeout(); got != 2500*time.Millisecond {
		t.Errorf("ScanTimeout() = %v, want 2.5s", got)
	}
	if got := cfg.KeyInterval(); got != 30*time.Millisecond {
		t.Errorf("KeyInterval() = %v, want 30ms", got)
	}
}
