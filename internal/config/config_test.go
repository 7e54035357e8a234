// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
api:
  base_url: "https://rail.example.com"
  timeout: "20s"

realtime:
  enabled: true
  namespace: "/schedules"
  dial_timeout: "5s"

storage:
  path: "./creds.db"
  key_path: "./device.key"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://rail.example.com" {
		t.Errorf("expected base_url https://rail.example.com, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 20*time.Second {
		t.Errorf("expected timeout 20s, got %v", cfg.API.Timeout)
	}
	if !cfg.Realtime.Enabled {
		t.Error("expected realtime enabled")
	}
	if cfg.Realtime.DialTimeout != 5*time.Second {
		t.Errorf("expected dial_timeout 5s, got %v", cfg.Realtime.DialTimeout)
	}
	if cfg.Storage.Path != "./creds.db" {
		t.Errorf("expected storage path ./creds.db, got %s", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format json, got %s", cfg.Logging.Format)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "warn"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base_url, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", cfg.API.Timeout)
	}
	if cfg.Realtime.Namespace != DefaultNamespace {
		t.Errorf("expected default namespace, got %s", cfg.Realtime.Namespace)
	}

	// Storage defaults resolve next to the config file
	dir := filepath.Dir(configPath)
	if cfg.Storage.Path != filepath.Join(dir, "credentials.db") {
		t.Errorf("expected storage path next to config, got %s", cfg.Storage.Path)
	}
	if cfg.Storage.KeyPath != filepath.Join(dir, "device.key") {
		t.Errorf("expected key path next to config, got %s", cfg.Storage.KeyPath)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("RAILBOARD_TEST_URL", "https://env.example.com")

	configPath := writeConfig(t, `
api:
  base_url: "${RAILBOARD_TEST_URL}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://env.example.com" {
		t.Errorf("expected env-expanded base_url, got %s", cfg.API.BaseURL)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
api:
  timeout: "not-a-duration"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "api.timeout") {
		t.Errorf("expected error to mention api.timeout, got: %v", err)
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  format: "xml"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid log format")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default("/tmp/railboard")

	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base_url, got %s", cfg.API.BaseURL)
	}
	if cfg.Storage.Path != filepath.Join("/tmp/railboard", "credentials.db") {
		t.Errorf("unexpected storage path: %s", cfg.Storage.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}
