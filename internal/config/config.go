// ABOUTME: Configuration loading and parsing for the railboard client
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete railboard client configuration
type Config struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig holds settings for the remote schedule service
type APIConfig struct {
	BaseURL string `yaml:"base_url"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// RealtimeConfig holds push-channel settings
type RealtimeConfig struct {
	Enabled bool `yaml:"enabled"`
	// Namespace is the path of the push endpoint, e.g. "/schedules".
	Namespace string `yaml:"namespace"`

	DialTimeout time.Duration `yaml:"-"`

	DialTimeoutRaw string `yaml:"dial_timeout"`
}

// StorageConfig holds local credential storage settings
type StorageConfig struct {
	// Path is the credential database location. Defaults next to the config file.
	Path string `yaml:"path"`
	// KeyPath is the device key file used to encrypt stored credentials.
	KeyPath string `yaml:"key_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the config file omits a value.
const (
	DefaultBaseURL     = "http://localhost:3000"
	DefaultTimeout     = 15 * time.Second
	DefaultNamespace   = "/schedules"
	DefaultDialTimeout = 10 * time.Second
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied and storage
// rooted in the given directory. Used when no config file exists.
func Default(dir string) *Config {
	cfg := &Config{}
	cfg.applyDefaults(dir)
	return cfg
}

func (c *Config) applyDefaults(dir string) {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultTimeout
	}
	if c.Realtime.Namespace == "" {
		c.Realtime.Namespace = DefaultNamespace
	}
	if c.Realtime.DialTimeout == 0 {
		c.Realtime.DialTimeout = DefaultDialTimeout
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(dir, "credentials.db")
	}
	if c.Storage.KeyPath == "" {
		c.Storage.KeyPath = filepath.Join(dir, "device.key")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Realtime.Enabled && c.Realtime.Namespace == "" {
		return fmt.Errorf("realtime.namespace is required when realtime is enabled")
	}
	switch c.Logging.Format {
	case "", "text", "json", "color":
	default:
		return fmt.Errorf("logging.format must be text, json, or color, got %q", c.Logging.Format)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.API.TimeoutRaw != "" {
		cfg.API.Timeout, err = time.ParseDuration(cfg.API.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing api.timeout %q: %w", cfg.API.TimeoutRaw, err)
		}
	}

	if cfg.Realtime.DialTimeoutRaw != "" {
		cfg.Realtime.DialTimeout, err = time.ParseDuration(cfg.Realtime.DialTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing realtime.dial_timeout %q: %w", cfg.Realtime.DialTimeoutRaw, err)
		}
	}

	return nil
}
