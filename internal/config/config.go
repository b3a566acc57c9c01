// ABOUTME: Configuration loading and parsing for lab-auth
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete lab-auth configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds session and rate-limit configuration.
type AuthConfig struct {
	SessionDuration time.Duration `yaml:"-"`
	RateLimitWindow time.Duration `yaml:"-"`
	SweepInterval   time.Duration `yaml:"-"`

	RateLimitAttempts int `yaml:"rate_limit_attempts"`

	// Raw string values for YAML unmarshaling
	SessionDurationRaw string `yaml:"session_duration"`
	RateLimitWindowRaw string `yaml:"rate_limit_window"`
	SweepIntervalRaw   string `yaml:"sweep_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the corresponding fields are absent.
const (
	DefaultSessionDuration   = 24 * time.Hour
	DefaultRateLimitAttempts = 5
	DefaultRateLimitWindow   = 60 * time.Second
	DefaultSweepInterval     = time.Hour
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

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
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
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.RateLimitAttempts < 0 {
		return fmt.Errorf("auth.rate_limit_attempts must not be negative")
	}

	return nil
}

// applyDefaults fills in defaults for absent auth settings.
func (c *Config) applyDefaults() {
	if c.Auth.SessionDuration == 0 {
		c.Auth.SessionDuration = DefaultSessionDuration
	}
	if c.Auth.RateLimitAttempts == 0 {
		c.Auth.RateLimitAttempts = DefaultRateLimitAttempts
	}
	if c.Auth.RateLimitWindow == 0 {
		c.Auth.RateLimitWindow = DefaultRateLimitWindow
	}
	if c.Auth.SweepInterval == 0 {
		c.Auth.SweepInterval = DefaultSweepInterval
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.SessionDurationRaw != "" {
		cfg.Auth.SessionDuration, err = time.ParseDuration(cfg.Auth.SessionDurationRaw)
		if err != nil {
			return fmt.Errorf("parsing session_duration %q: %w", cfg.Auth.SessionDurationRaw, err)
		}
	}

	if cfg.Auth.RateLimitWindowRaw != "" {
		cfg.Auth.RateLimitWindow, err = time.ParseDuration(cfg.Auth.RateLimitWindowRaw)
		if err != nil {
			return fmt.Errorf("parsing rate_limit_window %q: %w", cfg.Auth.RateLimitWindowRaw, err)
		}
	}

	if cfg.Auth.SweepIntervalRaw != "" {
		cfg.Auth.SweepInterval, err = time.ParseDuration(cfg.Auth.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing sweep_interval %q: %w", cfg.Auth.SweepIntervalRaw, err)
		}
	}

	return nil
}
