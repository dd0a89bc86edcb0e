// ABOUTME: Configuration loading and parsing for the agent chat client
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete client configuration.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Chat     ChatConfig     `yaml:"chat"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EndpointConfig holds the backend endpoint configuration.
type EndpointConfig struct {
	URL       string `yaml:"url"`
	AuthToken string `yaml:"auth_token"`

	RequestTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// ChatConfig holds conversation defaults.
type ChatConfig struct {
	// UserID is forwarded on every run so backend memory is scoped per user.
	UserID string `yaml:"user_id"`
	// Streaming selects the streaming run path; false uses single-shot turns.
	Streaming *bool `yaml:"streaming"`
}

// CacheConfig holds the local session-cache configuration.
type CacheConfig struct {
	// Path of the SQLite cache database. Empty disables local caching.
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultEndpointURL is used when no endpoint is configured; it matches the
// playground backend's default listen address.
const DefaultEndpointURL = "http://localhost:7777"

// Default returns a configuration with all defaults applied and no file
// loaded.
func Default() *Config {
	streaming := true
	return &Config{
		Endpoint: EndpointConfig{
			URL:            DefaultEndpointURL,
			RequestTimeout: 30 * time.Second,
		},
		Chat:    ChatConfig{Streaming: &streaming},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config with defaults applied. Environment variables in the format
// ${VAR_NAME} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Endpoint.URL == "" {
		return fmt.Errorf("endpoint.url is required")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// StreamingEnabled reports whether streaming runs are enabled; unset means
// enabled.
func (c *ChatConfig) StreamingEnabled() bool {
	return c.Streaming == nil || *c.Streaming
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	if cfg.Endpoint.RequestTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Endpoint.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Endpoint.RequestTimeoutRaw, err)
		}
		cfg.Endpoint.RequestTimeout = d
	}

	return nil
}
