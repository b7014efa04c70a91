// ABOUTME: Configuration loading and parsing for ticketd
// ABOUTME: Supports YAML, TOML or JSONC files with environment variable expansion and duration parsing

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config represents the complete ticketd configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server" json:"server"`
	Auth    AuthConfig    `yaml:"auth" toml:"auth" json:"auth"`
	Tickets TicketsConfig `yaml:"tickets" toml:"tickets" json:"tickets"`
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	HTTPAddr          string        `yaml:"http_addr" toml:"http_addr" json:"http_addr"`
	ReadHeaderTimeout time.Duration `yaml:"-" toml:"-" json:"-"`
	ShutdownTimeout   time.Duration `yaml:"-" toml:"-" json:"-"`

	// Raw string values for unmarshaling
	ReadHeaderTimeoutRaw string `yaml:"read_header_timeout" toml:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeoutRaw   string `yaml:"shutdown_timeout" toml:"shutdown_timeout" json:"shutdown_timeout"`
}

// AuthConfig holds the identity cookie and the demo login account
type AuthConfig struct {
	CookieName    string `yaml:"cookie_name" toml:"cookie_name" json:"cookie_name"`
	DemoUsername  string `yaml:"demo_username" toml:"demo_username" json:"demo_username"`
	DemoPassword  string `yaml:"demo_password" toml:"demo_password" json:"demo_password"`
	DemoSubjectID uint64 `yaml:"demo_subject_id" toml:"demo_subject_id" json:"demo_subject_id"`
}

// TicketsConfig holds ticket store policy
type TicketsConfig struct {
	// OwnerScoped filters listing to the caller and forbids deleting others' tickets
	OwnerScoped bool `yaml:"owner_scoped" toml:"owner_scoped" json:"owner_scoped"`
	// MaxTitleLength caps ticket titles in bytes; 0 means no limit
	MaxTitleLength int `yaml:"max_title_length" toml:"max_title_length" json:"max_title_length"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" toml:"level" json:"level"`
	Format       string `yaml:"format" toml:"format" json:"format"`
	RequestQueue int    `yaml:"request_queue" toml:"request_queue" json:"request_queue"`
}

// Default returns a runnable configuration matching the demo setup.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:             "127.0.0.1:8080",
			ReadHeaderTimeout:    10 * time.Second,
			ShutdownTimeout:      5 * time.Second,
			ReadHeaderTimeoutRaw: "10s",
			ShutdownTimeoutRaw:   "5s",
		},
		Auth: AuthConfig{
			CookieName:    "auth-token",
			DemoUsername:  "demo1",
			DemoPassword:  "welcome",
			DemoSubjectID: 1,
		},
		Tickets: TicketsConfig{
			MaxTitleLength: 256,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "text",
			RequestQueue: 1024,
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Fields missing from the file keep their Default values. Files ending in
// .toml are parsed as TOML, .json and .jsonc as JSON with comments allowed,
// anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expandedData, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON([]byte(expandedData)), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path if it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, bool, error) {
	if path == "" {
		return Default(), false, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), false, nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// WriteYAML writes cfg to path as YAML, creating parent directories.
func WriteYAML(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
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
	if c.Auth.CookieName == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	if c.Auth.DemoUsername == "" {
		return fmt.Errorf("auth.demo_username is required")
	}
	if c.Tickets.MaxTitleLength < 0 {
		return fmt.Errorf("tickets.max_title_length must not be negative")
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

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Server.ReadHeaderTimeoutRaw != "" {
		cfg.Server.ReadHeaderTimeout, err = time.ParseDuration(cfg.Server.ReadHeaderTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing read_header_timeout %q: %w", cfg.Server.ReadHeaderTimeoutRaw, err)
		}
	}

	if cfg.Server.ShutdownTimeoutRaw != "" {
		cfg.Server.ShutdownTimeout, err = time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
		}
	}

	return nil
}
