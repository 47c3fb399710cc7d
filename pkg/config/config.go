// Package config loads the server configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/actionapi/pkg/browser"
	"github.com/entrhq/actionapi/pkg/logging"
	"github.com/entrhq/actionapi/pkg/security/workspace"
)

// Config represents the configuration for the action server
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Browser BrowserConfig `yaml:"browser" json:"browser"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig defines the HTTP listener
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`

	// MaxConnections caps concurrent connections; 0 means unlimited
	MaxConnections int `yaml:"max_connections" json:"max_connections"`

	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// BrowserConfig defines session defaults and limits
type BrowserConfig struct {
	// DefaultKind is used when a start request names no browser
	DefaultKind string `yaml:"default_kind" json:"default_kind"`
	Headless    bool   `yaml:"headless" json:"headless"`

	MaxSessions   int           `yaml:"max_sessions" json:"max_sessions"`     // 0 means unlimited
	IdleTimeout   time.Duration `yaml:"idle_timeout" json:"idle_timeout"`     // 0 disables the idle janitor
	ActionTimeout time.Duration `yaml:"action_timeout" json:"action_timeout"` // default timeout for page operations

	// Install downloads the driver and browsers at startup
	Install bool `yaml:"install" json:"install"`

	// Navigation restrictions (glob patterns)
	AllowedURLs []string `yaml:"allowed_urls" json:"allowed_urls"`
	DeniedURLs  []string `yaml:"denied_urls" json:"denied_urls"`

	// UploadDir confines upload_file paths; relative paths resolve against it.
	// Empty leaves uploads unrestricted.
	UploadDir       string   `yaml:"upload_dir" json:"upload_dir"`
	ExtraUploadDirs []string `yaml:"extra_upload_dirs" json:"extra_upload_dirs"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" json:"level"`

	// Dir holds log files; empty uses ~/.actionapi/logs
	Dir string `yaml:"dir" json:"dir"`

	// Stderr writes logs to stderr instead of a file
	Stderr bool `yaml:"stderr" json:"stderr"`
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Browser: BrowserConfig{
			DefaultKind:   string(browser.KindChromium),
			Headless:      true,
			MaxSessions:   browser.DefaultMaxSessions,
			ActionTimeout: browser.DefaultActionTimeout,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file on top of DefaultConfig. Fields missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server address is required")
	}

	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("max_connections cannot be negative")
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server timeouts cannot be negative")
	}

	kind, err := browser.ParseBrowserKind(c.Browser.DefaultKind)
	if err != nil {
		return fmt.Errorf("invalid default_kind: %w", err)
	}
	c.Browser.DefaultKind = string(kind)

	if c.Browser.MaxSessions < 0 {
		return fmt.Errorf("max_sessions cannot be negative")
	}

	if c.Browser.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout cannot be negative")
	}

	if c.Browser.ActionTimeout < 0 {
		return fmt.Errorf("action_timeout cannot be negative")
	}

	if _, err := browser.NewNavigationPolicy(c.Browser.AllowedURLs, c.Browser.DeniedURLs); err != nil {
		return err
	}

	if len(c.Browser.ExtraUploadDirs) > 0 && c.Browser.UploadDir == "" {
		return fmt.Errorf("extra_upload_dirs requires upload_dir")
	}

	// Set default level if not specified
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}

	return nil
}

// NavigationPolicy compiles the configured URL patterns. It returns nil when
// no patterns are set.
func (c *Config) NavigationPolicy() (*browser.NavigationPolicy, error) {
	if len(c.Browser.AllowedURLs) == 0 && len(c.Browser.DeniedURLs) == 0 {
		return nil, nil
	}
	return browser.NewNavigationPolicy(c.Browser.AllowedURLs, c.Browser.DeniedURLs)
}

// UploadGuard builds the guard for upload_file paths. It returns nil when
// upload_dir is unset.
func (c *Config) UploadGuard() (*workspace.Guard, error) {
	if c.Browser.UploadDir == "" {
		return nil, nil
	}
	guard, err := workspace.NewGuard(c.Browser.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("invalid upload_dir: %w", err)
	}
	for _, dir := range c.Browser.ExtraUploadDirs {
		if err := guard.AddWhitelist(dir); err != nil {
			return nil, fmt.Errorf("invalid extra_upload_dirs entry: %w", err)
		}
	}
	return guard, nil
}
