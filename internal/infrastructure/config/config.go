package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/tabkeeper/internal/shared/paths"
)

// EnvPrefix prefixes every environment variable, e.g. TABKEEPER_STORE_BACKEND.
// Field names are split on word boundaries: PreserveDelay under Registry
// reads TABKEEPER_REGISTRY_PRESERVE_DELAY.
const EnvPrefix = "TABKEEPER"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Registry  RegistryConfig  `yaml:"registry"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" split_words:"true"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `yaml:"port" split_words:"true"`
	Host            string        `yaml:"host" split_words:"true"`
	CORSOrigins     []string      `yaml:"cors_origins" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

// StoreConfig selects and tunes the persistence backend.
type StoreConfig struct {
	Backend          string `yaml:"backend" split_words:"true"`
	Dir              string `yaml:"dir" split_words:"true"`
	Compression      string `yaml:"compression" split_words:"true"`
	FetchConcurrency int    `yaml:"fetch_concurrency" split_words:"true"`
}

// RegistryConfig tunes the tab registry.
type RegistryConfig struct {
	// WindowID pins the window this process restores and saves; empty picks
	// the primary persisted window.
	WindowID       string        `yaml:"window_id" split_words:"true"`
	PreserveDelay  time.Duration `yaml:"preserve_delay" split_words:"true"`
	AutoPreserve   bool          `yaml:"auto_preserve" split_words:"true"`
	// RestoreOnStart loads the persisted window at startup. Without it and
	// without WindowID, tabs are saved under a fresh id that becomes the
	// primary window; an untouched empty window is not saved on shutdown.
	RestoreOnStart bool          `yaml:"restore_on_start" split_words:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level" split_words:"true"`
	Development bool   `yaml:"development" split_words:"true"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `yaml:"requests_per_second" split_words:"true"`
	Burst             int  `yaml:"burst" split_words:"true"`
	Enabled           bool `yaml:"enabled" split_words:"true"`
}

// Load loads configuration from environment variables over the defaults.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads defaults, then the YAML file at path (if non-empty), then
// environment variables. Later sources win.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Fields have no default tags, so unset variables leave earlier values alone.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8420",
			Host:            "127.0.0.1",
			CORSOrigins:     []string{"http://localhost:*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Backend:          "file",
			Dir:              paths.DefaultDataDir(),
			Compression:      "none",
			FetchConcurrency: 4,
		},
		Registry: RegistryConfig{
			PreserveDelay:  250 * time.Millisecond,
			AutoPreserve:   true,
			RestoreOnStart: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}

// Validate reports configuration values no component can run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.backend must be file or sqlite, got %q", c.Store.Backend))
	}
	switch c.Store.Compression {
	case "", "none", "gzip", "zstd":
	default:
		errs = append(errs, fmt.Errorf("store.compression must be none, gzip or zstd, got %q", c.Store.Compression))
	}
	if c.Store.Dir == "" {
		errs = append(errs, errors.New("store.dir is required"))
	}
	if c.Store.FetchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("store.fetch_concurrency must be positive, got %d", c.Store.FetchConcurrency))
	}
	if c.Registry.PreserveDelay < 0 {
		errs = append(errs, fmt.Errorf("registry.preserve_delay must not be negative, got %s", c.Registry.PreserveDelay))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond < 1 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("rate_limit.requests_per_second and rate_limit.burst must be positive when enabled"))
	}

	return errors.Join(errs...)
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// StorePath returns the path handed to the store backend.
func (c *Config) StorePath() string {
	return paths.StorePath(c.Store.Backend, paths.Expand(c.Store.Dir))
}
