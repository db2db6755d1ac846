// Package config loads travelboard settings from defaults, an optional
// config.yaml in the home directory, a .env file and the environment, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage kinds.
const (
	StorageSQLite = "sqlite"
	StorageJSON   = "json"
	StorageMemory = "memory"
)

const (
	DefaultAPIURL   = "https://travel-kanban.onrender.com"
	DefaultStubAddr = "127.0.0.1:8765"
	ConfigFileName  = "config.yaml"
)

// Config holds all configuration for the application
type Config struct {
	API     APIConfig
	Storage StorageConfig
	Stub    StubConfig
	Log     LogConfig
}

// APIConfig holds settings for talking to the board API.
type APIConfig struct {
	URL string
	// Timeout of 0 leaves the HTTP client without an explicit timeout.
	Timeout         time.Duration
	BoardsStaleTime time.Duration
}

// StorageConfig selects where tokens and client state are kept.
type StorageConfig struct {
	Kind string
	Home string
}

// StubConfig holds settings for the local stub backend.
type StubConfig struct {
	Addr   string
	Secret string
	// Seed creates a demo account and board on start.
	Seed bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// fileConfig is the shape of config.yaml. Every field is optional.
type fileConfig struct {
	APIURL      string `yaml:"api_url"`
	HTTPTimeout string `yaml:"http_timeout"`
	StaleTime   string `yaml:"stale_time"`
	Storage     string `yaml:"storage"`
	StubAddr    string `yaml:"stub_addr"`
	StubSecret  string `yaml:"stub_secret"`
	LogLevel    string `yaml:"log_level"`
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	home := getEnv("TRAVELBOARD_HOME", defaultHome())
	cfg := &Config{
		API: APIConfig{
			URL:             DefaultAPIURL,
			BoardsStaleTime: 5 * time.Minute,
		},
		Storage: StorageConfig{Kind: StorageSQLite, Home: home},
		Stub:    StubConfig{Addr: DefaultStubAddr, Seed: true},
		Log:     LogConfig{Level: "warn"},
	}

	if err := cfg.applyFile(filepath.Join(home, ConfigFileName)); err != nil {
		return nil, err
	}

	cfg.API.URL = getEnv("TRAVELBOARD_API_URL", cfg.API.URL)
	cfg.API.Timeout = getDurationEnv("TRAVELBOARD_HTTP_TIMEOUT", cfg.API.Timeout)
	cfg.API.BoardsStaleTime = getDurationEnv("TRAVELBOARD_STALE_TIME", cfg.API.BoardsStaleTime)
	cfg.Storage.Kind = getEnv("TRAVELBOARD_STORAGE", cfg.Storage.Kind)
	cfg.Stub.Addr = getEnv("TRAVELBOARD_STUB_ADDR", cfg.Stub.Addr)
	cfg.Stub.Secret = getEnv("TRAVELBOARD_STUB_SECRET", cfg.Stub.Secret)
	cfg.Stub.Seed = getBoolEnv("TRAVELBOARD_STUB_SEED", cfg.Stub.Seed)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyFile overlays config.yaml when it exists.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if f.APIURL != "" {
		c.API.URL = f.APIURL
	}
	if f.HTTPTimeout != "" {
		d, err := time.ParseDuration(f.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("%s: http_timeout: %w", path, err)
		}
		c.API.Timeout = d
	}
	if f.StaleTime != "" {
		d, err := time.ParseDuration(f.StaleTime)
		if err != nil {
			return fmt.Errorf("%s: stale_time: %w", path, err)
		}
		c.API.BoardsStaleTime = d
	}
	if f.Storage != "" {
		c.Storage.Kind = f.Storage
	}
	if f.StubAddr != "" {
		c.Stub.Addr = f.StubAddr
	}
	if f.StubSecret != "" {
		c.Stub.Secret = f.StubSecret
	}
	if f.LogLevel != "" {
		c.Log.Level = f.LogLevel
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("TRAVELBOARD_API_URL must be an http(s) URL, got %q", c.API.URL)
	}
	switch c.Storage.Kind {
	case StorageSQLite, StorageJSON, StorageMemory:
	default:
		return fmt.Errorf("TRAVELBOARD_STORAGE must be one of sqlite, json, memory, got %q", c.Storage.Kind)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("TRAVELBOARD_HTTP_TIMEOUT must not be negative")
	}
	if c.Storage.Kind != StorageMemory && c.Storage.Home == "" {
		return fmt.Errorf("TRAVELBOARD_HOME is required for %s storage", c.Storage.Kind)
	}
	return nil
}

// StoragePath returns the file backing the configured storage, or "" for
// memory storage.
func (c *Config) StoragePath() string {
	switch c.Storage.Kind {
	case StorageSQLite:
		return filepath.Join(c.Storage.Home, "travelboard.db")
	case StorageJSON:
		return filepath.Join(c.Storage.Home, "state.json")
	}
	return ""
}

func defaultHome() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".travelboard"
	}
	return filepath.Join(dir, ".travelboard")
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
