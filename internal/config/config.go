// Package config loads dashboard configuration from a TOML file with
// environment overrides. Environment variables win over the file; both fall
// back to defaults, so an empty config is valid for local use.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment override variables.
const (
	envSourceURL  = "CWD_SOURCE_URL"
	envRedisAddr  = "CWD_REDIS_ADDR"
	envListenAddr = "CWD_LISTEN_ADDR"
	envLogLevel   = "CWD_LOG_LEVEL"
)

// Config is the full dashboard configuration.
type Config struct {
	Source SourceConfig `toml:"source"`
	Redis  RedisConfig  `toml:"redis"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// SourceConfig configures the upstream feature service.
type SourceConfig struct {
	// URL is the FeatureServer base URL, without the layer path.
	URL string `toml:"url"`

	// Layer is the layer path appended to URL, e.g. "/0".
	Layer string `toml:"layer"`

	// BatchSize is the page size requested per fetch.
	BatchSize int `toml:"batch_size"`

	// MaxConcurrent bounds in-flight page fetches.
	MaxConcurrent int `toml:"max_concurrent"`

	// Timeout applies per request attempt.
	Timeout time.Duration `toml:"timeout"`
}

// RedisConfig configures the page cache.
type RedisConfig struct {
	Addr    string        `toml:"addr"`
	Enabled bool          `toml:"enabled"`
	TTL     time.Duration `toml:"ttl"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

func defaults() Config {
	return Config{
		Source: SourceConfig{
			Layer:         "/0",
			BatchSize:     2000,
			MaxConcurrent: 4,
			Timeout:       30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Enabled: true,
			TTL:     time.Hour,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path (skipped when path is empty or missing),
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to env + defaults.
		case err != nil:
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(envSourceURL); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv(envRedisAddr); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv(envListenAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

func (c Config) validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required (or set %s)", envSourceURL)
	}
	if c.Source.BatchSize <= 0 {
		return fmt.Errorf("source.batch_size must be positive, got %d", c.Source.BatchSize)
	}
	if c.Source.MaxConcurrent <= 0 {
		return fmt.Errorf("source.max_concurrent must be positive, got %d", c.Source.MaxConcurrent)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}
