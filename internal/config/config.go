// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/pitwall/cache"
)

// Config holds all application configuration
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Ergast ErgastConfig
	Cache  CacheConfig

	RedisAddr       string        `env:"REDIS_ADDR"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"720h"`
	ViewIdle        time.Duration `env:"VIEW_IDLE" envDefault:"30m"`
}

// ErgastConfig configures the upstream API client
type ErgastConfig struct {
	BaseURL   string        `env:"ERGAST_BASE_URL" envDefault:"https://api.jolpi.ca/ergast/f1"`
	RateLimit float64       `env:"ERGAST_RATE_LIMIT" envDefault:"4"`
	Timeout   time.Duration `env:"ERGAST_TIMEOUT" envDefault:"15s"`
}

// CacheConfig selects the cache backend and its lifetimes
type CacheConfig struct {
	Backend       string        `env:"CACHE_BACKEND" envDefault:"file"`
	Dir           string        `env:"CACHE_DIR"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"pitwall.db"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	MaxEntries    int           `env:"CACHE_MAX_ENTRIES" envDefault:"500"`
	SweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"1h"`
	StandingsTTL  time.Duration `env:"STANDINGS_TTL" envDefault:"6h"`
	ProfileTTL    time.Duration `env:"PROFILE_TTL" envDefault:"24h"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings that depend on each other
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case cache.BackendMemory, cache.BackendFile, cache.BackendSQLite:
	case cache.BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ADDR")
		}
	case cache.BackendPostgres:
		if c.Cache.DatabaseURL == "" {
			return fmt.Errorf("CACHE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}

	if c.Cache.StandingsTTL <= 0 || c.Cache.ProfileTTL <= 0 {
		return fmt.Errorf("cache ttls must be positive")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must not be negative, got %d", c.Cache.MaxEntries)
	}
	if c.Ergast.Timeout <= 0 {
		return fmt.Errorf("ERGAST_TIMEOUT must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %v", err)
	}
	return nil
}

// HasQueue returns true if a Redis server for background jobs is configured
func (c *Config) HasQueue() bool {
	return c.RedisAddr != ""
}

// BackendConfig returns the settings for cache.OpenBackend
func (c *Config) BackendConfig() cache.BackendConfig {
	return cache.BackendConfig{
		Kind:        c.Cache.Backend,
		Dir:         c.Cache.Dir,
		RedisAddr:   c.RedisAddr,
		SQLitePath:  c.Cache.SQLitePath,
		DatabaseURL: c.Cache.DatabaseURL,
	}
}
