package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/pitwall/cache"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "CACHE_BACKEND", "STANDINGS_TTL", "PROFILE_TTL", "ERGAST_BASE_URL", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, 6*time.Hour, cfg.Cache.StandingsTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.ProfileTTL)
	assert.Equal(t, "https://api.jolpi.ca/ergast/f1", cfg.Ergast.BaseURL)
	assert.Equal(t, 4.0, cfg.Ergast.RateLimit)
	assert.False(t, cfg.HasQueue())
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("STANDINGS_TTL", "90m")
	t.Setenv("CACHE_MAX_ENTRIES", "50")
	t.Setenv("ERGAST_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 90*time.Minute, cfg.Cache.StandingsTTL)
	assert.Equal(t, 50, cfg.Cache.MaxEntries)
	assert.Equal(t, 3*time.Second, cfg.Ergast.Timeout)
	assert.True(t, cfg.HasQueue())
	assert.NoError(t, cfg.Validate())

	bc := cfg.BackendConfig()
	assert.Equal(t, cache.BackendRedis, bc.Kind)
	assert.Equal(t, "localhost:6379", bc.RedisAddr)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("STANDINGS_TTL", "six hours")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LogLevel: "info",
			Ergast:   ErgastConfig{Timeout: time.Second},
			Cache:    CacheConfig{Backend: "memory", StandingsTTL: time.Hour, ProfileTTL: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "etcd" }, "unknown CACHE_BACKEND"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis" }, "requires REDIS_ADDR"},
		{"postgres without url", func(c *Config) { c.Cache.Backend = "postgres" }, "requires DATABASE_URL"},
		{"zero ttl", func(c *Config) { c.Cache.ProfileTTL = 0 }, "ttls must be positive"},
		{"negative max entries", func(c *Config) { c.Cache.MaxEntries = -1 }, "must not be negative"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid LOG_LEVEL"},
		{"zero timeout", func(c *Config) { c.Ergast.Timeout = 0 }, "ERGAST_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
