package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by OpenBackend.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// BackendConfig selects and configures a Backend.
type BackendConfig struct {
	Kind        string
	Dir         string // file
	RedisAddr   string // redis
	SQLitePath  string // sqlite
	DatabaseURL string // postgres
}

// OpenBackend constructs the backend named by cfg.Kind.
func OpenBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	switch cfg.Kind {
	case BackendMemory:
		return NewMemoryBackend(), nil
	case BackendFile, "":
		return NewFileBackend(cfg.Dir)
	case BackendRedis:
		return NewRedisBackend(ctx, cfg.RedisAddr)
	case BackendSQLite:
		return NewSQLiteBackend(ctx, cfg.SQLitePath)
	case BackendPostgres:
		return NewPostgresBackend(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Kind)
	}
}

// CloseBackend closes b if it holds resources.
func CloseBackend(b Backend) error {
	if c, ok := b.(Closer); ok {
		return c.Close()
	}
	return nil
}
