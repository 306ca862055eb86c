// Package storage defines the durable key-value capability used to persist review progress.
package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Backend names accepted by New
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// KV is a narrow string key-value store. Get reports found=false for a missing key.
// Clear removes every key owned by the store.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend
type Config struct {
	Backend       string
	Path          string // file and sqlite backends
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// New opens the configured backend
func New(ctx context.Context, cfg Config, logger *zap.Logger) (KV, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case BackendMemory, "":
		logger.Debug("using in-memory progress storage")
		return NewMemoryKV(), nil
	case BackendFile:
		logger.Debug("using file progress storage", zap.String("path", cfg.Path))
		kv, err := NewFileKV(cfg.Path)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case BackendSQLite:
		logger.Debug("using sqlite progress storage", zap.String("path", cfg.Path))
		kv, err := NewSQLiteKV(cfg.Path)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case BackendRedis:
		logger.Debug("using redis progress storage", zap.String("addr", cfg.RedisAddr))
		client, err := NewRedisClient(ctx, RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return NewRedisKV(client, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// DefaultPath returns the default database path for a file-backed backend inside dir
func DefaultPath(backend, dir string) string {
	switch backend {
	case BackendSQLite:
		return filepath.Join(dir, ".clinical-extract", "progress.db")
	default:
		return filepath.Join(dir, ".clinical-extract", "progress.json")
	}
}
