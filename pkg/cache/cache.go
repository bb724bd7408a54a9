package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores JSON encodable values under string keys.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix drops every key starting with prefix. Best effort.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// Options selects the backend.
type Options struct {
	Type          string // memory (default) or redis
	MaxCost       int64  // memory backend budget in bytes
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New returns the configured cache backend.
func New(opts Options) (Cache, error) {
	switch opts.Type {
	case "", "memory":
		return NewMemory(opts.MaxCost)
	case "redis":
		return NewRedis(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", opts.Type)
	}
}

// IsCacheMiss reports whether err is a cache miss.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
