package cache

import (
	"context"
	"time"
)

// Store represents a shared cache interface used across the application.
// Increment must be atomic: it backs the permission cache version counter,
// and a racing read-modify-write would resurrect stale cache entries.
type Store interface {
	Increment(ctx context.Context, key string) (int64, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
