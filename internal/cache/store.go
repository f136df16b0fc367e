package cache

import (
	"context"
	"time"
)

// Store represents a shared durable cache interface used for counters that must
// survive restarts, such as rate-limit windows.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
