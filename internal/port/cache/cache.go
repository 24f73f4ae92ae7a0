// Package cache defines the port interface for in-process caching of
// resolved document-store locations and other small lookups.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for string key-value caching with TTLs.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
