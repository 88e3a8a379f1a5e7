// Package cache implements the look-aside cache sitting in front of the
// record store. Values are JSON on the wire; a value that fails to decode is
// reported as a miss, never as an error, since the cache is an optimization
// and not a source of truth.
package cache

import (
	"context"
	"time"
)

// Store is the cache-aside side channel. A ttl of zero means the entry
// persists until explicitly deleted.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, key string) error
}
