package cache

import (
	"context"
	"time"
)

// ComputeFunc produces the value for a key on a cache miss.
// It must honor context cancellation; a returned error is never cached.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Cache stores values under string keys with dual-TTL expiration.
// Implementations must be safe for concurrent use from multiple goroutines.
type Cache[V any] interface {
	// GetOrSet returns the cached value for key, computing and storing it on
	// a miss. Concurrent misses for the same key are collapsed into a single
	// compute call. A compute error or a context cancelled during compute
	// leaves the cache untouched.
	GetOrSet(ctx context.Context, key string, compute ComputeFunc[V], sliding, absolute time.Duration) (V, error)

	// Get returns the cached value and true on a hit. A hit resets the
	// entry's sliding window.
	Get(ctx context.Context, key string) (V, bool)

	// Set stores a value unconditionally, replacing any existing entry.
	Set(ctx context.Context, key string, value V, sliding, absolute time.Duration) error

	// Evict removes a single key. Removing a missing key is not an error.
	Evict(ctx context.Context, key string) error

	// EvictPrefix removes every key that starts with prefix.
	EvictPrefix(ctx context.Context, prefix string) error

	// Close releases backend resources. The cache must not be used after.
	Close() error
}
