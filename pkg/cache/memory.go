package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries limits the in-memory cache size before least-recently-used
// entries are evicted to make room.
const DefaultMaxEntries = 10000

// defaultCleanupInterval is how often expired entries are swept in the background.
const defaultCleanupInterval = time.Minute

type memoryEntry[V any] struct {
	value      V
	insertedAt time.Time
	lastAccess time.Time
	sliding    time.Duration
	absolute   time.Duration
}

// expired reports whether either TTL window has elapsed at the given instant.
func (e *memoryEntry[V]) expired(now time.Time) bool {
	return !now.Before(e.lastAccess.Add(e.sliding)) || !now.Before(e.insertedAt.Add(e.absolute))
}

type memoryConfig struct {
	now             func() time.Time
	maxEntries      int
	cleanupInterval time.Duration
}

// MemoryOption configures the in-memory cache.
type MemoryOption func(*memoryConfig)

// WithClock replaces the time source. Intended for tests that need to advance
// time deterministically.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxEntries sets the entry limit. Non-positive values keep the default.
func WithMaxEntries(n int) MemoryOption {
	return func(c *memoryConfig) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithCleanupInterval sets how often the background sweep removes expired entries.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if d > 0 {
			c.cleanupInterval = d
		}
	}
}

// Memory is the in-memory Cache implementation. Expired entries are dropped
// lazily on access and periodically by a background sweep.
type Memory[V any] struct {
	mu         sync.Mutex
	items      map[string]*memoryEntry[V]
	group      singleflight.Group
	now        func() time.Time
	maxEntries int
	stop       chan struct{}
	done       chan struct{}
	closed     bool
}

// NewMemory creates an in-memory cache and starts its cleanup goroutine.
// Call Close to stop the goroutine when the cache is no longer needed.
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	cfg := &memoryConfig{
		now:             time.Now,
		maxEntries:      DefaultMaxEntries,
		cleanupInterval: defaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Memory[V]{
		items:      make(map[string]*memoryEntry[V]),
		now:        cfg.now,
		maxEntries: cfg.maxEntries,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	go c.cleanup(cfg.cleanupInterval)

	return c
}

// GetOrSet returns the cached value for key, computing it on a miss.
// Concurrent misses for the same key share a single compute call.
func (c *Memory[V]) GetOrSet(ctx context.Context, key string, compute ComputeFunc[V], sliding, absolute time.Duration) (V, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have populated the entry while this one waited.
		if v, ok := c.Get(ctx, key); ok {
			return v, nil
		}

		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		// A cancelled computation must not leave a cache entry behind.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := c.Set(ctx, key, v, sliding, absolute); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	return result.(V), nil
}

// Get returns the cached value and resets its sliding window on a hit.
func (c *Memory[V]) Get(_ context.Context, key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.items[key]
	if !ok {
		return zero, false
	}

	now := c.now()
	if entry.expired(now) {
		delete(c.items, key)
		return zero, false
	}

	entry.lastAccess = now
	return entry.value, true
}

// Set stores a value, replacing any existing entry for the key.
func (c *Memory[V]) Set(_ context.Context, key string, value V, sliding, absolute time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	now := c.now()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictOneLocked(now)
	}

	c.items[key] = &memoryEntry[V]{
		value:      value,
		insertedAt: now,
		lastAccess: now,
		sliding:    sliding,
		absolute:   absolute,
	}
	return nil
}

// Evict removes a single key.
func (c *Memory[V]) Evict(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// EvictPrefix removes every key starting with prefix.
func (c *Memory[V]) EvictPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

// Len returns the current number of entries, including not-yet-swept expired ones.
func (c *Memory[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close stops the cleanup goroutine and drops all entries.
func (c *Memory[V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.items = make(map[string]*memoryEntry[V])
	c.mu.Unlock()

	close(c.stop)
	<-c.done
	return nil
}

// evictOneLocked makes room for a new entry: expired entries go first, then
// the least recently accessed live one. Must be called with the lock held.
func (c *Memory[V]) evictOneLocked(now time.Time) {
	var (
		oldestKey  string
		oldestSeen time.Time
	)
	for key, entry := range c.items {
		if entry.expired(now) {
			delete(c.items, key)
			return
		}
		if oldestKey == "" || entry.lastAccess.Before(oldestSeen) {
			oldestKey = key
			oldestSeen = entry.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *Memory[V]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Memory[V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.items {
		if entry.expired(now) {
			delete(c.items, key)
		}
	}
}
