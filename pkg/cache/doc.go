// Package cache provides a process-wide key/value cache with two independent
// expirations per entry: a sliding window that resets on every hit and an
// absolute ceiling fixed at insertion time. An entry is served only while both
// windows are still open.
//
// Two backends are included: an in-memory store for single-process deployments
// and tests, and a Redis-backed store for multi-instance deployments. Both are
// safe for concurrent use, and GetOrSet collapses concurrent misses for the
// same key into a single computation.
//
// Basic usage:
//
//	c := cache.NewMemory[[]string]()
//	defer c.Close()
//
//	perms, err := c.GetOrSet(ctx, "perm:"+userID, func(ctx context.Context) ([]string, error) {
//	    return loadPermissions(ctx, userID)
//	}, 5*time.Minute, 30*time.Minute)
//
// Eviction supports both exact keys and key prefixes, which callers use for
// bulk invalidation after the underlying data changes:
//
//	_ = c.Evict(ctx, "perm:"+userID)
//	_ = c.EvictPrefix(ctx, "resource_perm:document:"+docID.String()+":")
package cache
