package authz

import (
	"log/slog"
	"time"

	"github.com/NOIR-Solution/NOIR-sub016/pkg/cache"
)

// config holds shared construction settings for the engine components.
type config struct {
	logger           *slog.Logger
	permCache        cache.Cache[[]string]
	shareCache       cache.Cache[ShareLookup]
	registry         *InvalidationRegistry
	loader           ResourceLoader
	permSliding      time.Duration
	permAbsolute     time.Duration
	resourceSliding  time.Duration
	resourceAbsolute time.Duration
}

// Option configures the engine components.
type Option func(*config)

func defaultConfig() *config {
	return &config{
		logger:           slog.Default(),
		permSliding:      5 * time.Minute,
		permAbsolute:     30 * time.Minute,
		resourceSliding:  2 * time.Minute,
		resourceAbsolute: 10 * time.Minute,
	}
}

// WithLogger sets the logger used for diagnostics like cycle detection.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPermissionCache sets the cache backing the principal permission service.
// Pass the same instance to NewInvalidationRegistry so evictions line up.
func WithPermissionCache(cc cache.Cache[[]string]) Option {
	return func(c *config) {
		if cc != nil {
			c.permCache = cc
		}
	}
}

// WithShareCache sets the cache backing the resource authorization service.
func WithShareCache(cc cache.Cache[ShareLookup]) Option {
	return func(c *config) {
		if cc != nil {
			c.shareCache = cc
		}
	}
}

// WithRegistry wires the invalidation registry that tracks cached principals.
func WithRegistry(r *InvalidationRegistry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithResourceLoader enables walking share inheritance beyond the immediate
// parent. Without a loader the walk stops after one hop.
func WithResourceLoader(loader ResourceLoader) Option {
	return func(c *config) {
		c.loader = loader
	}
}

// WithPermissionTTL overrides the principal permission cache windows.
func WithPermissionTTL(sliding, absolute time.Duration) Option {
	return func(c *config) {
		if sliding > 0 {
			c.permSliding = sliding
		}
		if absolute > 0 {
			c.permAbsolute = absolute
		}
	}
}

// WithResourceTTL overrides the resource share cache windows.
func WithResourceTTL(sliding, absolute time.Duration) Option {
	return func(c *config) {
		if sliding > 0 {
			c.resourceSliding = sliding
		}
		if absolute > 0 {
			c.resourceAbsolute = absolute
		}
	}
}

// WithConfig applies TTLs from an environment-derived Config.
func WithConfig(cfg Config) Option {
	return func(c *config) {
		WithPermissionTTL(cfg.PermissionSlidingTTL, cfg.PermissionAbsoluteTTL)(c)
		WithResourceTTL(cfg.ResourceSlidingTTL, cfg.ResourceAbsoluteTTL)(c)
	}
}
