package authz

import (
	"errors"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries the engine's tunable cache windows, loadable from the
// environment. Zero values fall back to the defaults in defaultConfig.
type Config struct {
	PermissionSlidingTTL  time.Duration `env:"AUTHZ_PERM_SLIDING_TTL" envDefault:"5m"`      // PermissionSlidingTTL is reset on every principal permission cache hit.
	PermissionAbsoluteTTL time.Duration `env:"AUTHZ_PERM_ABSOLUTE_TTL" envDefault:"30m"`    // PermissionAbsoluteTTL caps a principal permission entry's total lifetime.
	ResourceSlidingTTL    time.Duration `env:"AUTHZ_RESOURCE_SLIDING_TTL" envDefault:"2m"`  // ResourceSlidingTTL is reset on every resource share cache hit.
	ResourceAbsoluteTTL   time.Duration `env:"AUTHZ_RESOURCE_ABSOLUTE_TTL" envDefault:"10m"` // ResourceAbsoluteTTL caps a resource share entry's total lifetime.
}

var defaultEnvLoaded sync.Once

// ErrParsingConfig wraps environment parsing failures.
var ErrParsingConfig = errors.New("authz.failed_to_parse_config")

// LoadConfig reads Config from the environment, loading a .env file first if
// one exists.
func LoadConfig() (Config, error) {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional; a missing one is not an error.
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}
