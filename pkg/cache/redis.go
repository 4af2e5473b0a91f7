package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RedisConfig holds connection settings for the Redis cache backend.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // ConnectionURL should be in the format "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`             // RetryAttempts is the number of connection attempts before giving up.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`            // RetryInterval is the wait between connection attempts.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`          // ConnectTimeout bounds the whole connection phase.
}

// ConnectRedis establishes a Redis client with retry, verifying the connection
// with a ping before returning it.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	for range cfg.RetryAttempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// redisEnvelope wraps a cached value with the metadata needed to enforce the
// absolute ceiling and re-arm the sliding window on later hits.
type redisEnvelope[V any] struct {
	Value      V             `json:"v"`
	InsertedAt time.Time     `json:"t"`
	Sliding    time.Duration `json:"s"`
	Absolute   time.Duration `json:"a"`
}

// Redis is the Redis-backed Cache implementation. The entry's key TTL carries
// the sliding window; the absolute ceiling is enforced from the stored
// insertion timestamp, so a hit can never extend an entry past it.
type Redis[V any] struct {
	client *redis.Client
	group  singleflight.Group
	now    func() time.Time
}

// NewRedis creates a Redis-backed cache on an existing client. The caller owns
// the client's lifecycle; Close does not close it.
func NewRedis[V any](client *redis.Client) *Redis[V] {
	return &Redis[V]{
		client: client,
		now:    time.Now,
	}
}

// GetOrSet returns the cached value for key, computing it on a miss.
// Concurrent misses within this process share a single compute call.
func (c *Redis[V]) GetOrSet(ctx context.Context, key string, compute ComputeFunc[V], sliding, absolute time.Duration) (V, error) {
	var zero V

	if v, ok, err := c.lookup(ctx, key); err != nil {
		return zero, err
	} else if ok {
		return v, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok, err := c.lookup(ctx, key); err != nil {
			return nil, err
		} else if ok {
			return v, nil
		}

		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := c.Set(ctx, key, v, sliding, absolute); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}

	return result.(V), nil
}

// Get returns the cached value and true on a hit, re-arming the sliding window.
// Backend errors are swallowed and reported as misses so callers can fall
// through to GetOrSet's compute path.
func (c *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	v, ok, err := c.lookup(ctx, key)
	if err != nil {
		var zero V
		return zero, false
	}
	return v, ok
}

// Set stores a value with TTL bounded by both windows.
func (c *Redis[V]) Set(ctx context.Context, key string, value V, sliding, absolute time.Duration) error {
	env := redisEnvelope[V]{
		Value:      value,
		InsertedAt: c.now().UTC(),
		Sliding:    sliding,
		Absolute:   absolute,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, min(sliding, absolute)).Err()
}

// Evict removes a single key.
func (c *Redis[V]) Evict(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// EvictPrefix removes every key starting with prefix using incremental SCAN,
// so it never blocks the server the way KEYS would.
func (c *Redis[V]) EvictPrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Close is a no-op: the Redis client is owned by the caller.
func (c *Redis[V]) Close() error {
	return nil
}

// lookup fetches and validates an entry, extending the key TTL for the next
// sliding window capped at the remaining absolute lifetime.
func (c *Redis[V]) lookup(ctx context.Context, key string) (V, bool, error) {
	var zero V

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	var env redisEnvelope[V]
	if err := json.Unmarshal(payload, &env); err != nil {
		// Unreadable entries are dropped rather than served.
		_ = c.client.Del(ctx, key).Err()
		return zero, false, nil
	}

	remaining := env.InsertedAt.Add(env.Absolute).Sub(c.now())
	if remaining <= 0 {
		_ = c.client.Del(ctx, key).Err()
		return zero, false, nil
	}

	if err := c.client.Expire(ctx, key, min(env.Sliding, remaining)).Err(); err != nil {
		return zero, false, err
	}

	return env.Value, true, nil
}
