package cache

import "errors"

// Domain errors for cache operations.
var (
	// ErrClosed is returned when an operation is attempted on a closed cache.
	ErrClosed = errors.New("cache.closed")

	// ErrFailedToParseRedisConnString is returned when the Redis URL is invalid.
	ErrFailedToParseRedisConnString = errors.New("cache.failed_to_parse_redis_conn_string")

	// ErrRedisNotReady is returned when the Redis server cannot be reached
	// after all connection attempts.
	ErrRedisNotReady = errors.New("cache.redis_not_ready")
)
