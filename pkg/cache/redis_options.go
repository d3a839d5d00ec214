package cache

import "time"

// DefaultPrefix namespaces keys when no prefix is configured.
const DefaultPrefix = "mailpace"

// RedisOption configures the Redis cache.
type RedisOption func(*redisOptions)

type redisOptions struct {
	prefix     string
	defaultTTL time.Duration
}

func defaultRedisOptions() *redisOptions {
	return &redisOptions{
		prefix:     DefaultPrefix,
		defaultTTL: time.Hour,
	}
}

// WithRedisDefaultTTL sets the expiry used when Set receives a zero TTL.
// Default: 1 hour.
func WithRedisDefaultTTL(d time.Duration) RedisOption {
	return func(o *redisOptions) {
		o.defaultTTL = d
	}
}

// WithPrefix sets the key namespace. Empty values are ignored.
func WithPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}
