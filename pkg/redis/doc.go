// Package redis opens the shared go-redis client used by the Redis-backed
// unsubscribe registry and session store.
//
// Open validates the URL scheme, applies pool and timeout options, and retries
// the initial PING with a linear backoff until the context is done:
//
//	client, err := redis.Open(ctx, cfg.Redis.URL, redis.WithRetry(5, time.Second))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Healthcheck plugs into the readiness endpoint and Closer into the
// shutdown sequence.
package redis
