// Package cache provides a generic TTL cache with in-memory and Redis
// implementations behind one [Cache] interface.
//
// The session store keeps sessions here, so a single-process deployment runs
// on [Memory] and a deployment that already has Redis shares sessions through
// [Redis].
//
//	c := cache.NewMemory[Session](
//	    cache.WithDefaultTTL(24 * time.Hour),
//	    cache.WithMaxEntries(1000),
//	)
//	defer c.Close()
//
//	r := cache.NewRedis[Session](client, cache.WithPrefix("mailpace:sessions"))
//
// TTL semantics for Set: positive expires after the duration, zero uses the
// configured default, negative never expires.
package cache
