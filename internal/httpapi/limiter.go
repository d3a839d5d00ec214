package httpapi

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrymomot/mailpace/pkg/cache"
)

// loginLimiter throttles login attempts per client IP. Idle limiters age out
// of an LRU so the map cannot grow without bound.
type loginLimiter struct {
	limiters *cache.Memory[*rate.Limiter]
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
}

func newLoginLimiter(perSecond float64, burst int) *loginLimiter {
	return &loginLimiter{
		limiters: cache.NewMemory[*rate.Limiter](
			cache.WithDefaultTTL(15*time.Minute),
			cache.WithMaxEntries(10_000),
		),
		limit: rate.Limit(perSecond),
		burst: max(burst, 1),
	}
}

func (l *loginLimiter) Allow(ctx context.Context, ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, err := l.limiters.Get(ctx, ip)
	if err != nil {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// Refresh the TTL on every attempt.
	_ = l.limiters.Set(ctx, ip, lim, 0)
	return lim.Allow()
}

func (l *loginLimiter) Close() error {
	return l.limiters.Close()
}
