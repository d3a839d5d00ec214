package session

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/mailpace/pkg/cache"
)

// Store persists sessions by token.
type Store interface {
	// Save creates or replaces the session under its token.
	Save(ctx context.Context, s *Session) error

	// Get returns ErrNotFound for unknown tokens and ErrExpired for stale ones.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes the session stored under token.
	Delete(ctx context.Context, token string) error

	// Clear invalidates every session.
	Clear(ctx context.Context) error
}

// CacheStore keeps sessions in a cache.Cache, so the same code serves the
// in-memory and the Redis backend. Entry TTL follows the session expiry.
type CacheStore struct {
	cache cache.Cache[Session]
	clock func() time.Time
}

// NewCacheStore creates a store over c.
func NewCacheStore(c cache.Cache[Session], clock func() time.Time) *CacheStore {
	if clock == nil {
		clock = time.Now
	}
	return &CacheStore{cache: c, clock: clock}
}

// Save implements Store.
func (s *CacheStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.Token == "" {
		return ErrInvalidToken
	}
	ttl := sess.TTL(s.clock())
	if ttl <= 0 {
		return ErrExpired
	}
	return s.cache.Set(ctx, sess.Token, *sess, ttl)
}

// Get implements Store.
func (s *CacheStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	sess, err := s.cache.Get(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sess.IsExpired(s.clock()) {
		_ = s.cache.Delete(ctx, token)
		return nil, ErrExpired
	}
	return &sess, nil
}

// Delete implements Store.
func (s *CacheStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.cache.Delete(ctx, token)
}

// Clear implements Store.
func (s *CacheStore) Clear(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

var _ Store = (*CacheStore)(nil)
