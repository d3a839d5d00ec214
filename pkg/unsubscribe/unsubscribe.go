// Package unsubscribe keeps the set of addresses that opted out of mail.
// The dispatcher drops these recipients before quota admission.
package unsubscribe

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidAddress indicates the value is not a bare email address.
var ErrInvalidAddress = errors.New("unsubscribe: invalid email address")

// Registry is a set of opted-out addresses. Addresses are compared
// case-insensitively.
type Registry interface {
	Add(ctx context.Context, address string) error
	Remove(ctx context.Context, address string) error
	Contains(ctx context.Context, address string) (bool, error)
}

// Normalize validates address and returns its canonical form.
func Normalize(address string) (string, error) {
	address = strings.TrimSpace(address)
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(parsed.Address), nil
}

// Memory is an in-process Registry.
type Memory struct {
	set map[string]struct{}
	mu  sync.RWMutex
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{set: make(map[string]struct{})}
}

// Add implements Registry.
func (m *Memory) Add(_ context.Context, address string) error {
	key, err := Normalize(address)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.set[key] = struct{}{}
	m.mu.Unlock()
	return nil
}

// Remove implements Registry.
func (m *Memory) Remove(_ context.Context, address string) error {
	key, err := Normalize(address)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.set, key)
	m.mu.Unlock()
	return nil
}

// Contains implements Registry. Invalid addresses are never contained.
func (m *Memory) Contains(_ context.Context, address string) (bool, error) {
	key, err := Normalize(address)
	if err != nil {
		return false, nil
	}
	m.mu.RLock()
	_, ok := m.set[key]
	m.mu.RUnlock()
	return ok, nil
}

// Len returns the number of stored addresses.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.set)
}

// DefaultRedisKey is the set key used by the Redis registry.
const DefaultRedisKey = "mailpace:unsubscribed"

// Redis stores the registry in a Redis set so it survives restarts and is
// shared between instances.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis creates a Redis-backed registry. An empty key uses DefaultRedisKey.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

// Add implements Registry.
func (r *Redis) Add(ctx context.Context, address string) error {
	member, err := Normalize(address)
	if err != nil {
		return err
	}
	return r.client.SAdd(ctx, r.key, member).Err()
}

// Remove implements Registry.
func (r *Redis) Remove(ctx context.Context, address string) error {
	member, err := Normalize(address)
	if err != nil {
		return err
	}
	return r.client.SRem(ctx, r.key, member).Err()
}

// Contains implements Registry.
func (r *Redis) Contains(ctx context.Context, address string) (bool, error) {
	member, err := Normalize(address)
	if err != nil {
		return false, nil
	}
	return r.client.SIsMember(ctx, r.key, member).Result()
}

var (
	_ Registry = (*Memory)(nil)
	_ Registry = (*Redis)(nil)
)
