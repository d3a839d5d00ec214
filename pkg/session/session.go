package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is an operator login bound to a cookie token.
type Session struct {
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`

	Operator  string `json:"operator,omitempty"` // empty = not logged in
	ID        string `json:"id"`                 // Stable identifier for logs
	Token     string `json:"token"`              // Cookie value, rotated on login
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// New creates an anonymous session that expires after ttl.
func New(token string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:           uuid.NewString(),
		Token:        token,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(ttl),
	}
}

// IsAuthenticated reports whether an operator is logged in.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Operator != ""
}

// IsExpired reports whether the session is past its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TTL returns the remaining lifetime at now, never negative.
func (s *Session) TTL(now time.Time) time.Duration {
	return max(s.ExpiresAt.Sub(now), 0)
}
