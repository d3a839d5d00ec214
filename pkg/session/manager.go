package session

import (
	"context"
	"crypto/rand"
	"errors"
	"net"
	"net/http"
	"time"
)

// Default cookie settings.
const (
	DefaultCookieName = "__sid"
	DefaultTTL        = 24 * time.Hour
)

// Manager ties sessions in a Store to an HTTP cookie.
type Manager struct {
	store      Store
	clock      func() time.Time
	cookieName string
	domain     string
	path       string
	ttl        time.Duration
	sameSite   http.SameSite
	secure     bool
	httpOnly   bool
}

// Option configures the Manager.
type Option func(*Manager)

// NewManager creates a session manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		clock:      time.Now,
		cookieName: DefaultCookieName,
		path:       "/",
		ttl:        DefaultTTL,
		sameSite:   http.SameSiteLaxMode,
		httpOnly:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithCookieName sets the session cookie name.
func WithCookieName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) Option {
	return func(m *Manager) {
		m.domain = domain
	}
}

// WithSecure sets the cookie Secure flag.
func WithSecure(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithSameSite sets the cookie SameSite attribute.
func WithSameSite(sameSite http.SameSite) Option {
	return func(m *Manager) {
		m.sameSite = sameSite
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.clock = fn
		}
	}
}

// Load returns the authenticated session for the request.
// Requests without a cookie or with an anonymous session yield ErrUnauthenticated.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrUnauthenticated
	}

	sess, err := m.store.Get(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
			return nil, errors.Join(ErrUnauthenticated, err)
		}
		return nil, err
	}
	if !sess.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

// Login starts a fresh session for operator and writes the cookie.
// Any session referenced by the incoming cookie is discarded so a token
// planted before login is never promoted.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, operator string) (*Session, error) {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		_ = m.store.Delete(ctx, cookie.Value)
	}

	sess := New(rand.Text(), m.clock(), m.ttl)
	sess.Operator = operator
	sess.IP = clientIP(r)
	sess.UserAgent = r.UserAgent()

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	m.writeCookie(w, sess.Token, int(m.ttl/time.Second))
	return sess, nil
}

// Logout deletes the request's session and expires the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var err error
	if cookie, cerr := r.Cookie(m.cookieName); cerr == nil && cookie.Value != "" {
		err = m.store.Delete(ctx, cookie.Value)
	}
	m.writeCookie(w, "", -1)
	return err
}

// InvalidateAll drops every session in the store.
func (m *Manager) InvalidateAll(ctx context.Context) error {
	return m.store.Clear(ctx)
}

func (m *Manager) writeCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: m.httpOnly,
		SameSite: m.sameSite,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
