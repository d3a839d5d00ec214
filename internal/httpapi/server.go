// Package httpapi exposes the dispatcher to the operator over HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/mailpace/middlewares"
	"github.com/dmitrymomot/mailpace/pkg/dispatch"
	"github.com/dmitrymomot/mailpace/pkg/health"
	"github.com/dmitrymomot/mailpace/pkg/lockout"
	"github.com/dmitrymomot/mailpace/pkg/logger"
	"github.com/dmitrymomot/mailpace/pkg/quota"
	"github.com/dmitrymomot/mailpace/pkg/session"
	"github.com/dmitrymomot/mailpace/pkg/unsubscribe"
)

// Operator is the single login allowed to run campaigns.
type Operator struct {
	Username string
	Password string
}

// Deps are the collaborators the API drives.
type Deps struct {
	Dispatcher  *dispatch.Dispatcher
	Ledger      *quota.Ledger
	Lockout     *lockout.Controller
	Sessions    *session.Manager
	Unsubscribe unsubscribe.Registry
	Checks      health.Checks
	Logger      *slog.Logger
	Operator    Operator
	// ArmAfter schedules a full reset after each successful login. 0 disables.
	ArmAfter   time.Duration
	LoginRate  float64
	LoginBurst int
	Clock      func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	deps    Deps
	limiter *loginLimiter
	log     *slog.Logger
}

// New validates deps and builds the server.
func New(deps Deps) (*Server, error) {
	if deps.Dispatcher == nil || deps.Ledger == nil || deps.Lockout == nil || deps.Sessions == nil || deps.Unsubscribe == nil {
		return nil, errors.New("httpapi: dispatcher, ledger, lockout, sessions and unsubscribe are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.LoginRate <= 0 {
		deps.LoginRate = 0.5
	}
	return &Server{
		deps:    deps,
		limiter: newLoginLimiter(deps.LoginRate, deps.LoginBurst),
		log:     deps.Logger,
	}, nil
}

// Close releases the login limiter.
func (s *Server) Close() error {
	return s.limiter.Close()
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares.RequestID())
	r.Use(middlewares.Recover(s.log))
	r.Use(middleware.RealIP)
	r.Use(middleware.CleanPath)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(s.deps.Checks, health.WithLogger(s.log)))

	r.Get("/lockout", s.lockoutState)
	r.Post("/login", s.login)
	r.Post("/logout", s.logout)
	r.Post("/unsubscribe", s.unsubscribe)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/send", s.send)
		r.Get("/quota", s.quota)
		r.Post("/reset", s.reset)
	})

	return r
}

// requireAuth admits only logged-in operators, and nobody while a reset runs.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.deps.Lockout.Guard(); err != nil {
			s.error(w, r, err)
			return
		}
		sess, err := s.deps.Sessions.Load(r.Context(), r)
		if err != nil {
			s.error(w, r, err)
			return
		}
		ctx := logger.WithAttrs(r.Context(), slog.String("operator", sess.Operator))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lockout.Engaged() {
		fail(w, http.StatusServiceUnavailable, "Server reset in progress", nil)
		return
	}
	if !s.limiter.Allow(r.Context(), clientIP(r)) {
		fail(w, http.StatusTooManyRequests, "Too many login attempts, try later", nil)
		return
	}

	var req loginRequest
	if err := decode(r, &req, func(get func(string) string) {
		req.Username, req.Password = get("username"), get("password")
	}); err != nil {
		s.error(w, r, err)
		return
	}

	if !s.validOperator(req) {
		s.log.WarnContext(r.Context(), "login rejected", slog.String("ip", clientIP(r)))
		fail(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	if _, err := s.deps.Sessions.Login(r.Context(), w, r, req.Username); err != nil {
		s.error(w, r, err)
		return
	}
	if s.deps.ArmAfter > 0 && s.deps.Lockout.ArmAfter(s.deps.ArmAfter) {
		s.log.InfoContext(r.Context(), "full reset armed", slog.Duration("after", s.deps.ArmAfter))
	}
	ok(w, "", nil)
}

func (s *Server) validOperator(req loginRequest) bool {
	op := s.deps.Operator
	user := subtle.ConstantTimeCompare([]byte(req.Username), []byte(op.Username))
	pass := subtle.ConstantTimeCompare([]byte(req.Password), []byte(op.Password))
	return op.Username != "" && user&pass == 1
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Logout(r.Context(), w, r); err != nil {
		s.log.WarnContext(r.Context(), "logout: session delete failed", slog.String("error", err.Error()))
	}
	ok(w, "", nil)
}

type unsubscribeRequest struct {
	Email string `json:"email"`
}

func (s *Server) unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decode(r, &req, func(get func(string) string) {
		req.Email = get("email")
	}); err != nil {
		s.error(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		fail(w, http.StatusBadRequest, "email is required", nil)
		return
	}
	if err := s.deps.Unsubscribe.Add(r.Context(), req.Email); err != nil {
		s.error(w, r, err)
		return
	}
	s.log.InfoContext(r.Context(), "address unsubscribed", slog.String("email", req.Email))
	ok(w, "", nil)
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var c dispatch.Campaign
	if err := decode(r, &c, func(get func(string) string) {
		c = dispatch.Campaign{
			SenderName: get("senderName"),
			Identity:   get("email"),
			Credential: get("password"),
			Recipients: get("recipients"),
			Message:    get("message"),
			Subject:    get("subject"),
		}
	}); err != nil {
		s.error(w, r, err)
		return
	}

	ctx := logger.WithAttrs(r.Context(), slog.String("identity", strings.TrimSpace(c.Identity)))
	// A paced campaign outlives impatient clients; a dropped connection must
	// not leave it half sent.
	ack, err := s.deps.Dispatcher.Submit(context.WithoutCancel(ctx), c)
	if err != nil {
		var data any
		if ack != nil {
			data = ack.Result
		}
		var qe *quota.ExceededError
		if errors.As(err, &qe) {
			retryAfter(w, qe.Decision.RetryAfter)
		}
		status, msg := errorStatus(err)
		s.logError(ctx, status, err)
		fail(w, status, msg, data)
		return
	}

	status := http.StatusOK
	if ack.Mode == dispatch.ModeAsync {
		status = http.StatusAccepted
	}
	writeJSON(w, status, Response{Success: true, Message: ack.Message(), Data: ack})
}

// QuotaStatus is the body of GET /quota.
type QuotaStatus struct {
	WindowStart time.Time `json:"window_start,omitzero"`
	LastSentAt  time.Time `json:"last_sent_at,omitzero"`
	Identity    string    `json:"identity"`
	Summary     string    `json:"summary"`
	Count       int       `json:"count"`
	Cap         int       `json:"cap"`
	Remaining   int       `json:"remaining"`
}

func (s *Server) quota(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.URL.Query().Get("identity"))
	if identity == "" {
		fail(w, http.StatusBadRequest, "identity is required", nil)
		return
	}
	now := s.deps.Clock()
	q := s.deps.Ledger.Snapshot(identity, now)
	limit := s.deps.Ledger.Policy().Cap
	st := QuotaStatus{
		Identity:    identity,
		WindowStart: q.WindowStart,
		LastSentAt:  q.LastSentAt,
		Count:       q.Count,
		Cap:         limit,
		Remaining:   max(limit-q.Count, 0),
	}
	st.Summary = fmt.Sprintf("emails sent: %d/%d", st.Count, st.Cap)
	ok(w, st.Summary, st)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Lockout.Trigger(r.Context(), "operator request") {
		fail(w, http.StatusConflict, "Server reset in progress", nil)
		return
	}
	ok(w, "reset started", s.deps.Lockout.State())
}

func (s *Server) lockoutState(w http.ResponseWriter, _ *http.Request) {
	ok(w, "", s.deps.Lockout.State())
}

func (s *Server) error(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	s.logError(r.Context(), status, err)
	fail(w, status, msg, nil)
}

func (s *Server) logError(ctx context.Context, status int, err error) {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.log.ErrorContext(ctx, "request failed", slog.Int("status", status), slog.String("error", err.Error()))
		return
	}
	s.log.InfoContext(ctx, "request rejected", slog.Int("status", status), slog.String("error", err.Error()))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
