package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/mailpace/pkg/rotator"
)

// Mode selects whether Submit waits for the campaign to finish.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// ParseMode maps a configuration value to a Mode. Empty means ModeSync.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSync:
		return ModeSync, nil
	case ModeAsync:
		return ModeAsync, nil
	}
	return "", ErrUnknownMode
}

// Guard reports whether new work may start. lockout.Controller satisfies it.
type Guard interface {
	Guard() error
}

// Blocklist answers whether an address has opted out.
// unsubscribe.Registry satisfies it.
type Blocklist interface {
	Contains(ctx context.Context, address string) (bool, error)
}

const DefaultWorkers = 4

type options struct {
	logger    *slog.Logger
	rotator   *rotator.Rotator
	guard     Guard
	blocklist Blocklist
	clock     func() time.Time
	mode      Mode
	footer    string
	minDelay  time.Duration
	maxDelay  time.Duration
	workers   int
}

func defaultOptions() *options {
	return &options{
		logger:   slog.New(slog.DiscardHandler),
		clock:    time.Now,
		mode:     ModeSync,
		minDelay: DefaultMinDelay,
		maxDelay: DefaultMaxDelay,
		workers:  DefaultWorkers,
	}
}

// Option configures a Dispatcher.
type Option func(*options)

// WithMode sets the Submit mode. Default: ModeSync.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithPacing sets the random delay range between deliveries.
// Default: 60s to 180s.
func WithPacing(min, max time.Duration) Option {
	return func(o *options) {
		o.minDelay = min
		o.maxDelay = max
	}
}

// WithRotator sets the subject and greeting source.
func WithRotator(r *rotator.Rotator) Option {
	return func(o *options) {
		if r != nil {
			o.rotator = r
		}
	}
}

// WithGuard makes every campaign and every recipient check g first.
func WithGuard(g Guard) Option {
	return func(o *options) {
		o.guard = g
	}
}

// WithBlocklist drops opted-out recipients before admission.
func WithBlocklist(b Blocklist) Option {
	return func(o *options) {
		o.blocklist = b
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides time.Now for quota accounting.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.clock = fn
		}
	}
}

// WithFooter replaces the default message footer.
func WithFooter(s string) Option {
	return func(o *options) {
		o.footer = s
	}
}

// WithWorkers caps concurrently running async campaigns. Default: 4.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}
