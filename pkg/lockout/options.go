package lockout

import (
	"context"
	"log/slog"
	"time"
)

// DefaultCooldown is how long the lockout stays engaged.
const DefaultCooldown = 2 * time.Second

// Hook runs on a lockout edge. Errors are logged and do not stop the transition.
type Hook func(ctx context.Context) error

type options struct {
	logger    *slog.Logger
	clock     func() time.Time
	location  *time.Location
	onEngage  []namedHook
	onRelease []namedHook
	cooldown  time.Duration
}

type namedHook struct {
	fn   Hook
	name string
}

func defaultOptions() *options {
	return &options{
		logger:   slog.New(slog.DiscardHandler),
		clock:    time.Now,
		location: time.UTC,
		cooldown: DefaultCooldown,
	}
}

// Option configures a Controller.
type Option func(*options)

// WithCooldown sets how long the lockout stays engaged.
func WithCooldown(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cooldown = d
		}
	}
}

// WithLogger sets the logger for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEngageHook registers a hook run when the lockout engages.
func WithEngageHook(name string, fn Hook) Option {
	return func(o *options) {
		o.onEngage = append(o.onEngage, namedHook{name: name, fn: fn})
	}
}

// WithReleaseHook registers a hook run just before the lockout releases.
func WithReleaseHook(name string, fn Hook) Option {
	return func(o *options) {
		o.onRelease = append(o.onRelease, namedHook{name: name, fn: fn})
	}
}

// WithLocation sets the time zone for cron schedules. Default: UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithClock overrides the time source reported in State. Intended for tests.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.clock = fn
		}
	}
}
