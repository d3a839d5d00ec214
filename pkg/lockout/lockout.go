// Package lockout implements a global kill-switch. While engaged every new
// campaign and login is refused; entering the locked state wipes quota state
// and sessions, and the switch releases itself after a cooldown.
package lockout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// State is a point-in-time view of the controller.
type State struct {
	Since     time.Time `json:"since,omitzero"`
	ReleaseAt time.Time `json:"release_at,omitzero"`
	ArmedFor  time.Time `json:"armed_for,omitzero"`
	Engaged   bool      `json:"engaged"`
}

// Controller is the Unlocked/Locked state machine.
type Controller struct {
	opts      *options
	cron      *cron.Cron
	release   *time.Timer
	armed     *time.Timer
	since     time.Time
	releaseAt time.Time
	armedFor  time.Time
	wg        sync.WaitGroup
	mu        sync.Mutex
	engaged   bool
	stopped   bool
}

// New creates an unlocked controller.
func New(opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Controller{
		opts: o,
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		),
	}
}

// Engaged reports whether the lockout is active.
func (c *Controller) Engaged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engaged
}

// Guard returns ErrActive while the lockout is engaged.
func (c *Controller) Guard() error {
	if c.Engaged() {
		return ErrActive
	}
	return nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Engaged:   c.engaged,
		Since:     c.since,
		ReleaseAt: c.releaseAt,
		ArmedFor:  c.armedFor,
	}
}

// Trigger engages the lockout and runs the engage hooks. It reports false,
// without side effects, when the lockout is already engaged or stopped.
func (c *Controller) Trigger(ctx context.Context, reason string) bool {
	c.mu.Lock()
	if c.engaged || c.stopped {
		c.mu.Unlock()
		return false
	}
	now := c.opts.clock()
	c.engaged = true
	c.since = now
	c.releaseAt = now.Add(c.opts.cooldown)
	c.wg.Add(1)
	c.mu.Unlock()

	c.opts.logger.InfoContext(ctx, "lockout engaged",
		slog.String("reason", reason),
		slog.Duration("cooldown", c.opts.cooldown),
	)

	c.runHooks(ctx, "engage", c.opts.onEngage)

	c.mu.Lock()
	c.release = time.AfterFunc(c.opts.cooldown, c.unlock)
	c.mu.Unlock()

	return true
}

// ArmAfter schedules a Trigger after d. It reports false when a timer is
// already pending, so the earliest deadline wins.
func (c *Controller) ArmAfter(d time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.armed != nil {
		return false
	}
	c.armedFor = c.opts.clock().Add(d)
	c.armed = time.AfterFunc(d, func() {
		c.mu.Lock()
		c.armed = nil
		c.armedFor = time.Time{}
		c.mu.Unlock()
		c.Trigger(context.Background(), "armed timer")
	})
	return true
}

// Disarm cancels a pending ArmAfter timer.
func (c *Controller) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed != nil {
		c.armed.Stop()
		c.armed = nil
		c.armedFor = time.Time{}
	}
}

// Schedule triggers the lockout on a cron expression (5 fields or a
// descriptor such as "@daily"). Call Start to begin running schedules.
func (c *Controller) Schedule(spec string) error {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	_, err := c.cron.AddFunc(spec, func() {
		c.Trigger(context.Background(), "schedule "+spec)
	})
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, spec, err)
	}
	return nil
}

// Start runs cron schedules in the background.
func (c *Controller) Start() {
	c.cron.Start()
}

// Stop halts schedules and timers. An engaged lockout is released
// immediately so its release hooks still run. Stop blocks until in-flight
// transitions complete or ctx is done.
func (c *Controller) Stop(ctx context.Context) error {
	cronDone := c.cron.Stop()

	c.mu.Lock()
	c.stopped = true
	if c.armed != nil {
		c.armed.Stop()
		c.armed = nil
	}
	releaseNow := c.engaged && c.release != nil && c.release.Stop()
	c.mu.Unlock()

	if releaseNow {
		c.unlock()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		<-cronDone.Done()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) unlock() {
	defer c.wg.Done()

	ctx := context.Background()
	c.runHooks(ctx, "release", c.opts.onRelease)

	c.mu.Lock()
	c.engaged = false
	c.since = time.Time{}
	c.releaseAt = time.Time{}
	c.release = nil
	c.mu.Unlock()

	c.opts.logger.InfoContext(ctx, "lockout released")
}

func (c *Controller) runHooks(ctx context.Context, edge string, hooks []namedHook) {
	var errs []error
	for _, h := range hooks {
		if err := h.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	if len(errs) > 0 {
		c.opts.logger.ErrorContext(ctx, "lockout hooks failed",
			slog.String("edge", edge),
			slog.Any("error", errors.Join(errs...)),
		)
	}
}
