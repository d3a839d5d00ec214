package dispatch

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	DefaultMinDelay = 60 * time.Second
	DefaultMaxDelay = 180 * time.Second
)

// Pacer waits a uniformly random delay in [min, max] between deliveries.
type Pacer struct {
	draw func(n int64) int64
	min  time.Duration
	max  time.Duration
}

// NewPacer validates the range. A zero range disables waiting.
func NewPacer(min, max time.Duration) (*Pacer, error) {
	if min < 0 || max < min {
		return nil, ErrInvalidPacing
	}
	return &Pacer{min: min, max: max, draw: rand.Int64N}, nil
}

// Delay draws the next delay.
func (p *Pacer) Delay() time.Duration {
	if p.max == p.min {
		return p.min
	}
	return p.min + time.Duration(p.draw(int64(p.max-p.min)+1))
}

// Wait blocks for Delay or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	d := p.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Range returns the configured bounds.
func (p *Pacer) Range() (time.Duration, time.Duration) {
	return p.min, p.max
}
