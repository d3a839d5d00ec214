// Package rotator picks cosmetic per-message content (subject line, greeting)
// from fixed pools so that consecutive messages of one campaign are not
// textually identical.
package rotator

import (
	"math/rand/v2"
	"sync/atomic"
)

// DefaultSubjects is the subject pool used when no custom pool is configured.
var DefaultSubjects = []string{
	"Quick question",
	"Just checking in",
	"Regarding your interest",
	"One small update",
	"Thought this might help",
}

// DefaultGreetings is the greeting pool used when no custom pool is configured.
var DefaultGreetings = []string{
	"Hi",
	"Hello",
	"Hey",
	"Greetings",
}

// Strategy selects how the next element of a pool is chosen.
type Strategy int

const (
	// Random picks a uniformly random element on every call.
	Random Strategy = iota
	// Cycle walks the pool in order and wraps around.
	Cycle
)

// Pool is a non-empty list of interchangeable strings.
// It is safe for concurrent use.
type Pool struct {
	items    []string
	strategy Strategy
	next     atomic.Uint64
}

// NewPool creates a pool over a copy of items.
// Returns ErrEmptyPool when items has no elements.
func NewPool(strategy Strategy, items ...string) (*Pool, error) {
	if len(items) == 0 {
		return nil, ErrEmptyPool
	}
	return &Pool{
		items:    append([]string(nil), items...),
		strategy: strategy,
	}, nil
}

// MustPool is like NewPool but panics on error.
func MustPool(strategy Strategy, items ...string) *Pool {
	p, err := NewPool(strategy, items...)
	if err != nil {
		panic(err)
	}
	return p
}

// Pick returns the next element according to the pool strategy.
func (p *Pool) Pick() string {
	if p.strategy == Cycle {
		i := p.next.Add(1) - 1
		return p.items[i%uint64(len(p.items))]
	}
	return p.items[rand.IntN(len(p.items))]
}

// Items returns a copy of the pool contents.
func (p *Pool) Items() []string {
	return append([]string(nil), p.items...)
}

// Content is the cosmetic content selected for a single message.
type Content struct {
	Subject  string
	Greeting string
}

// Rotator draws subject and greeting pairs from its pools.
type Rotator struct {
	subjects  *Pool
	greetings *Pool
}

// New creates a rotator. Missing pools fall back to the defaults with the
// Random strategy.
func New(opts ...Option) *Rotator {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.subjects == nil {
		o.subjects = MustPool(Random, DefaultSubjects...)
	}
	if o.greetings == nil {
		o.greetings = MustPool(Random, DefaultGreetings...)
	}
	return &Rotator{subjects: o.subjects, greetings: o.greetings}
}

// Next returns content for the next message.
func (r *Rotator) Next() Content {
	return Content{
		Subject:  r.subjects.Pick(),
		Greeting: r.greetings.Pick(),
	}
}

// Subject returns the next subject line.
func (r *Rotator) Subject() string { return r.subjects.Pick() }

// Greeting returns the next greeting.
func (r *Rotator) Greeting() string { return r.greetings.Pick() }
