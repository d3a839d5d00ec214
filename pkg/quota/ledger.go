package quota

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Reason explains why admission was refused.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonCapExceeded Reason = "cap exceeded"
	ReasonCooldown    Reason = "cooldown active"
)

// SenderQuota is the budget state of one identity.
type SenderQuota struct {
	WindowStart time.Time
	LastSentAt  time.Time
	Count       int
}

// Decision is the outcome of an admission check.
type Decision struct {
	Reason     Reason
	Allowed    bool
	Count      int
	Cap        int
	Remaining  int
	RetryAfter time.Duration
}

// Message renders the decision for humans, e.g. "cap exceeded (8/10)".
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonCapExceeded:
		return fmt.Sprintf("%s (%d/%d)", ReasonCapExceeded, d.Count, d.Cap)
	case ReasonCooldown:
		return fmt.Sprintf("%s, retry in %s", ReasonCooldown, d.RetryAfter.Round(time.Second))
	default:
		return fmt.Sprintf("allowed (%d/%d)", d.Count, d.Cap)
	}
}

// Err returns nil for an allowed decision and an *ExceededError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &ExceededError{Decision: d}
}

type entry struct {
	mu sync.Mutex
	q  SenderQuota
}

// Ledger tracks per-identity send counts against a Policy.
//
// The identity map is guarded by a single mutex held only for lookup and
// insert. Each identity carries its own lock, so admission and recording for
// one identity never wait on another.
//
// State lives in memory only: a process restart forgets every window.
type Ledger struct {
	entries map[string]*entry
	policy  Policy
	mu      sync.Mutex
}

// NewLedger creates a ledger after validating the policy.
func NewLedger(policy Policy) (*Ledger, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Ledger{
		entries: make(map[string]*entry),
		policy:  policy,
	}, nil
}

// Policy returns the policy the ledger enforces.
func (l *Ledger) Policy() Policy {
	return l.policy
}

// Admit decides whether requested more sends fit into the identity's budget.
// It never mutates the count; an expired window is reset lazily.
func (l *Ledger) Admit(identity string, requested int, now time.Time) Decision {
	requested = max(requested, 0)

	e := l.entry(identity)
	e.mu.Lock()
	defer e.mu.Unlock()

	l.roll(&e.q, now)

	d := Decision{
		Count:     e.q.Count,
		Cap:       l.policy.Cap,
		Remaining: max(l.policy.Cap-e.q.Count, 0),
	}

	if e.q.Count+requested > l.policy.Cap {
		d.Reason = ReasonCapExceeded
		d.RetryAfter = e.q.WindowStart.Add(l.policy.WindowDuration).Sub(now)
		return d
	}

	if l.policy.MinimumGap > 0 && !e.q.LastSentAt.IsZero() {
		if since := now.Sub(e.q.LastSentAt); since < l.policy.MinimumGap {
			d.Reason = ReasonCooldown
			d.RetryAfter = l.policy.MinimumGap - since
			return d
		}
	}

	d.Allowed = true
	return d
}

// RecordSend registers one confirmed delivery for identity.
// It returns the updated quota, or ErrCapReached without changes when the
// window is already full.
func (l *Ledger) RecordSend(identity string, now time.Time) (SenderQuota, error) {
	e := l.entry(identity)
	e.mu.Lock()
	defer e.mu.Unlock()

	l.roll(&e.q, now)
	if e.q.Count >= l.policy.Cap {
		return e.q, ErrCapReached
	}
	e.q.Count++
	e.q.LastSentAt = now
	return e.q, nil
}

// Snapshot returns the identity's quota with window expiry applied.
// Unknown identities report a zero quota and are not created.
func (l *Ledger) Snapshot(identity string, now time.Time) SenderQuota {
	l.mu.Lock()
	e, ok := l.entries[normalizeIdentity(identity)]
	l.mu.Unlock()
	if !ok {
		return SenderQuota{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	l.roll(&e.q, now)
	return e.q
}

// Remaining returns how many sends identity may still perform in the current window.
func (l *Ledger) Remaining(identity string, now time.Time) int {
	return max(l.policy.Cap-l.Snapshot(identity, now).Count, 0)
}

// Reset forgets the identity's quota.
func (l *Ledger) Reset(identity string) {
	l.mu.Lock()
	delete(l.entries, normalizeIdentity(identity))
	l.mu.Unlock()
}

// ResetAll forgets every identity.
func (l *Ledger) ResetAll() {
	l.mu.Lock()
	l.entries = make(map[string]*entry)
	l.mu.Unlock()
}

// Len returns the number of tracked identities.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) entry(identity string) *entry {
	key := normalizeIdentity(identity)

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	return e
}

// roll starts a new window when the current one has expired. Must be called
// with the entry lock held.
func (l *Ledger) roll(q *SenderQuota, now time.Time) {
	if !q.WindowStart.IsZero() && now.Before(q.WindowStart.Add(l.policy.WindowDuration)) {
		return
	}
	q.Count = 0
	q.WindowStart = l.policy.windowStart(now)
}

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
