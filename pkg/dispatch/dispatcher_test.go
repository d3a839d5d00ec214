package dispatch_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailpace/pkg/dispatch"
	"github.com/dmitrymomot/mailpace/pkg/lockout"
	"github.com/dmitrymomot/mailpace/pkg/logger"
	"github.com/dmitrymomot/mailpace/pkg/mailer"
	"github.com/dmitrymomot/mailpace/pkg/quota"
	"github.com/dmitrymomot/mailpace/pkg/rotator"
	"github.com/dmitrymomot/mailpace/pkg/unsubscribe"
)

const identity = "ops@example.com"

var epoch = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// fakeTransport records every email and fails the failAt-th send (1-based).
type fakeTransport struct {
	release chan struct{} // when set, each Send waits for a value
	started chan string   // when set, receives the recipient before sending
	sent    []*mailer.Email
	creds   []mailer.Credentials
	failAt  int
	calls   int
	opened  int
	mu      sync.Mutex
	openErr error
}

func (f *fakeTransport) Open(_ context.Context, creds mailer.Credentials) (mailer.Sender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	f.creds = append(f.creds, creds)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return mailer.SenderFunc(f.send), nil
}

func (f *fakeTransport) send(ctx context.Context, email *mailer.Email) error {
	if f.started != nil {
		f.started <- email.To[0]
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == f.failAt {
		return errors.New("550 mailbox unavailable")
	}
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeTransport) snapshot() (opened, calls int, sent []*mailer.Email) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, f.calls, append([]*mailer.Email(nil), f.sent...)
}

type switchGuard struct{ engaged atomic.Bool }

func (g *switchGuard) Guard() error {
	if g.engaged.Load() {
		return lockout.ErrActive
	}
	return nil
}

func newLedger(t *testing.T, p quota.Policy) *quota.Ledger {
	t.Helper()
	l, err := quota.NewLedger(p)
	require.NoError(t, err)
	return l
}

func newDispatcher(t *testing.T, l *quota.Ledger, tr mailer.Transport, opts ...dispatch.Option) *dispatch.Dispatcher {
	t.Helper()
	opts = append([]dispatch.Option{
		dispatch.WithPacing(0, 0),
		dispatch.WithClock(func() time.Time { return epoch }),
	}, opts...)
	d, err := dispatch.New(l, tr, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Shutdown(context.Background()) })
	return d
}

func campaign(recipients string) dispatch.Campaign {
	return dispatch.Campaign{
		Identity:   identity,
		Credential: "app-password",
		Recipients: recipients,
		Message:    "Our spring catalogue is out.",
	}
}

func TestDispatch_DeliversInOrder(t *testing.T) {
	t.Parallel()

	ledger := newLedger(t, quota.HourlyPolicy())
	tr := &fakeTransport{}
	d := newDispatcher(t, ledger, tr)

	var outcomes []dispatch.Outcome
	c := campaign("a@example.com,\n b@example.com\n\n,c@example.com")
	c.SenderName = "Acme"
	c.OnOutcome = func(o dispatch.Outcome) { outcomes = append(outcomes, o) }

	res, err := d.Dispatch(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, "emails sent: 3/10", res.Summary)
	assert.NotEmpty(t, res.CampaignID)

	opened, _, sent := tr.snapshot()
	assert.Equal(t, 1, opened)
	require.Len(t, sent, 3)
	seen := map[string]bool{}
	for i, want := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		assert.Equal(t, []string{want}, sent[i].To)
		assert.Equal(t, identity, sent[i].ReplyTo)
		assert.Equal(t, `"Acme" <ops@example.com>`, sent[i].From)
		assert.Contains(t, rotator.DefaultSubjects, sent[i].Subject)
		id := sent[i].Header("Message-ID")
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "Message-ID must be unique")
		seen[id] = true
	}

	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.NoError(t, o.Err)
		assert.Equal(t, i, o.Index)
		assert.Equal(t, sent[i].Header("Message-ID"), o.MessageID)
	}
}

func TestDispatch_FailFast(t *testing.T) {
	t.Parallel()

	ledger := newLedger(t, quota.HourlyPolicy())
	tr := &fakeTransport{failAt: 3}
	d := newDispatcher(t, ledger, tr)

	res, err := d.Dispatch(context.Background(), campaign("r1@x.io,r2@x.io,r3@x.io,r4@x.io,r5@x.io"))
	require.Error(t, err)
	assert.ErrorIs(t, err, mailer.ErrTransport)

	var te *mailer.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "r3@x.io", te.Recipient)

	require.NotNil(t, res)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, "emails sent: 2/10", res.Summary)
	assert.Equal(t, 2, ledger.Snapshot(identity, epoch).Count)

	_, calls, _ := tr.snapshot()
	assert.Equal(t, 3, calls, "r4 and r5 must never be attempted")
}

func TestDispatch_FailureLogMasksRecipient(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: logger.RedactAttr}))
	d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), &fakeTransport{failAt: 1}, dispatch.WithLogger(log))

	_, err := d.Dispatch(context.Background(), campaign("margaret@x.io"))
	require.ErrorIs(t, err, mailer.ErrTransport)

	assert.Contains(t, buf.String(), "campaign aborted")
	assert.NotContains(t, buf.String(), "margaret@x.io")
	assert.Contains(t, buf.String(), "ma***@x.io")
}

func TestDispatch_RejectsOverCapWithoutSending(t *testing.T) {
	t.Parallel()

	ledger := newLedger(t, quota.HourlyPolicy())
	for range 8 {
		_, err := ledger.RecordSend(identity, epoch.Add(-time.Minute))
		require.NoError(t, err)
	}
	tr := &fakeTransport{}
	d := newDispatcher(t, ledger, tr)

	res, err := d.Dispatch(context.Background(), campaign("a@x.io,b@x.io,c@x.io"))
	assert.Nil(t, res)
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.ErrorIs(t, err, quota.ErrCapExceeded)
	assert.Contains(t, err.Error(), "8/10")

	opened, calls, _ := tr.snapshot()
	assert.Zero(t, opened)
	assert.Zero(t, calls)
	assert.Equal(t, 8, ledger.Snapshot(identity, epoch).Count)
}

func TestDispatch_DailyStrict(t *testing.T) {
	t.Parallel()

	t.Run("more than one recipient is invalid", func(t *testing.T) {
		t.Parallel()

		ledger := newLedger(t, quota.DailyStrictPolicy())
		tr := &fakeTransport{}
		d := newDispatcher(t, ledger, tr)

		_, err := d.Dispatch(context.Background(), campaign("a@x.io\nb@x.io"))
		require.ErrorIs(t, err, dispatch.ErrValidation)

		var ve *dispatch.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "recipients", ve.Field)
		assert.Contains(t, ve.Reason, "at most 1")

		opened, _, _ := tr.snapshot()
		assert.Zero(t, opened)
		assert.Zero(t, ledger.Len())
	})

	t.Run("second campaign within the gap is cooling down", func(t *testing.T) {
		t.Parallel()

		now := epoch
		ledger := newLedger(t, quota.DailyStrictPolicy())
		d := newDispatcher(t, ledger, &fakeTransport{}, dispatch.WithClock(func() time.Time { return now }))

		res, err := d.Dispatch(context.Background(), campaign("a@x.io"))
		require.NoError(t, err)
		assert.Equal(t, "emails sent: 1/2", res.Summary)

		now = epoch.Add(10 * time.Minute)
		_, err = d.Dispatch(context.Background(), campaign("b@x.io"))
		require.ErrorIs(t, err, quota.ErrCooldownActive)

		var qe *quota.ExceededError
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, 20*time.Minute, qe.Decision.RetryAfter)
	})
}

func TestDispatch_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*dispatch.Campaign)
		field  string
	}{
		{"missing identity", func(c *dispatch.Campaign) { c.Identity = " " }, "email"},
		{"missing credential", func(c *dispatch.Campaign) { c.Credential = "" }, "password"},
		{"missing recipients", func(c *dispatch.Campaign) { c.Recipients = "\n" }, "recipients"},
		{"only separators", func(c *dispatch.Campaign) { c.Recipients = ", ,\n," }, "recipients"},
		{"missing message", func(c *dispatch.Campaign) { c.Message = "" }, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := &fakeTransport{}
			d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr)
			c := campaign("a@x.io")
			tt.mutate(&c)

			_, err := d.Dispatch(context.Background(), c)
			var ve *dispatch.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)

			opened, _, _ := tr.snapshot()
			assert.Zero(t, opened)
		})
	}
}

func TestDispatch_CredentialErrorIsValidation(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{openErr: mailer.ErrInvalidCredentials}
	d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr)

	_, err := d.Dispatch(context.Background(), campaign("a@x.io"))
	require.ErrorIs(t, err, dispatch.ErrValidation)
}

func TestDispatch_OpenFailureIsTransportError(t *testing.T) {
	t.Parallel()

	ledger := newLedger(t, quota.HourlyPolicy())
	tr := &fakeTransport{openErr: errors.New("dial tcp: refused")}
	d := newDispatcher(t, ledger, tr)

	_, err := d.Dispatch(context.Background(), campaign("a@x.io"))
	require.ErrorIs(t, err, mailer.ErrTransport)
	assert.Zero(t, ledger.Snapshot(identity, epoch).Count)
}

func TestDispatch_SkipsUnsubscribed(t *testing.T) {
	t.Parallel()

	reg := unsubscribe.NewMemory()
	require.NoError(t, reg.Add(context.Background(), "Gone@X.io"))

	tr := &fakeTransport{}
	d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr, dispatch.WithBlocklist(reg))

	res, err := d.Dispatch(context.Background(), campaign("a@x.io,gone@x.io,a@x.io"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent, "duplicates are delivered twice")
	assert.Equal(t, 1, res.Skipped)

	_, err = d.Dispatch(context.Background(), campaign("gone@x.io"))
	require.ErrorIs(t, err, dispatch.ErrValidation)
}

type brokenBlocklist struct{}

func (brokenBlocklist) Contains(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestDispatch_BlocklistFailureAborts(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{}
	d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr, dispatch.WithBlocklist(brokenBlocklist{}))

	_, err := d.Dispatch(context.Background(), campaign("a@x.io"))
	require.ErrorIs(t, err, dispatch.ErrBlocklist)

	opened, calls, _ := tr.snapshot()
	assert.Zero(t, opened)
	assert.Zero(t, calls)
}

func TestDispatch_SubjectOverride(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{}
	d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr,
		dispatch.WithRotator(rotator.New(rotator.WithGreetings(rotator.MustPool(rotator.Cycle, "Howdy")))),
		dispatch.WithFooter("Reply STOP to opt out."),
	)

	c := campaign("a@x.io")
	c.Subject = "Quarterly results"
	_, err := d.Dispatch(context.Background(), c)
	require.NoError(t, err)

	_, _, sent := tr.snapshot()
	require.Len(t, sent, 1)
	assert.Equal(t, "Quarterly results", sent[0].Subject)
	assert.Equal(t, `"Support" <ops@example.com>`, sent[0].From)
	assert.Contains(t, sent[0].Text, "Howdy,")
	assert.Contains(t, sent[0].Text, "Reply STOP to opt out.")
}

func TestDispatch_Lockout(t *testing.T) {
	t.Parallel()

	t.Run("engaged before submission", func(t *testing.T) {
		t.Parallel()

		g := &switchGuard{}
		g.engaged.Store(true)
		tr := &fakeTransport{}
		d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr, dispatch.WithGuard(g))

		_, err := d.Dispatch(context.Background(), campaign("a@x.io"))
		require.ErrorIs(t, err, lockout.ErrActive)
		opened, _, _ := tr.snapshot()
		assert.Zero(t, opened)
	})

	t.Run("engaged mid campaign stops the rest", func(t *testing.T) {
		t.Parallel()

		g := &switchGuard{}
		tr := &fakeTransport{}
		d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr, dispatch.WithGuard(g))

		c := campaign("a@x.io,b@x.io,c@x.io")
		c.OnOutcome = func(dispatch.Outcome) { g.engaged.Store(true) }

		res, err := d.Dispatch(context.Background(), c)
		require.ErrorIs(t, err, lockout.ErrActive)
		assert.Equal(t, 1, res.Sent)
	})

	t.Run("reset stops running campaigns after the cooldown ends", func(t *testing.T) {
		t.Parallel()

		ledger := newLedger(t, quota.HourlyPolicy())
		var d *dispatch.Dispatcher
		lock := lockout.New(
			lockout.WithCooldown(10*time.Millisecond),
			lockout.WithEngageHook("campaigns", func(ctx context.Context) error { return d.Interrupt(ctx) }),
			lockout.WithEngageHook("quota", func(context.Context) error { ledger.ResetAll(); return nil }),
		)
		t.Cleanup(func() { _ = lock.Stop(context.Background()) })

		tr := &fakeTransport{started: make(chan string, 4)}
		// The pacing delay outlasts the cooldown, so the guard alone would
		// let the campaign resume once the lockout releases.
		d = newDispatcher(t, ledger, tr,
			dispatch.WithGuard(lock),
			dispatch.WithPacing(100*time.Millisecond, 100*time.Millisecond),
		)

		type outcome struct {
			res *dispatch.Result
			err error
		}
		done := make(chan outcome, 1)
		go func() {
			res, err := d.Dispatch(context.Background(), campaign("a@x.io,b@x.io,c@x.io"))
			done <- outcome{res, err}
		}()

		<-tr.started
		require.True(t, lock.Trigger(context.Background(), "test"))

		var got outcome
		select {
		case got = <-done:
		case <-time.After(time.Second):
			t.Fatal("campaign kept running after the reset")
		}
		require.ErrorIs(t, got.err, dispatch.ErrInterrupted)
		assert.Equal(t, 1, got.res.Sent)

		require.Eventually(t, func() bool { return !lock.Engaged() }, time.Second, 5*time.Millisecond)
		time.Sleep(150 * time.Millisecond)
		_, calls, _ := tr.snapshot()
		assert.Equal(t, 1, calls, "nothing is delivered after the reset")

		res, err := d.Dispatch(context.Background(), campaign("d@x.io"))
		require.NoError(t, err, "campaigns submitted after the reset run normally")
		assert.Equal(t, 1, res.Sent)
	})

	t.Run("reset stops async campaigns", func(t *testing.T) {
		t.Parallel()

		tr := &fakeTransport{started: make(chan string, 4)}
		d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr,
			dispatch.WithMode(dispatch.ModeAsync),
			dispatch.WithPacing(time.Hour, time.Hour),
		)

		outcomes := make(chan dispatch.Outcome, 4)
		c := campaign("a@x.io,b@x.io")
		c.OnOutcome = func(o dispatch.Outcome) { outcomes <- o }
		_, err := d.Submit(context.Background(), c)
		require.NoError(t, err)
		<-tr.started
		<-outcomes

		require.NoError(t, d.Interrupt(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, d.Shutdown(ctx), "interrupted campaign must not hold the worker")
		_, calls, _ := tr.snapshot()
		assert.Equal(t, 1, calls)
	})
}

func TestDispatch_ContextCancelledDuringPacing(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{}
	d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr, dispatch.WithPacing(time.Hour, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	c := campaign("a@x.io,b@x.io")
	c.OnOutcome = func(dispatch.Outcome) { cancel() }

	res, err := d.Dispatch(ctx, c)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, "emails sent: 1/10", res.Summary)
}

func TestDispatch_SerializesPerIdentity(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{release: make(chan struct{}), started: make(chan string, 4)}
	d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr)

	var wg sync.WaitGroup
	for _, to := range []string{"a@x.io", "b@x.io"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Dispatch(context.Background(), campaign(to))
			assert.NoError(t, err)
		}()
	}

	<-tr.started
	select {
	case <-tr.started:
		t.Fatal("second campaign for the same identity started while the first was running")
	case <-time.After(50 * time.Millisecond):
	}

	tr.release <- struct{}{}
	<-tr.started
	tr.release <- struct{}{}
	wg.Wait()
}

func TestDispatch_DifferentIdentitiesRunConcurrently(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{release: make(chan struct{}), started: make(chan string, 2)}
	d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr)

	var wg sync.WaitGroup
	for _, id := range []string{"one@example.com", "two@example.com"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := campaign("a@x.io")
			c.Identity = id
			_, err := d.Dispatch(context.Background(), c)
			assert.NoError(t, err)
		}()
	}

	for range 2 {
		select {
		case <-tr.started:
		case <-time.After(time.Second):
			t.Fatal("campaigns for different identities must not block each other")
		}
	}
	close(tr.release)
	wg.Wait()
}

func TestSubmit_Sync(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), &fakeTransport{})
	ack, err := d.Submit(context.Background(), campaign("a@x.io"))
	require.NoError(t, err)
	assert.Equal(t, dispatch.ModeSync, ack.Mode)
	require.NotNil(t, ack.Result)
	assert.Equal(t, "emails sent: 1/10", ack.Message())
}

func TestSubmit_Async(t *testing.T) {
	t.Parallel()

	ledger := newLedger(t, quota.HourlyPolicy())
	tr := &fakeTransport{release: make(chan struct{})}
	d := newDispatcher(t, ledger, tr, dispatch.WithMode(dispatch.ModeAsync))

	done := make(chan dispatch.Outcome, 2)
	c := campaign("a@x.io,b@x.io")
	c.OnOutcome = func(o dispatch.Outcome) { done <- o }

	ctx, cancel := context.WithCancel(context.Background())
	ack, err := d.Submit(ctx, c)
	require.NoError(t, err)
	cancel() // the request ending must not stop delivery

	assert.Equal(t, dispatch.ModeAsync, ack.Mode)
	assert.Nil(t, ack.Result)
	assert.Equal(t, 2, ack.Queued)
	assert.Equal(t, "campaign accepted: 2 recipient(s) queued", ack.Message())

	t.Run("same identity is busy", func(t *testing.T) {
		_, err := d.Submit(context.Background(), campaign("c@x.io"))
		require.ErrorIs(t, err, dispatch.ErrBusy)
	})

	close(tr.release)
	for range 2 {
		select {
		case o := <-done:
			assert.NoError(t, o.Err)
		case <-time.After(time.Second):
			t.Fatal("async campaign did not finish")
		}
	}

	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, 2, ledger.Snapshot(identity, epoch).Count)
}

func TestSubmit_NoFreeWorker(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{release: make(chan struct{})}
	d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr,
		dispatch.WithMode(dispatch.ModeAsync),
		dispatch.WithWorkers(1),
	)

	_, err := d.Submit(context.Background(), campaign("a@x.io"))
	require.NoError(t, err)

	other := campaign("b@x.io")
	other.Identity = "sales@example.com"
	_, err = d.Submit(context.Background(), other)
	require.ErrorIs(t, err, dispatch.ErrNoWorker)

	close(tr.release)
	require.NoError(t, d.Shutdown(context.Background()))
}

func TestSubmit_AsyncRejectionsAreSynchronous(t *testing.T) {
	t.Parallel()

	ledger := newLedger(t, quota.HourlyPolicy())
	for range 10 {
		_, err := ledger.RecordSend(identity, epoch)
		require.NoError(t, err)
	}
	d := newDispatcher(t, ledger, &fakeTransport{}, dispatch.WithMode(dispatch.ModeAsync))

	_, err := d.Submit(context.Background(), campaign("a@x.io"))
	require.ErrorIs(t, err, quota.ErrCapExceeded)
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	t.Run("refuses new campaigns", func(t *testing.T) {
		t.Parallel()

		d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), &fakeTransport{})
		require.NoError(t, d.Shutdown(context.Background()))

		_, err := d.Dispatch(context.Background(), campaign("a@x.io"))
		require.ErrorIs(t, err, dispatch.ErrClosed)
	})

	t.Run("deadline cancels paced campaigns", func(t *testing.T) {
		t.Parallel()

		tr := &fakeTransport{started: make(chan string, 2)}
		d := newDispatcher(t, newLedger(t, quota.HourlyPolicy()), tr,
			dispatch.WithMode(dispatch.ModeAsync),
			dispatch.WithPacing(time.Hour, time.Hour),
		)
		_, err := d.Submit(context.Background(), campaign("a@x.io,b@x.io"))
		require.NoError(t, err)
		<-tr.started

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)

		_, calls, _ := tr.snapshot()
		assert.Equal(t, 1, calls)
	})
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	ledger := newLedger(t, quota.HourlyPolicy())

	_, err := dispatch.New(nil, &fakeTransport{})
	require.Error(t, err)

	_, err = dispatch.New(ledger, &fakeTransport{}, dispatch.WithPacing(time.Minute, time.Second))
	require.ErrorIs(t, err, dispatch.ErrInvalidPacing)

	_, err = dispatch.New(ledger, &fakeTransport{}, dispatch.WithMode("batch"))
	require.ErrorIs(t, err, dispatch.ErrUnknownMode)
}
