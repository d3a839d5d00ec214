package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/mailpace/pkg/logger"
	"github.com/dmitrymomot/mailpace/pkg/mailer"
	"github.com/dmitrymomot/mailpace/pkg/quota"
	"github.com/dmitrymomot/mailpace/pkg/rotator"
)

// Dispatcher delivers campaigns one recipient at a time, paced by a random
// delay and bounded by the quota ledger.
//
// Campaigns for the same identity never overlap. Campaigns for different
// identities run concurrently.
type Dispatcher struct {
	ledger    *quota.Ledger
	transport mailer.Transport
	pacer     *Pacer
	locks     *keyedMutex
	opts      *options

	base    context.Context
	cancel  context.CancelFunc
	// epoch is replaced by Interrupt; runs bound to the old one stop.
	epoch     context.Context
	interrupt context.CancelCauseFunc
	workers   errgroup.Group
	running sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

// New creates a dispatcher bound to ledger and transport.
func New(ledger *quota.Ledger, transport mailer.Transport, opts ...Option) (*Dispatcher, error) {
	if ledger == nil || transport == nil {
		return nil, errors.New("dispatch: ledger and transport are required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.rotator == nil {
		o.rotator = rotator.New()
	}
	if _, err := ParseMode(string(o.mode)); err != nil {
		return nil, err
	}
	pacer, err := NewPacer(o.minDelay, o.maxDelay)
	if err != nil {
		return nil, err
	}

	base, cancel := context.WithCancel(context.Background())
	epoch, interrupt := context.WithCancelCause(base)
	d := &Dispatcher{
		ledger:    ledger,
		transport: transport,
		pacer:     pacer,
		locks:     newKeyedMutex(),
		opts:      o,
		base:      base,
		cancel:    cancel,
		epoch:     epoch,
		interrupt: interrupt,
	}
	d.workers.SetLimit(o.workers)
	return d, nil
}

// Mode returns the configured Submit mode.
func (d *Dispatcher) Mode() Mode {
	return d.opts.mode
}

// Submit runs c according to the configured mode. In ModeSync it behaves
// like Dispatch. In ModeAsync it returns once the campaign is admitted and
// delivers on a background worker; delivery failures are only logged.
func (d *Dispatcher) Submit(ctx context.Context, c Campaign) (*Ack, error) {
	if d.opts.mode == ModeSync {
		res, err := d.Dispatch(ctx, c)
		if res == nil {
			return nil, err
		}
		return &Ack{CampaignID: res.CampaignID, Mode: ModeSync, Queued: res.Total, Result: res}, err
	}
	return d.enqueue(ctx, c)
}

// Dispatch delivers c and blocks until every recipient is handled or the
// first failure aborts the rest. Rejections before the first delivery return
// a nil Result. Once delivery has started the Result is always returned,
// alongside the error that stopped it.
func (d *Dispatcher) Dispatch(ctx context.Context, c Campaign) (*Result, error) {
	if err := d.acquire(); err != nil {
		return nil, err
	}
	defer d.running.Done()

	p, err := d.prepare(ctx, c)
	if err != nil {
		return nil, err
	}

	unlock, err := d.locks.Lock(ctx, identityKey(c.Identity))
	if err != nil {
		return nil, err
	}
	defer unlock()

	runCtx, stop := d.bind(ctx)
	defer stop()
	sender, err := d.admit(runCtx, p)
	if err != nil {
		return nil, err
	}
	return d.run(runCtx, p, sender)
}

func (d *Dispatcher) enqueue(ctx context.Context, c Campaign) (*Ack, error) {
	if err := d.acquire(); err != nil {
		return nil, err
	}
	handedOff := false
	defer func() {
		if !handedOff {
			d.running.Done()
		}
	}()

	p, err := d.prepare(ctx, c)
	if err != nil {
		return nil, err
	}

	unlock, ok := d.locks.TryLock(identityKey(c.Identity))
	if !ok {
		return nil, ErrBusy
	}
	runCtx, stop := d.bind(d.base)
	sender, err := d.admit(ctx, p)
	if err != nil {
		stop()
		unlock()
		return nil, err
	}

	ok = d.workers.TryGo(func() error {
		defer d.running.Done()
		defer unlock()
		defer stop()
		// run logs the failure; there is no caller left to return it to.
		_, _ = d.run(runCtx, p, sender)
		return nil
	})
	if !ok {
		stop()
		unlock()
		return nil, ErrNoWorker
	}
	handedOff = true

	return &Ack{CampaignID: p.id, Mode: ModeAsync, Queued: len(p.recipients)}, nil
}

// Shutdown stops accepting campaigns and waits for running ones. When ctx
// expires first, running campaigns are cancelled between recipients.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.running.Wait()
		_ = d.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

// Interrupt stops every campaign running now. They end between recipients
// with ErrInterrupted; campaigns submitted afterwards are unaffected. The
// signature matches a lockout hook.
func (d *Dispatcher) Interrupt(ctx context.Context) error {
	d.mu.Lock()
	d.interrupt(ErrInterrupted)
	d.epoch, d.interrupt = context.WithCancelCause(d.base)
	d.mu.Unlock()

	d.opts.logger.InfoContext(ctx, "running campaigns interrupted")
	return nil
}

func (d *Dispatcher) acquire() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	d.running.Add(1)
	return nil
}

// bind ties ctx to the dispatcher lifetime and the current epoch, so
// Shutdown and Interrupt reach sync runs too.
func (d *Dispatcher) bind(ctx context.Context) (context.Context, func()) {
	d.mu.RLock()
	epoch := d.epoch
	d.mu.RUnlock()

	ctx, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(epoch, func() { cancel(context.Cause(epoch)) })
	return ctx, func() {
		stop()
		cancel(nil)
	}
}

type plan struct {
	campaign   Campaign
	id         string
	identity   string
	recipients []string
	skipped    int
}

// prepare runs every check that needs no identity lock.
func (d *Dispatcher) prepare(ctx context.Context, c Campaign) (*plan, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	recipients, skipped, err := d.filter(ctx, SplitRecipients(c.Recipients))
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, invalid("recipients", "no deliverable recipients after removing unsubscribed addresses")
	}
	if limit := d.ledger.Policy().MaxRecipientsPerCampaign; limit > 0 && len(recipients) > limit {
		return nil, invalid("recipients", "at most %d recipient(s) per campaign, got %d", limit, len(recipients))
	}

	return &plan{
		campaign:   c,
		id:         uuid.NewString(),
		identity:   strings.TrimSpace(c.Identity),
		recipients: recipients,
		skipped:    skipped,
	}, nil
}

// admit must run under the identity lock.
func (d *Dispatcher) admit(ctx context.Context, p *plan) (mailer.Sender, error) {
	decision := d.ledger.Admit(p.identity, len(p.recipients), d.opts.clock())
	if !decision.Allowed {
		d.opts.logger.InfoContext(ctx, "campaign rejected by quota",
			slog.String("identity", p.identity),
			slog.String("reason", decision.Message()),
		)
		return nil, decision.Err()
	}

	sender, err := d.transport.Open(ctx, p.campaign.credentials())
	switch {
	case errors.Is(err, mailer.ErrMissingCredentials), errors.Is(err, mailer.ErrInvalidCredentials):
		return nil, &ValidationError{Field: "password", Reason: err.Error()}
	case err != nil:
		return nil, asTransportError("", err)
	}
	return sender, nil
}

func (d *Dispatcher) filter(ctx context.Context, list []string) ([]string, int, error) {
	if d.opts.blocklist == nil {
		return list, 0, nil
	}
	out := list[:0]
	skipped := 0
	for _, addr := range list {
		blocked, err := d.opts.blocklist.Contains(ctx, addr)
		if err != nil {
			return nil, 0, errors.Join(ErrBlocklist, err)
		}
		if blocked {
			skipped++
			continue
		}
		out = append(out, addr)
	}
	return out, skipped, nil
}

func (d *Dispatcher) guard() error {
	if d.opts.guard == nil {
		return nil
	}
	return d.opts.guard.Guard()
}

// run delivers to each recipient in order and stops at the first failure.
// Nothing is retried and successful deliveries are never rolled back.
func (d *Dispatcher) run(ctx context.Context, p *plan, sender mailer.Sender) (*Result, error) {
	ctx = logger.WithAttrs(ctx, slog.String("campaign_id", p.id))
	log := d.opts.logger
	res := &Result{
		CampaignID: p.id,
		Identity:   p.identity,
		Total:      len(p.recipients),
		Skipped:    p.skipped,
		Cap:        d.ledger.Policy().Cap,
		StartedAt:  d.opts.clock(),
	}

	log.InfoContext(ctx, "campaign started",
		slog.String("identity", p.identity),
		slog.Int("recipients", res.Total),
		slog.Int("skipped", res.Skipped),
	)

	err := d.loop(ctx, p, sender, res)

	res.FinishedAt = d.opts.clock()
	res.Count = d.ledger.Snapshot(p.identity, res.FinishedAt).Count
	res.Summary = summary(res.Count, res.Cap)

	attrs := []any{
		slog.String("identity", p.identity),
		slog.Int("sent", res.Sent),
		slog.Int("total", res.Total),
		slog.String("summary", res.Summary),
	}
	if err != nil {
		log.ErrorContext(ctx, "campaign aborted", append(attrs, slog.String("error", err.Error()))...)
		return res, err
	}
	log.InfoContext(ctx, "campaign finished", attrs...)
	return res, nil
}

func (d *Dispatcher) loop(ctx context.Context, p *plan, sender mailer.Sender, res *Result) error {
	for i, rcpt := range p.recipients {
		if i > 0 {
			if err := d.pacer.Wait(ctx); err != nil {
				return context.Cause(ctx)
			}
		}
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if err := d.guard(); err != nil {
			return err
		}

		out := d.deliver(ctx, p, sender, i, rcpt)
		if p.campaign.OnOutcome != nil {
			p.campaign.OnOutcome(out)
		}
		if out.Err != nil {
			return out.Err
		}
		res.Sent++
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, p *plan, sender mailer.Sender, i int, rcpt string) Outcome {
	content := d.opts.rotator.Next()
	if s := strings.TrimSpace(p.campaign.Subject); s != "" {
		content.Subject = s
	}
	out := Outcome{CampaignID: p.id, Index: i, Recipient: rcpt, Subject: content.Subject}

	email, err := mailer.Compose(ctx, mailer.Message{
		Identity:   p.identity,
		SenderName: strings.TrimSpace(p.campaign.SenderName),
		To:         rcpt,
		Subject:    content.Subject,
		Greeting:   content.Greeting,
		Body:       p.campaign.Message,
		Footer:     d.opts.footer,
	})
	if err != nil {
		out.Err = err
		out.At = d.opts.clock()
		return out
	}
	out.MessageID = email.Header("Message-ID")

	if err := sender.Send(ctx, email); err != nil {
		out.Err = asTransportError(rcpt, err)
		out.At = d.opts.clock()
		return out
	}

	out.At = d.opts.clock()
	if _, err := d.ledger.RecordSend(p.identity, out.At); err != nil {
		out.Err = err
		return out
	}
	d.opts.logger.DebugContext(ctx, "message delivered",
		slog.String("recipient", rcpt),
		slog.String("subject", content.Subject),
		slog.Int("index", i),
	)
	return out
}

func asTransportError(recipient string, err error) error {
	var te *mailer.TransportError
	if errors.As(err, &te) {
		if te.Recipient == "" && recipient != "" {
			te.Recipient = recipient
		}
		return te
	}
	return mailer.NewTransportError(recipient, err)
}
