// Package smtp delivers mail over authenticated SMTP using per-campaign
// credentials.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/mail"
	"time"

	gomail "gopkg.in/mail.v2"

	"github.com/dmitrymomot/mailpace/pkg/mailer"
)

// Default connection parameters.
const (
	DefaultHost    = "smtp.gmail.com"
	DefaultPort    = 465
	DefaultTimeout = 30 * time.Second
)

// Config holds SMTP server settings. Login credentials come from each campaign.
type Config struct {
	Host string
	Port int
	// SSL forces implicit TLS. Port 465 always uses it.
	SSL bool
	// InsecureSkipVerify disables certificate checks. Local relays only.
	InsecureSkipVerify bool
	Timeout            time.Duration
	// LocalName is sent in HELO/EHLO. Defaults to "localhost".
	LocalName string
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// dialer abstracts gomail.Dialer so tests can capture messages.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Transport opens SMTP senders.
type Transport struct {
	newDialer func(creds mailer.Credentials) dialer
	cfg       Config
}

// New creates an SMTP transport.
func New(cfg Config) *Transport {
	cfg.applyDefaults()
	t := &Transport{cfg: cfg}
	t.newDialer = t.dialer
	return t
}

// Open implements mailer.Transport. No connection is made until the first Send.
func (t *Transport) Open(_ context.Context, creds mailer.Credentials) (mailer.Sender, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &Sender{dialer: t.newDialer(creds)}, nil
}

func (t *Transport) dialer(creds mailer.Credentials) dialer {
	d := gomail.NewDialer(t.cfg.Host, t.cfg.Port, creds.Identity, creds.Secret)
	d.SSL = t.cfg.SSL || t.cfg.Port == 465
	d.Timeout = t.cfg.Timeout
	if t.cfg.LocalName != "" {
		d.LocalName = t.cfg.LocalName
	}
	if t.cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{ServerName: t.cfg.Host, InsecureSkipVerify: true} //nolint:gosec
	}
	return d
}

// Sender delivers messages through one SMTP account. Each Send dials a fresh
// connection since campaigns pause for minutes between messages.
type Sender struct {
	dialer dialer
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := buildMessage(email)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp: failed to send email: %w", err)
	}
	return nil
}

func buildMessage(email *mailer.Email) (*gomail.Message, error) {
	if err := email.Validate(); err != nil {
		return nil, err
	}

	m := gomail.NewMessage()

	from, err := mail.ParseAddress(email.From)
	if err != nil {
		return nil, fmt.Errorf("smtp: invalid from address %q: %w", email.From, err)
	}
	m.SetAddressHeader("From", from.Address, from.Name)
	m.SetHeader("To", email.To...)
	m.SetHeader("Subject", email.Subject)
	if email.ReplyTo != "" {
		m.SetHeader("Reply-To", email.ReplyTo)
	}
	for name, value := range email.Headers {
		m.SetHeader(name, value)
	}

	switch {
	case email.Text != "" && email.HTML != "":
		m.SetBody("text/plain", email.Text)
		m.AddAlternative("text/html", email.HTML)
	case email.HTML != "":
		m.SetBody("text/html", email.HTML)
	default:
		m.SetBody("text/plain", email.Text)
	}

	return m, nil
}
