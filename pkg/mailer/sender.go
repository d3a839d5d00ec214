package mailer

import (
	"context"
	"log/slog"
	"strings"
)

// Sender defines the minimal interface that email providers must implement.
// It accepts a fully-prepared Email and handles the actual delivery.
type Sender interface {
	// Send delivers an email message.
	// Returns an error if delivery fails.
	Send(ctx context.Context, email *Email) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, email *Email) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, email *Email) error {
	return f(ctx, email)
}

// Credentials authenticate one campaign against a delivery channel.
// They are supplied per campaign and never persisted.
type Credentials struct {
	Identity string // Sending address, also the login for SMTP
	Secret   string // App-specific password or provider key
}

// Validate reports ErrMissingCredentials when either field is blank.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Identity) == "" || c.Secret == "" {
		return ErrMissingCredentials
	}
	return nil
}

// String never prints the secret.
func (c Credentials) String() string {
	return c.Identity + ":***"
}

// LogValue keeps the secret out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("identity", c.Identity))
}

// Transport opens a Sender bound to campaign credentials.
type Transport interface {
	Open(ctx context.Context, creds Credentials) (Sender, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, creds Credentials) (Sender, error)

// Open implements Transport.
func (f TransportFunc) Open(ctx context.Context, creds Credentials) (Sender, error) {
	return f(ctx, creds)
}
