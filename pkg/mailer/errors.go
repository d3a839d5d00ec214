package mailer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("email must have at least one recipient")

	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("email must have a subject")

	// ErrNoContent indicates neither HTML nor text content was provided.
	ErrNoContent = errors.New("email must have content")

	// ErrMissingCredentials indicates the campaign identity or secret is empty.
	ErrMissingCredentials = errors.New("mailer: identity and secret are required")

	// ErrInvalidCredentials indicates the secret has the wrong shape for the provider.
	ErrInvalidCredentials = errors.New("mailer: invalid credentials for provider")

	// ErrRenderFailed indicates body composition failed.
	ErrRenderFailed = errors.New("mailer: failed to render message")

	// ErrTransport is matched by every delivery failure.
	ErrTransport = errors.New("mailer: transport failure")

	// ErrUnknownProvider indicates a channel name that is not registered.
	ErrUnknownProvider = errors.New("mailer: unknown provider")
)

// TransportError reports a failed delivery to one recipient.
// Recipient is empty when the channel could not be opened at all.
type TransportError struct {
	Err       error
	Recipient string
	Code      string // Provider error code, when one is available
}

// NewTransportError wraps err for recipient.
func NewTransportError(recipient string, err error) *TransportError {
	return &TransportError{Recipient: recipient, Err: err}
}

func (e *TransportError) Error() string {
	msg := "delivery failed"
	if e.Recipient != "" {
		msg = fmt.Sprintf("delivery to %s failed", e.Recipient)
	}
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is match ErrTransport and the underlying cause.
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}
