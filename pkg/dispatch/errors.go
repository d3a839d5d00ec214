package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("dispatch: invalid campaign")

	// ErrBusy indicates a campaign for the same identity is still running.
	ErrBusy = errors.New("dispatch: a campaign is already running for this identity")

	// ErrNoWorker indicates every async worker is occupied.
	ErrNoWorker = errors.New("dispatch: no free worker, try later")

	// ErrClosed indicates the dispatcher has been shut down.
	ErrClosed = errors.New("dispatch: dispatcher is shut down")

	// ErrInvalidPacing indicates a negative or inverted delay range.
	ErrInvalidPacing = errors.New("dispatch: invalid pacing range")

	// ErrUnknownMode indicates a mode name other than sync or async.
	ErrUnknownMode = errors.New("dispatch: unknown mode")

	// ErrInterrupted indicates a running campaign was stopped by Interrupt,
	// typically because a full reset engaged.
	ErrInterrupted = errors.New("dispatch: campaign interrupted by reset")

	// ErrBlocklist indicates the unsubscribe registry could not be read.
	ErrBlocklist = errors.New("dispatch: unsubscribe registry unavailable")
)

// ValidationError describes why a campaign was refused before any delivery.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
