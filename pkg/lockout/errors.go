package lockout

import "errors"

var (
	// ErrActive is returned while the lockout is engaged.
	ErrActive = errors.New("reset in progress, try later")

	// ErrInvalidSchedule indicates a cron expression that cannot be parsed.
	ErrInvalidSchedule = errors.New("lockout: invalid schedule")

	// ErrStopped indicates the controller no longer accepts new triggers.
	ErrStopped = errors.New("lockout: controller stopped")
)
