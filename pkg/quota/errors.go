package quota

import "errors"

var (
	// ErrQuotaExceeded is matched by every admission rejection.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrCapExceeded indicates the identity has no capacity left in the current window.
	ErrCapExceeded = errors.New("cap exceeded")

	// ErrCooldownActive indicates the minimum gap since the last send has not elapsed.
	ErrCooldownActive = errors.New("cooldown active")

	// ErrCapReached is returned by RecordSend when the window is already full.
	ErrCapReached = errors.New("quota: window already at cap")

	// ErrInvalidPolicy indicates a policy failed validation.
	ErrInvalidPolicy = errors.New("quota: invalid policy")

	// ErrUnknownPolicy indicates a preset name that does not exist.
	ErrUnknownPolicy = errors.New("quota: unknown policy preset")
)

// ExceededError carries the rejected decision so callers can report the
// current count or the remaining wait.
type ExceededError struct {
	Decision Decision
}

func (e *ExceededError) Error() string {
	return e.Decision.Message()
}

// Unwrap lets errors.Is match both ErrQuotaExceeded and the reason sentinel.
func (e *ExceededError) Unwrap() []error {
	switch e.Decision.Reason {
	case ReasonCooldown:
		return []error{ErrQuotaExceeded, ErrCooldownActive}
	default:
		return []error{ErrQuotaExceeded, ErrCapExceeded}
	}
}
