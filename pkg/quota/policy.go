package quota

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// WindowKind controls how a counting window is anchored.
type WindowKind string

const (
	// Rolling windows start at the first send after the previous window expired.
	Rolling WindowKind = "rolling"
	// Calendar windows are aligned to wall-clock boundaries (midnight for a day).
	Calendar WindowKind = "calendar"
)

// Policy describes the budget applied to every sender identity.
type Policy struct {
	// Location aligns calendar windows. Defaults to UTC.
	Location *time.Location

	Window         WindowKind
	WindowDuration time.Duration
	Cap            int

	// MinimumGap rejects a campaign when the previous send is more recent
	// than this. Zero disables the check.
	MinimumGap time.Duration

	// MaxRecipientsPerCampaign limits a single campaign. Zero means no limit.
	MaxRecipientsPerCampaign int
}

// Preset names accepted by PolicyByName.
const (
	PresetHourly      = "hourly"
	PresetDailyStrict = "daily-strict"
	PresetRollingDay  = "rolling-day"
)

// HourlyPolicy allows 10 sends per rolling hour.
func HourlyPolicy() Policy {
	return Policy{
		Window:         Rolling,
		WindowDuration: time.Hour,
		Cap:            10,
	}
}

// DailyStrictPolicy allows 2 single-recipient campaigns per calendar day,
// at least 30 minutes apart.
func DailyStrictPolicy() Policy {
	return Policy{
		Window:                   Calendar,
		WindowDuration:           24 * time.Hour,
		Cap:                      2,
		MinimumGap:               30 * time.Minute,
		MaxRecipientsPerCampaign: 1,
	}
}

// RollingDayPolicy allows 8 sends per rolling 24 hours.
func RollingDayPolicy() Policy {
	return Policy{
		Window:         Rolling,
		WindowDuration: 24 * time.Hour,
		Cap:            8,
	}
}

// PolicyByName resolves a preset by name.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetHourly:
		return HourlyPolicy(), nil
	case PresetDailyStrict:
		return DailyStrictPolicy(), nil
	case PresetRollingDay:
		return RollingDayPolicy(), nil
	default:
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Validate reports every problem with the policy at once.
func (p Policy) Validate() error {
	var errs []error
	if p.Window != Rolling && p.Window != Calendar {
		errs = append(errs, fmt.Errorf("window kind must be %q or %q, got %q", Rolling, Calendar, p.Window))
	}
	if p.WindowDuration <= 0 {
		errs = append(errs, errors.New("window duration must be positive"))
	}
	if p.Cap <= 0 {
		errs = append(errs, errors.New("cap must be positive"))
	}
	if p.MinimumGap < 0 {
		errs = append(errs, errors.New("minimum gap must not be negative"))
	}
	if p.MaxRecipientsPerCampaign < 0 {
		errs = append(errs, errors.New("max recipients per campaign must not be negative"))
	}
	if len(errs) > 0 {
		return errors.Join(ErrInvalidPolicy, errors.Join(errs...))
	}
	return nil
}

// windowStart returns the start of the window that contains now.
// Rolling windows open at now; calendar windows open at the preceding boundary.
func (p Policy) windowStart(now time.Time) time.Time {
	if p.Window != Calendar {
		return now
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	t := now.In(loc)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	if p.WindowDuration >= 24*time.Hour {
		return midnight
	}
	return midnight.Add(t.Sub(midnight).Truncate(p.WindowDuration))
}
