package deadline

import (
	"fmt"
	"strings"
	"time"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

const (
	DateLayout = "2006-01-02"

	// UpcomingWindowDays is the look-ahead window; the shortest computable filing window in the catalogue is 30 days.
	UpcomingWindowDays = 30
)

type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusPassed   Status = "passed"
	StatusSafe     Status = "safe"
)

func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: date is empty", ruleerr.ErrInvalidInput)
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ruleerr.ErrInvalidInput, raw)
	}
	return d, nil
}

// Compute adds offsetDays calendar days to trigger. Weekends and holidays count.
func Compute(trigger time.Time, offsetDays int) (time.Time, error) {
	if trigger.IsZero() {
		return time.Time{}, fmt.Errorf("%w: trigger date is required", ruleerr.ErrInvalidInput)
	}
	if offsetDays < 0 {
		return time.Time{}, fmt.Errorf("%w: offset days must be non-negative: %d", ruleerr.ErrInvalidInput, offsetDays)
	}
	return trigger.AddDate(0, 0, offsetDays), nil
}

// DaysUntil returns ceil((due-now) / 24h).
func DaysUntil(due time.Time, now time.Time) int {
	const day = 24 * time.Hour
	diff := due.Sub(now)
	d := diff / day
	if diff%day > 0 {
		d++
	}
	return int(d)
}

func Classify(due time.Time, now time.Time) Status {
	d := DaysUntil(due, now)
	switch {
	case d <= 0:
		return StatusPassed
	case d <= UpcomingWindowDays:
		return StatusUpcoming
	default:
		return StatusSafe
	}
}

// Evaluation is a computed due date with its classification at a given now.
type Evaluation struct {
	Trigger       time.Time
	OffsetDays    int
	Due           time.Time
	DaysRemaining int
	Status        Status
}

func Evaluate(trigger time.Time, offsetDays int, now time.Time) (Evaluation, error) {
	due, err := Compute(trigger, offsetDays)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{
		Trigger:       trigger,
		OffsetDays:    offsetDays,
		Due:           due,
		DaysRemaining: DaysUntil(due, now),
		Status:        Classify(due, now),
	}, nil
}
