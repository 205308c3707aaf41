package timebudget

import (
	"fmt"
	"time"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

type Unit string

const (
	UnitMonths Unit = "months"
	UnitDays   Unit = "days"
)

// Budget is a statutory ceiling on chargeable time for one charge category.
type Budget struct {
	Category string `json:"category"`
	Amount   int    `json:"amount"`
	Unit     Unit   `json:"unit"`
	Statute  string `json:"statute,omitempty"`
}

type Result struct {
	CeilingDays    int  `json:"ceiling_days"`
	ElapsedDays    int  `json:"elapsed_days"`
	ExcludableDays int  `json:"excludable_days"`
	ChargeableDays int  `json:"chargeable_days"`
	RemainingDays  int  `json:"remaining_days"`
	OverBudget     bool `json:"over_budget"`
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarDaysBetween counts calendar days from a to b, ignoring time of day and zone offsets.
func CalendarDaysBetween(a time.Time, b time.Time) int {
	return int(civilDate(b).Sub(civilDate(a)) / (24 * time.Hour))
}

// MonthsToCalendarDays is the length in days of the window [anchor, anchor+months).
// A month end that does not exist in the target month rolls forward (Jan 31 + 1 month = Mar 2 or 3).
func MonthsToCalendarDays(months int, anchor time.Time) (int, error) {
	if months < 0 {
		return 0, fmt.Errorf("%w: timebudget: months must be non-negative: %d", ruleerr.ErrInvalidInput, months)
	}
	if anchor.IsZero() {
		return 0, fmt.Errorf("%w: timebudget: anchor date is required", ruleerr.ErrInvalidInput)
	}
	start := civilDate(anchor)
	return CalendarDaysBetween(start, start.AddDate(0, months, 0)), nil
}

func (b Budget) CeilingDays(anchor time.Time) (int, error) {
	if b.Amount < 0 {
		return 0, fmt.Errorf("%w: timebudget: %s budget must be non-negative", ruleerr.ErrInvalidInput, b.Category)
	}
	switch b.Unit {
	case UnitMonths:
		return MonthsToCalendarDays(b.Amount, anchor)
	case UnitDays:
		return b.Amount, nil
	default:
		return 0, fmt.Errorf("%w: timebudget: %s has unknown unit %q", ruleerr.ErrInvalidInput, b.Category, b.Unit)
	}
}

func RemainingTime(budgetMonths int, anchor time.Time, elapsedDays int, excludableDays int) (Result, error) {
	return Remaining(Budget{Category: "months", Amount: budgetMonths, Unit: UnitMonths}, anchor, elapsedDays, excludableDays)
}

func Remaining(b Budget, anchor time.Time, elapsedDays int, excludableDays int) (Result, error) {
	if elapsedDays < 0 || excludableDays < 0 {
		return Result{}, fmt.Errorf("%w: timebudget: elapsed and excludable days must be non-negative", ruleerr.ErrInvalidInput)
	}
	if excludableDays > elapsedDays {
		return Result{}, fmt.Errorf("%w: timebudget: excludable days %d exceed elapsed days %d", ruleerr.ErrInvalidInput, excludableDays, elapsedDays)
	}
	ceiling, err := b.CeilingDays(anchor)
	if err != nil {
		return Result{}, err
	}

	chargeable := max(0, elapsedDays-excludableDays)
	remaining := ceiling - chargeable
	return Result{
		CeilingDays:    ceiling,
		ElapsedDays:    elapsedDays,
		ExcludableDays: excludableDays,
		ChargeableDays: chargeable,
		RemainingDays:  remaining,
		OverBudget:     remaining < 0,
	}, nil
}
