package tiered

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

// Boundary says which bracket owns an amount sitting exactly on a threshold.
type Boundary string

const (
	// BoundaryLower: a threshold opens the next bracket, [min, next.min).
	BoundaryLower Boundary = "lower"
	// BoundaryUpper: a threshold closes the current bracket, (min, next.min].
	// The first bracket also owns its own min.
	BoundaryUpper Boundary = "upper"
)

type Bracket struct {
	Min  decimal.Decimal `json:"min"`
	Rate decimal.Decimal `json:"rate"`
}

// BracketTable applies the rate of the single bracket containing an amount to the whole amount.
type BracketTable struct {
	Name     string    `json:"name"`
	Boundary Boundary  `json:"boundary"`
	Brackets []Bracket `json:"brackets"`
}

type BracketResult struct {
	Index int             `json:"index"`
	Min   decimal.Decimal `json:"min"`
	// Max is nil for the unbounded last bracket.
	Max      *decimal.Decimal `json:"max,omitempty"`
	Rate     decimal.Decimal  `json:"rate"`
	Amount   decimal.Decimal  `json:"amount"`
	Computed decimal.Decimal  `json:"computed"`
}

func (t BracketTable) Validate() error {
	switch t.Boundary {
	case BoundaryLower, BoundaryUpper:
	default:
		return fmt.Errorf("%w: tiered: table %q has unknown boundary %q", ruleerr.ErrInvalidInput, t.Name, t.Boundary)
	}
	if len(t.Brackets) == 0 {
		return fmt.Errorf("%w: tiered: table %q has no brackets", ruleerr.ErrInvalidInput, t.Name)
	}
	if !t.Brackets[0].Min.IsZero() {
		return fmt.Errorf("%w: tiered: table %q must start at 0", ruleerr.ErrInvalidInput, t.Name)
	}
	for i, b := range t.Brackets {
		if b.Rate.IsNegative() {
			return fmt.Errorf("%w: tiered: table %q bracket %d has negative rate", ruleerr.ErrInvalidInput, t.Name, i)
		}
		if i > 0 && !b.Min.GreaterThan(t.Brackets[i-1].Min) {
			return fmt.Errorf("%w: tiered: table %q bracket %d min must exceed previous min", ruleerr.ErrInvalidInput, t.Name, i)
		}
	}
	return nil
}

func (t BracketTable) indexFor(amount decimal.Decimal) int {
	last := len(t.Brackets) - 1
	if t.Boundary == BoundaryUpper {
		for i := 0; i < last; i++ {
			if amount.LessThanOrEqual(t.Brackets[i+1].Min) {
				return i
			}
		}
		return last
	}
	for i := last; i > 0; i-- {
		if amount.GreaterThanOrEqual(t.Brackets[i].Min) {
			return i
		}
	}
	return 0
}

func ApplyBracketTable(t BracketTable, amount decimal.Decimal) (BracketResult, error) {
	if amount.IsNegative() {
		return BracketResult{}, fmt.Errorf("%w: tiered: table %q amount %s is negative", ruleerr.ErrOutOfRange, t.Name, amount.String())
	}
	if err := t.Validate(); err != nil {
		return BracketResult{}, err
	}

	i := t.indexFor(amount)
	b := t.Brackets[i]
	res := BracketResult{
		Index:    i,
		Min:      b.Min,
		Rate:     b.Rate,
		Amount:   amount,
		Computed: amount.Mul(b.Rate),
	}
	if i < len(t.Brackets)-1 {
		upper := t.Brackets[i+1].Min
		res.Max = &upper
	}
	return res, nil
}

type Entry struct {
	Key  int             `json:"key"`
	Rate decimal.Decimal `json:"rate"`
}

// PercentageSchedule maps a cardinality to a rate. Keys past the last entry collapse onto it.
type PercentageSchedule struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

func (s PercentageSchedule) Validate() error {
	if len(s.Entries) == 0 {
		return fmt.Errorf("%w: tiered: schedule %q has no entries", ruleerr.ErrInvalidInput, s.Name)
	}
	for i, e := range s.Entries {
		if e.Key < 1 {
			return fmt.Errorf("%w: tiered: schedule %q key %d must be positive", ruleerr.ErrInvalidInput, s.Name, e.Key)
		}
		if e.Rate.IsNegative() {
			return fmt.Errorf("%w: tiered: schedule %q key %d has negative rate", ruleerr.ErrInvalidInput, s.Name, e.Key)
		}
		if i > 0 && e.Key <= s.Entries[i-1].Key {
			return fmt.Errorf("%w: tiered: schedule %q keys must strictly increase", ruleerr.ErrInvalidInput, s.Name)
		}
	}
	return nil
}

func ApplyPercentageSchedule(s PercentageSchedule, key int) (decimal.Decimal, error) {
	if err := s.Validate(); err != nil {
		return decimal.Zero, err
	}
	if key < s.Entries[0].Key {
		return decimal.Zero, fmt.Errorf("%w: tiered: schedule %q key %d below minimum %d", ruleerr.ErrInvalidInput, s.Name, key, s.Entries[0].Key)
	}
	rate := s.Entries[0].Rate
	for _, e := range s.Entries {
		if e.Key > key {
			break
		}
		rate = e.Rate
	}
	return rate, nil
}

// ParseKey accepts "3" and the collapsed form "5+".
func ParseKey(raw string) (int, error) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "+")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: tiered: schedule key %q is not a whole number", ruleerr.ErrInvalidInput, raw)
	}
	return n, nil
}

// RoundCents rounds half away from zero to two places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
