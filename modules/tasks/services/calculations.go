package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	cataloguetypes "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/deadline"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/tiered"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/timebudget"
)

// runCalculation returns ok=false when the calculation is skipped for absent
// inputs or because it added problems to verr.
func (b *Binder) runCalculation(area string, c cataloguetypes.Calculation, bv boundValues, now time.Time, verr *ruleerr.ValidationError) (types.CalculationResult, bool, error) {
	table, err := b.catalogue.LookupTable(area, c.Table)
	if err != nil {
		return types.CalculationResult{}, false, err
	}
	res := types.CalculationResult{ID: c.ID, Kind: string(c.Kind), Table: c.Table, Statute: table.Statute}

	before := len(verr.Problems)
	var ok bool
	switch c.Kind {
	case cataloguetypes.CalcBracket:
		ok, err = runBracket(&res, c, table, bv, verr)
	case cataloguetypes.CalcPercentage:
		ok, err = runPercentage(&res, c, table, bv, verr)
	case cataloguetypes.CalcTimeBudget:
		ok, err = runTimeBudget(&res, c, table, bv, now, verr)
	case cataloguetypes.CalcLimitation:
		ok, err = runLimitation(&res, c, table, bv, now, verr)
	default:
		return types.CalculationResult{}, false, fmt.Errorf("%w: calculation %q has unknown kind %q", ruleerr.ErrInvalidInput, c.ID, c.Kind)
	}
	if err != nil {
		return types.CalculationResult{}, false, err
	}
	return res, ok && len(verr.Problems) == before, nil
}

func sumFields(bv boundValues, names []string) decimal.Decimal {
	total := decimal.Zero
	for _, n := range names {
		if bv.present[n] {
			total = total.Add(bv.values[n].Number)
		}
	}
	return total
}

func rejectNegative(bv boundValues, verr *ruleerr.ValidationError, names ...string) {
	for _, n := range names {
		if bv.present[n] && bv.values[n].Number.IsNegative() {
			verr.Add(n, ruleerr.CodeOutOfRange)
		}
	}
}

// lookupAmount is the sum of the amount fields less the deduction fields.
func lookupAmount(c cataloguetypes.Calculation, bv boundValues, verr *ruleerr.ValidationError) (decimal.Decimal, bool) {
	if !bv.has(c.AmountFields...) || !bv.has(c.BasisFields...) {
		return decimal.Zero, false
	}
	before := len(verr.Problems)
	rejectNegative(bv, verr, c.AmountFields...)
	rejectNegative(bv, verr, c.DeductFields...)
	rejectNegative(bv, verr, c.BasisFields...)
	if len(verr.Problems) != before {
		return decimal.Zero, false
	}
	amount := sumFields(bv, c.AmountFields).Sub(sumFields(bv, c.DeductFields))
	if amount.IsNegative() {
		field := c.AmountFields[0]
		if len(c.DeductFields) > 0 {
			field = c.DeductFields[0]
		}
		verr.Add(field, ruleerr.CodeOutOfRange)
		return decimal.Zero, false
	}
	return amount, true
}

func runBracket(res *types.CalculationResult, c cataloguetypes.Calculation, table cataloguetypes.Table, bv boundValues, verr *ruleerr.ValidationError) (bool, error) {
	amount, ok := lookupAmount(c, bv, verr)
	if !ok {
		return false, nil
	}
	br, err := tiered.ApplyBracketTable(*table.Brackets, amount)
	if err != nil {
		if errors.Is(err, ruleerr.ErrOutOfRange) {
			verr.Add(c.AmountFields[0], ruleerr.CodeOutOfRange)
			return false, nil
		}
		return false, err
	}
	basis := amount
	if len(c.BasisFields) > 0 {
		basis = sumFields(bv, c.BasisFields)
	}
	computed := tiered.RoundCents(basis.Mul(br.Rate))

	res.Bracket = &br
	res.Basis = basis.String()
	res.Rate = br.Rate.String()
	res.Amount = computed.StringFixed(2)
	res.Display = formatMoney(computed)
	return true, nil
}

func runPercentage(res *types.CalculationResult, c cataloguetypes.Calculation, table cataloguetypes.Table, bv boundValues, verr *ruleerr.ValidationError) (bool, error) {
	if !bv.present[c.KeyField] {
		return false, nil
	}
	amount, ok := lookupAmount(c, bv, verr)
	if !ok {
		return false, nil
	}

	keyValue := bv.values[c.KeyField]
	var key int
	if keyValue.Kind == cataloguetypes.FieldNumber {
		if !keyValue.Number.IsInteger() {
			verr.Add(c.KeyField, ruleerr.CodeOutOfRange)
			return false, nil
		}
		key = int(keyValue.Number.IntPart())
	} else {
		n, err := tiered.ParseKey(keyValue.Text)
		if err != nil {
			verr.Add(c.KeyField, ruleerr.CodeOutOfRange)
			return false, nil
		}
		key = n
	}
	rate, err := tiered.ApplyPercentageSchedule(*table.Schedule, key)
	if err != nil {
		if ruleerr.IsInvalidInput(err) {
			verr.Add(c.KeyField, ruleerr.CodeOutOfRange)
			return false, nil
		}
		return false, err
	}

	applied := amount
	if c.AmountCap != nil && amount.GreaterThan(*c.AmountCap) {
		applied = *c.AmountCap
		res.CappedAt = c.AmountCap.String()
	}
	computed := tiered.RoundCents(applied.Mul(rate))

	res.Basis = amount.String()
	res.Rate = rate.String()
	res.Amount = computed.StringFixed(2)
	res.Display = formatMoney(computed)
	return true, nil
}

// category resolves the select option through the calculation's category map.
func category(c cataloguetypes.Calculation, bv boundValues) string {
	opt := bv.values[c.CategoryField].Text
	if mapped, ok := c.CategoryMap[opt]; ok {
		return mapped
	}
	return opt
}

func wholeDays(bv boundValues, field string, verr *ruleerr.ValidationError) (int, bool) {
	n := bv.values[field].Number
	if n.IsNegative() || !n.IsInteger() {
		verr.Add(field, ruleerr.CodeOutOfRange)
		return 0, false
	}
	return int(n.IntPart()), true
}

func runTimeBudget(res *types.CalculationResult, c cataloguetypes.Calculation, table cataloguetypes.Table, bv boundValues, now time.Time, verr *ruleerr.ValidationError) (bool, error) {
	if !bv.has(c.CategoryField, c.AnchorField) {
		return false, nil
	}
	budget, ok := table.Budget(category(c, bv))
	if !ok {
		verr.Add(c.CategoryField, ruleerr.CodeOutOfRange)
		return false, nil
	}
	anchor := bv.values[c.AnchorField].Date

	var elapsed int
	if c.ElapsedField != "" && bv.present[c.ElapsedField] {
		if elapsed, ok = wholeDays(bv, c.ElapsedField, verr); !ok {
			return false, nil
		}
	} else {
		elapsed = timebudget.CalendarDaysBetween(anchor, now)
		if elapsed < 0 {
			verr.Add(c.AnchorField, ruleerr.CodeOutOfRange)
			return false, nil
		}
	}
	excludable := 0
	if c.ExcludableField != "" && bv.present[c.ExcludableField] {
		if excludable, ok = wholeDays(bv, c.ExcludableField, verr); !ok {
			return false, nil
		}
	}
	if excludable > elapsed {
		field := c.ExcludableField
		if field == "" {
			field = c.AnchorField
		}
		verr.Add(field, ruleerr.CodeOutOfRange)
		return false, nil
	}

	r, err := timebudget.Remaining(budget, anchor, elapsed, excludable)
	if err != nil {
		return false, err
	}
	res.Statute = budget.Statute
	res.TimeBudget = &r
	return true, nil
}

func runLimitation(res *types.CalculationResult, c cataloguetypes.Calculation, table cataloguetypes.Table, bv boundValues, now time.Time, verr *ruleerr.ValidationError) (bool, error) {
	if !bv.has(c.CategoryField, c.AnchorField) {
		return false, nil
	}
	period, ok := table.Limitation(category(c, bv))
	if !ok {
		verr.Add(c.CategoryField, ruleerr.CodeOutOfRange)
		return false, nil
	}
	expires := period.Expires(bv.values[c.AnchorField].Date)
	res.Statute = period.Statute
	res.Expires = expires.Format(deadline.DateLayout)
	res.Status = deadline.Classify(expires, now)
	return true, nil
}

// outputValues maps a result onto the task fields named by the calculation's outputs.
func outputValues(c cataloguetypes.Calculation, res types.CalculationResult) map[string]any {
	out := make(map[string]any, len(c.Outputs))
	for slot, field := range c.Outputs {
		switch slot {
		case cataloguetypes.OutAmount:
			out[field] = res.Amount
		case cataloguetypes.OutRate:
			out[field] = res.Rate
		case cataloguetypes.OutBasis:
			out[field] = res.Basis
		case cataloguetypes.OutExpires:
			out[field] = res.Expires
		case cataloguetypes.OutCeiling:
			if res.TimeBudget != nil {
				out[field] = strconv.Itoa(res.TimeBudget.CeilingDays)
			}
		case cataloguetypes.OutChargeable:
			if res.TimeBudget != nil {
				out[field] = strconv.Itoa(res.TimeBudget.ChargeableDays)
			}
		case cataloguetypes.OutRemaining:
			if res.TimeBudget != nil {
				out[field] = strconv.Itoa(res.TimeBudget.RemainingDays)
			}
		}
	}
	return out
}
