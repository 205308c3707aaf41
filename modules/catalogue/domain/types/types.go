package types

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/tiered"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/timebudget"
)

type PracticeAreaID string

const (
	PersonalInjury  PracticeAreaID = "personal-injury"
	FamilyLaw       PracticeAreaID = "family-law"
	RealEstate      PracticeAreaID = "real-estate"
	CriminalDefense PracticeAreaID = "criminal-defense"
)

var PracticeAreaIDs = []PracticeAreaID{PersonalInjury, FamilyLaw, RealEstate, CriminalDefense}

func (id PracticeAreaID) Valid() bool {
	return slices.Contains(PracticeAreaIDs, id)
}

type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldNumber   FieldKind = "number"
	FieldDate     FieldKind = "date"
	FieldCheckbox FieldKind = "checkbox"
	FieldSelect   FieldKind = "select"
)

type FieldSpec struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	ReadOnly bool      `json:"readonly"`
	Options  []string  `json:"options,omitempty"`
}

// DeadlineRule is computable only when OffsetDays is set; otherwise Text is informational.
type DeadlineRule struct {
	Text         string `json:"text"`
	OffsetDays   *int   `json:"offset_days,omitempty"`
	TriggerField string `json:"trigger_field,omitempty"`
}

func (r DeadlineRule) Computable() bool {
	return r.OffsetDays != nil && r.TriggerField != ""
}

type CalculationKind string

const (
	CalcBracket    CalculationKind = "bracket"
	CalcPercentage CalculationKind = "percentage"
	CalcTimeBudget CalculationKind = "time_budget"
	CalcLimitation CalculationKind = "limitation"
)

// Output slots a calculation may write to.
const (
	OutAmount     = "amount"
	OutRate       = "rate"
	OutBasis      = "basis"
	OutCeiling    = "ceiling"
	OutChargeable = "chargeable"
	OutRemaining  = "remaining"
	OutExpires    = "expires"
)

// Calculation binds a catalogue table to a task's fields.
type Calculation struct {
	ID    string          `json:"id"`
	Kind  CalculationKind `json:"kind"`
	Table string          `json:"table"`
	// When is an optional CEL guard over fields/filled.
	When string `json:"when,omitempty"`

	// AmountFields are summed, DeductFields subtracted, to form the lookup amount.
	AmountFields []string `json:"amount_fields,omitempty"`
	DeductFields []string `json:"deduct_fields,omitempty"`
	// BasisFields, when set, is the amount the selected rate is applied to.
	BasisFields []string         `json:"basis_fields,omitempty"`
	AmountCap   *decimal.Decimal `json:"amount_cap,omitempty"`

	KeyField string `json:"key_field,omitempty"`

	CategoryField   string            `json:"category_field,omitempty"`
	CategoryMap     map[string]string `json:"category_map,omitempty"`
	AnchorField     string            `json:"anchor_field,omitempty"`
	ElapsedField    string            `json:"elapsed_field,omitempty"`
	ExcludableField string            `json:"excludable_field,omitempty"`

	Outputs map[string]string `json:"outputs"`
}

// InputFields lists every field the calculation reads.
func (c Calculation) InputFields() []string {
	out := make([]string, 0, 8)
	out = append(out, c.AmountFields...)
	out = append(out, c.DeductFields...)
	out = append(out, c.BasisFields...)
	for _, f := range []string{c.KeyField, c.CategoryField, c.AnchorField, c.ElapsedField, c.ExcludableField} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Advisory is an exception or tolling note surfaced when When holds. It never moves a deadline.
type Advisory struct {
	ID       string `json:"id"`
	When     string `json:"when"`
	Message  string `json:"message"`
	Citation string `json:"citation,omitempty"`
}

type TaskDefinition struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Statute      string        `json:"statute,omitempty"`
	Deadline     *DeadlineRule `json:"deadline,omitempty"`
	Fields       []FieldSpec   `json:"fields"`
	Notes        string        `json:"notes,omitempty"`
	Calculations []Calculation `json:"calculations,omitempty"`
	Advisories   []Advisory    `json:"advisories,omitempty"`
}

func (t TaskDefinition) Field(name string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func (t TaskDefinition) Clone() TaskDefinition {
	out := t
	if t.Deadline != nil {
		d := *t.Deadline
		if t.Deadline.OffsetDays != nil {
			n := *t.Deadline.OffsetDays
			d.OffsetDays = &n
		}
		out.Deadline = &d
	}
	out.Fields = make([]FieldSpec, len(t.Fields))
	for i, f := range t.Fields {
		f.Options = slices.Clone(f.Options)
		out.Fields[i] = f
	}
	out.Calculations = make([]Calculation, len(t.Calculations))
	for i, c := range t.Calculations {
		c.AmountFields = slices.Clone(c.AmountFields)
		c.DeductFields = slices.Clone(c.DeductFields)
		c.BasisFields = slices.Clone(c.BasisFields)
		c.CategoryMap = maps.Clone(c.CategoryMap)
		c.Outputs = maps.Clone(c.Outputs)
		if c.AmountCap != nil {
			capped := *c.AmountCap
			c.AmountCap = &capped
		}
		out.Calculations[i] = c
	}
	out.Advisories = slices.Clone(t.Advisories)
	return out
}

type TableKind string

const (
	TableBracket    TableKind = "bracket"
	TablePercentage TableKind = "percentage"
	TableTimeBudget TableKind = "time_budget"
	TableLimitation TableKind = "limitation"
	TableFactors    TableKind = "factors"
)

// LimitationPeriod runs Months calendar months and then Days days from accrual.
type LimitationPeriod struct {
	ClaimType string `json:"claim_type"`
	Months    int    `json:"months"`
	Days      int    `json:"days,omitempty"`
	Statute   string `json:"statute"`
	Notes     string `json:"notes,omitempty"`
}

// Table is a named supporting table; exactly one payload matches Kind.
type Table struct {
	Name    string    `json:"name"`
	Kind    TableKind `json:"kind"`
	Statute string    `json:"statute,omitempty"`
	Notes   string    `json:"notes,omitempty"`

	Brackets    *tiered.BracketTable       `json:"brackets,omitempty"`
	Schedule    *tiered.PercentageSchedule `json:"schedule,omitempty"`
	Budgets     []timebudget.Budget        `json:"budgets,omitempty"`
	Limitations []LimitationPeriod         `json:"limitations,omitempty"`
	Factors     []string                   `json:"factors,omitempty"`
}

func (t Table) Clone() Table {
	out := t
	if t.Brackets != nil {
		b := *t.Brackets
		b.Brackets = slices.Clone(t.Brackets.Brackets)
		out.Brackets = &b
	}
	if t.Schedule != nil {
		s := *t.Schedule
		s.Entries = slices.Clone(t.Schedule.Entries)
		out.Schedule = &s
	}
	out.Budgets = slices.Clone(t.Budgets)
	out.Limitations = slices.Clone(t.Limitations)
	out.Factors = slices.Clone(t.Factors)
	return out
}

func (t Table) Budget(category string) (timebudget.Budget, bool) {
	for _, b := range t.Budgets {
		if b.Category == category {
			return b, true
		}
	}
	return timebudget.Budget{}, false
}

// Expires is the last day of the period for a claim accruing on accrual.
func (l LimitationPeriod) Expires(accrual time.Time) time.Time {
	return accrual.AddDate(0, l.Months, 0).AddDate(0, 0, l.Days)
}

func (t Table) Limitation(claimType string) (LimitationPeriod, bool) {
	for _, l := range t.Limitations {
		if l.ClaimType == claimType {
			return l, true
		}
	}
	return LimitationPeriod{}, false
}

type PracticeArea struct {
	ID         PracticeAreaID   `json:"id"`
	Name       string           `json:"name"`
	TaskPrefix string           `json:"task_prefix"`
	Tasks      []TaskDefinition `json:"tasks"`
	Tables     []Table          `json:"tables"`
}

type PracticeAreaSummary struct {
	ID        PracticeAreaID `json:"id"`
	Name      string         `json:"name"`
	TaskCount int            `json:"task_count"`
	Tables    []string       `json:"tables"`
}
