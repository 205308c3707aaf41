package services

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/fieldmeta"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/rulecel"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/timebudget"
)

var ErrInvalidCatalogue = errors.New("catalogue: invalid")

var calcTableKind = map[types.CalculationKind]types.TableKind{
	types.CalcBracket:    types.TableBracket,
	types.CalcPercentage: types.TablePercentage,
	types.CalcTimeBudget: types.TableTimeBudget,
	types.CalcLimitation: types.TableLimitation,
}

var calcOutputs = map[types.CalculationKind][]string{
	types.CalcBracket:    {types.OutAmount, types.OutRate, types.OutBasis},
	types.CalcPercentage: {types.OutAmount, types.OutRate, types.OutBasis},
	types.CalcTimeBudget: {types.OutCeiling, types.OutChargeable, types.OutRemaining},
	types.CalcLimitation: {types.OutExpires},
}

type problems []error

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Errorf(format, args...))
}

// Validate reports every structural defect in areas. Authoring conventions are left to Lint.
func Validate(areas []types.PracticeArea) error {
	var p problems
	seenAreas := make(map[types.PracticeAreaID]bool, len(areas))
	for _, a := range areas {
		if !a.ID.Valid() {
			p.addf("practice area %q is not a known area", a.ID)
		}
		if seenAreas[a.ID] {
			p.addf("practice area %q is duplicated", a.ID)
		}
		seenAreas[a.ID] = true

		tables := make(map[string]types.Table, len(a.Tables))
		for _, t := range a.Tables {
			if _, dup := tables[t.Name]; dup {
				p.addf("%s: table %q is duplicated", a.ID, t.Name)
			}
			tables[t.Name] = t
			validateTable(&p, a.ID, t)
		}

		seenTasks := make(map[string]bool, len(a.Tasks))
		for _, task := range a.Tasks {
			if seenTasks[task.ID] {
				p.addf("%s: task %q is duplicated", a.ID, task.ID)
			}
			seenTasks[task.ID] = true
			validateTask(&p, a.ID, task, tables)
		}
	}
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidCatalogue, errors.Join(p...))
}

func validateTable(p *problems, area types.PracticeAreaID, t types.Table) {
	where := fmt.Sprintf("%s/%s", area, t.Name)
	switch t.Kind {
	case types.TableBracket:
		if t.Brackets == nil {
			p.addf("%s: bracket table has no brackets", where)
			return
		}
		if err := t.Brackets.Validate(); err != nil {
			p.addf("%s: %v", where, err)
		}
	case types.TablePercentage:
		if t.Schedule == nil {
			p.addf("%s: percentage table has no entries", where)
			return
		}
		if err := t.Schedule.Validate(); err != nil {
			p.addf("%s: %v", where, err)
		}
	case types.TableTimeBudget:
		seen := make(map[string]bool, len(t.Budgets))
		for _, b := range t.Budgets {
			if seen[b.Category] {
				p.addf("%s: budget category %q is duplicated", where, b.Category)
			}
			seen[b.Category] = true
			if b.Amount < 0 || (b.Unit != timebudget.UnitMonths && b.Unit != timebudget.UnitDays) {
				p.addf("%s: budget %q is malformed", where, b.Category)
			}
		}
	case types.TableLimitation:
		seen := make(map[string]bool, len(t.Limitations))
		for _, l := range t.Limitations {
			if seen[l.ClaimType] {
				p.addf("%s: claim type %q is duplicated", where, l.ClaimType)
			}
			seen[l.ClaimType] = true
			if l.Months < 0 || l.Days < 0 || l.Months+l.Days == 0 {
				p.addf("%s: claim type %q needs a positive period", where, l.ClaimType)
			}
		}
	case types.TableFactors:
		if len(t.Factors) == 0 {
			p.addf("%s: factor list is empty", where)
		}
	default:
		p.addf("%s: unknown table kind %q", where, t.Kind)
	}
}

func validateTask(p *problems, area types.PracticeAreaID, task types.TaskDefinition, tables map[string]types.Table) {
	where := fmt.Sprintf("%s/%s", area, task.ID)
	fields := make(map[string]types.FieldSpec, len(task.Fields))
	for _, f := range task.Fields {
		if !fieldmeta.IsFieldKey(f.Name) {
			p.addf("%s: field name %q is malformed", where, f.Name)
		}
		if _, dup := fields[f.Name]; dup {
			p.addf("%s: field %q is duplicated", where, f.Name)
		}
		fields[f.Name] = f
		def, ok := fieldmeta.LookupKind(f.Kind)
		if !ok {
			p.addf("%s: field %q has unknown kind %q", where, f.Name, f.Kind)
			continue
		}
		if def.AllowOptions && len(f.Options) == 0 {
			p.addf("%s: select field %q has no options", where, f.Name)
		}
		if !def.AllowOptions && len(f.Options) > 0 {
			p.addf("%s: field %q of kind %s cannot carry options", where, f.Name, f.Kind)
		}
	}

	if d := task.Deadline; d != nil {
		switch {
		case d.OffsetDays != nil && *d.OffsetDays < 0:
			p.addf("%s: deadline offset must be non-negative", where)
		case d.OffsetDays != nil && d.TriggerField == "":
			p.addf("%s: computable deadline needs a trigger field", where)
		case d.OffsetDays == nil && d.TriggerField != "":
			p.addf("%s: trigger field without an offset", where)
		case d.TriggerField != "":
			if f, ok := fields[d.TriggerField]; !ok || f.Kind != types.FieldDate {
				p.addf("%s: trigger field %q must be a date field", where, d.TriggerField)
			}
		}
	}

	seenCalc := make(map[string]bool, len(task.Calculations))
	for _, c := range task.Calculations {
		if seenCalc[c.ID] {
			p.addf("%s: calculation %q is duplicated", where, c.ID)
		}
		seenCalc[c.ID] = true
		validateCalculation(p, where+"/"+c.ID, c, fields, tables)
	}

	seenAdv := make(map[string]bool, len(task.Advisories))
	for _, a := range task.Advisories {
		if seenAdv[a.ID] {
			p.addf("%s: advisory %q is duplicated", where, a.ID)
		}
		seenAdv[a.ID] = true
		if a.When == "" || a.Message == "" {
			p.addf("%s: advisory %q needs when and message", where, a.ID)
			continue
		}
		if _, err := rulecel.Compile(a.When); err != nil {
			p.addf("%s: advisory %q: %v", where, a.ID, err)
		}
	}
}

func validateCalculation(p *problems, where string, c types.Calculation, fields map[string]types.FieldSpec, tables map[string]types.Table) {
	wantKind, ok := calcTableKind[c.Kind]
	if !ok {
		p.addf("%s: unknown calculation kind %q", where, c.Kind)
		return
	}
	table, ok := tables[c.Table]
	if !ok {
		p.addf("%s: table %q not found", where, c.Table)
		return
	}
	if table.Kind != wantKind {
		p.addf("%s: table %q is %s, %s needs %s", where, c.Table, table.Kind, c.Kind, wantKind)
		return
	}
	if c.When != "" {
		if _, err := rulecel.Compile(c.When); err != nil {
			p.addf("%s: %v", where, err)
		}
	}

	requireKind := func(name string, kinds ...types.FieldKind) {
		f, ok := fields[name]
		if !ok {
			p.addf("%s: field %q not found", where, name)
			return
		}
		if !slices.Contains(kinds, f.Kind) {
			p.addf("%s: field %q is %s", where, name, f.Kind)
		}
	}
	for _, name := range append(append(slices.Clone(c.AmountFields), c.DeductFields...), c.BasisFields...) {
		requireKind(name, types.FieldNumber)
	}

	switch c.Kind {
	case types.CalcBracket, types.CalcPercentage:
		if len(c.AmountFields) == 0 {
			p.addf("%s: amount_fields is required", where)
		}
		if c.AmountCap != nil && c.AmountCap.IsNegative() {
			p.addf("%s: amount_cap must be non-negative", where)
		}
		if c.Kind == types.CalcPercentage {
			if c.KeyField == "" {
				p.addf("%s: key_field is required", where)
			} else {
				requireKind(c.KeyField, types.FieldSelect, types.FieldNumber)
			}
		}
	case types.CalcTimeBudget, types.CalcLimitation:
		if c.CategoryField == "" || c.AnchorField == "" {
			p.addf("%s: category_field and anchor_field are required", where)
			break
		}
		requireKind(c.CategoryField, types.FieldSelect)
		requireKind(c.AnchorField, types.FieldDate)
		if c.ElapsedField != "" {
			requireKind(c.ElapsedField, types.FieldNumber)
		}
		if c.ExcludableField != "" {
			requireKind(c.ExcludableField, types.FieldNumber)
		}
		validateCategories(p, where, c, fields[c.CategoryField], table)
	}

	allowed := calcOutputs[c.Kind]
	for slot, name := range c.Outputs {
		if !slices.Contains(allowed, slot) {
			p.addf("%s: output slot %q not produced by %s", where, slot, c.Kind)
			continue
		}
		want := types.FieldNumber
		if slot == types.OutExpires {
			want = types.FieldDate
		}
		requireKind(name, want)
	}
}

func validateCategories(p *problems, where string, c types.Calculation, field types.FieldSpec, table types.Table) {
	has := func(category string) bool {
		if table.Kind == types.TableTimeBudget {
			_, ok := table.Budget(category)
			return ok
		}
		_, ok := table.Limitation(category)
		return ok
	}
	for _, opt := range field.Options {
		category := opt
		if c.CategoryMap != nil {
			mapped, ok := c.CategoryMap[opt]
			if !ok {
				p.addf("%s: option %q has no category mapping", where, opt)
				continue
			}
			category = mapped
		}
		if !has(category) {
			p.addf("%s: category %q not in table %q", where, category, table.Name)
		}
	}
}
