package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/fieldmeta"
	cataloguetypes "github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/ports"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/deadline"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/rulecel"
)

// Binder resolves catalogue tasks against stored field values. It never writes.
type Binder struct {
	catalogue ports.Catalogue
	logger    *slog.Logger
	programs  map[string]rulecel.Program
}

// NewBinder compiles every guard and advisory expression in the catalogue up front.
func NewBinder(catalogue ports.Catalogue, logger *slog.Logger) (*Binder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Binder{
		catalogue: catalogue,
		logger:    logger,
		programs:  make(map[string]rulecel.Program),
	}
	compile := func(where string, expr string) error {
		if expr == "" {
			return nil
		}
		if _, ok := b.programs[expr]; ok {
			return nil
		}
		p, err := rulecel.Compile(expr)
		if err != nil {
			return fmt.Errorf("tasks: %s: %w", where, err)
		}
		b.programs[expr] = p
		return nil
	}
	for _, area := range catalogue.Areas() {
		for _, task := range area.Tasks {
			for _, c := range task.Calculations {
				if err := compile(task.ID+"/"+c.ID, c.When); err != nil {
					return nil, err
				}
			}
			for _, a := range task.Advisories {
				if err := compile(task.ID+"/"+a.ID, a.When); err != nil {
					return nil, err
				}
			}
		}
	}
	return b, nil
}

// boundValues is one task's values after normalization.
type boundValues struct {
	task    cataloguetypes.TaskDefinition
	values  map[string]fieldmeta.Value
	present map[string]bool
}

func (bv boundValues) has(names ...string) bool {
	for _, n := range names {
		if !bv.present[n] {
			return false
		}
	}
	return true
}

func (bv boundValues) celInput(dl *types.DeadlineView) rulecel.Input {
	in := rulecel.Input{
		Fields:   make(map[string]any, len(bv.values)),
		Filled:   make(map[string]bool, len(bv.values)),
		Deadline: map[string]any{"status": "", "days_remaining": int64(0), "due": "", "computed": false},
	}
	for name, v := range bv.values {
		in.Fields[name] = v.CEL()
		in.Filled[name] = bv.present[name]
	}
	if dl != nil && dl.DaysRemaining != nil {
		in.Deadline["status"] = string(dl.Status)
		in.Deadline["days_remaining"] = int64(*dl.DaysRemaining)
		in.Deadline["due"] = dl.Due
		in.Deadline["computed"] = true
	}
	return in
}

// bind validates every field at once. Unknown keys in values are ignored.
func bind(task cataloguetypes.TaskDefinition, values types.FieldValues) (boundValues, error) {
	bv := boundValues{
		task:    task,
		values:  make(map[string]fieldmeta.Value, len(task.Fields)),
		present: make(map[string]bool, len(task.Fields)),
	}
	verr := &ruleerr.ValidationError{}
	for _, f := range task.Fields {
		v, present, code := fieldmeta.Normalize(f, values[f.Name])
		bv.values[f.Name] = v
		bv.present[f.Name] = present && code == ""
		switch {
		case code != "":
			verr.Add(f.Name, code)
		case f.Required && !f.ReadOnly && !present:
			verr.Add(f.Name, ruleerr.CodeRequired)
		case f.Required && f.Kind == cataloguetypes.FieldCheckbox && !v.Bool:
			verr.Add(f.Name, ruleerr.CodeRequired)
		}
	}
	return bv, verr.OrNil()
}

// ResolveTaskView validates values against the task's fields and attaches the
// deadline, calculation results and advisories that apply at now.
func (b *Binder) ResolveTaskView(area string, taskID string, values types.FieldValues, now time.Time) (types.TaskView, error) {
	task, err := b.catalogue.LookupTask(area, taskID)
	if err != nil {
		return types.TaskView{}, err
	}
	bv, err := bind(task, values)
	if err != nil {
		return types.TaskView{}, err
	}

	view := types.TaskView{
		PracticeArea: area,
		TaskID:       task.ID,
		Name:         task.Name,
		Statute:      task.Statute,
		Notes:        task.Notes,
		Values:       make(map[string]any, len(task.Fields)),
		Calculations: make([]types.CalculationResult, 0, len(task.Calculations)),
		Advisories:   make([]types.AdvisoryHit, 0),
	}
	for _, f := range task.Fields {
		if bv.present[f.Name] {
			view.Values[f.Name] = bv.values[f.Name].JSON()
		}
	}

	if task.Deadline != nil {
		dv, err := resolveDeadline(*task.Deadline, bv, now)
		if err != nil {
			return types.TaskView{}, err
		}
		view.Deadline = &dv
	}

	in := bv.celInput(view.Deadline)
	verr := &ruleerr.ValidationError{}
	for _, c := range task.Calculations {
		if c.When != "" && !b.guard(task.ID, c.ID, c.When, in) {
			continue
		}
		res, ok, err := b.runCalculation(area, c, bv, now, verr)
		if err != nil {
			return types.TaskView{}, err
		}
		if !ok {
			continue
		}
		view.Calculations = append(view.Calculations, res)
		for name, wire := range outputValues(c, res) {
			view.Values[name] = wire
			if f, ok := task.Field(name); ok {
				v, _, _ := fieldmeta.Normalize(f, wire)
				in.Fields[name] = v.CEL()
				in.Filled[name] = true
			}
		}
	}
	if err := verr.OrNil(); err != nil {
		return types.TaskView{}, err
	}

	for _, a := range task.Advisories {
		if b.guard(task.ID, a.ID, a.When, in) {
			view.Advisories = append(view.Advisories, types.AdvisoryHit{ID: a.ID, Message: a.Message, Citation: a.Citation})
		}
	}
	return view, nil
}

func (b *Binder) guard(taskID string, ruleID string, expr string, in rulecel.Input) bool {
	p, ok := b.programs[expr]
	if !ok {
		var err error
		p, err = rulecel.Compile(expr)
		if err != nil {
			b.logger.Warn("rule expression rejected", "task_id", taskID, "rule_id", ruleID, "err", err)
			return false
		}
	}
	hit, err := p.Eval(in)
	if err != nil {
		b.logger.Warn("rule expression failed", "task_id", taskID, "rule_id", ruleID, "err", err)
		return false
	}
	return hit
}

func resolveDeadline(rule cataloguetypes.DeadlineRule, bv boundValues, now time.Time) (types.DeadlineView, error) {
	dv := types.DeadlineView{Rule: rule.Text, Computable: rule.Computable()}
	if !dv.Computable {
		return dv, nil
	}
	dv.TriggerField = rule.TriggerField
	dv.OffsetDays = *rule.OffsetDays
	if !bv.present[rule.TriggerField] {
		return dv, nil
	}
	trigger := bv.values[rule.TriggerField].Date
	ev, err := deadline.Evaluate(trigger, *rule.OffsetDays, now)
	if err != nil {
		return types.DeadlineView{}, err
	}
	days := ev.DaysRemaining
	dv.Trigger = ev.Trigger.Format(deadline.DateLayout)
	dv.Due = ev.Due.Format(deadline.DateLayout)
	dv.DaysRemaining = &days
	dv.Status = ev.Status
	return dv, nil
}
