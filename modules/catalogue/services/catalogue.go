package services

import (
	"fmt"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/infrastructure/yamlsource"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/tiered"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/timebudget"
)

// Catalogue is the immutable, practice-area-partitioned rule registry.
// Every accessor returns deep copies; it is safe for concurrent readers.
type Catalogue struct {
	version string
	areas   []types.PracticeArea
	areaIdx map[types.PracticeAreaID]int
	taskIdx map[types.PracticeAreaID]map[string]int
	tblIdx  map[types.PracticeAreaID]map[string]int
}

func LoadDefault() (*Catalogue, error) {
	doc, err := yamlsource.LoadEmbedded()
	if err != nil {
		return nil, err
	}
	return New(doc.Version, doc.Areas)
}

func New(version string, areas []types.PracticeArea) (*Catalogue, error) {
	if err := Validate(areas); err != nil {
		return nil, err
	}
	c := &Catalogue{
		version: version,
		areaIdx: make(map[types.PracticeAreaID]int, len(areas)),
		taskIdx: make(map[types.PracticeAreaID]map[string]int, len(areas)),
		tblIdx:  make(map[types.PracticeAreaID]map[string]int, len(areas)),
	}
	for i, a := range areas {
		c.areas = append(c.areas, cloneArea(a))
		c.areaIdx[a.ID] = i
		tasks := make(map[string]int, len(a.Tasks))
		for j, t := range a.Tasks {
			tasks[t.ID] = j
		}
		c.taskIdx[a.ID] = tasks
		tables := make(map[string]int, len(a.Tables))
		for j, t := range a.Tables {
			tables[t.Name] = j
		}
		c.tblIdx[a.ID] = tables
	}
	return c, nil
}

func cloneArea(a types.PracticeArea) types.PracticeArea {
	out := a
	out.Tasks = make([]types.TaskDefinition, len(a.Tasks))
	for i, t := range a.Tasks {
		out.Tasks[i] = t.Clone()
	}
	out.Tables = make([]types.Table, len(a.Tables))
	for i, t := range a.Tables {
		out.Tables[i] = t.Clone()
	}
	return out
}

func (c *Catalogue) Version() string { return c.version }

func (c *Catalogue) area(id string) (types.PracticeArea, error) {
	i, ok := c.areaIdx[types.PracticeAreaID(id)]
	if !ok {
		return types.PracticeArea{}, fmt.Errorf("%w: practice area %q", ruleerr.ErrNotFound, id)
	}
	return c.areas[i], nil
}

func (c *Catalogue) ListPracticeAreas() []types.PracticeAreaSummary {
	out := make([]types.PracticeAreaSummary, 0, len(c.areas))
	for _, a := range c.areas {
		s := types.PracticeAreaSummary{ID: a.ID, Name: a.Name, TaskCount: len(a.Tasks)}
		for _, t := range a.Tables {
			s.Tables = append(s.Tables, t.Name)
		}
		out = append(out, s)
	}
	return out
}

// Areas returns a deep copy of every practice area in catalogue order.
func (c *Catalogue) Areas() []types.PracticeArea {
	out := make([]types.PracticeArea, 0, len(c.areas))
	for _, a := range c.areas {
		out = append(out, cloneArea(a))
	}
	return out
}

func (c *Catalogue) LookupTask(area string, taskID string) (types.TaskDefinition, error) {
	a, err := c.area(area)
	if err != nil {
		return types.TaskDefinition{}, err
	}
	i, ok := c.taskIdx[a.ID][taskID]
	if !ok {
		return types.TaskDefinition{}, fmt.Errorf("%w: task %q in %s", ruleerr.ErrNotFound, taskID, area)
	}
	return a.Tasks[i].Clone(), nil
}

func (c *Catalogue) ListTasks(area string) ([]types.TaskDefinition, error) {
	a, err := c.area(area)
	if err != nil {
		return nil, err
	}
	out := make([]types.TaskDefinition, 0, len(a.Tasks))
	for _, t := range a.Tasks {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (c *Catalogue) LookupTable(area string, name string) (types.Table, error) {
	a, err := c.area(area)
	if err != nil {
		return types.Table{}, err
	}
	i, ok := c.tblIdx[a.ID][name]
	if !ok {
		return types.Table{}, fmt.Errorf("%w: table %q in %s", ruleerr.ErrNotFound, name, area)
	}
	return a.Tables[i].Clone(), nil
}

func (c *Catalogue) lookupKind(area string, name string, kind types.TableKind) (types.Table, error) {
	t, err := c.LookupTable(area, name)
	if err != nil {
		return types.Table{}, err
	}
	if t.Kind != kind {
		return types.Table{}, fmt.Errorf("%w: table %q is %s, not %s", ruleerr.ErrInvalidInput, name, t.Kind, kind)
	}
	return t, nil
}

func (c *Catalogue) LookupBracketTable(area string, name string) (tiered.BracketTable, error) {
	t, err := c.lookupKind(area, name, types.TableBracket)
	if err != nil {
		return tiered.BracketTable{}, err
	}
	return *t.Brackets, nil
}

func (c *Catalogue) LookupPercentageSchedule(area string, name string) (tiered.PercentageSchedule, error) {
	t, err := c.lookupKind(area, name, types.TablePercentage)
	if err != nil {
		return tiered.PercentageSchedule{}, err
	}
	return *t.Schedule, nil
}

func (c *Catalogue) LookupTimeBudgets(area string, name string) ([]timebudget.Budget, error) {
	t, err := c.lookupKind(area, name, types.TableTimeBudget)
	if err != nil {
		return nil, err
	}
	return t.Budgets, nil
}
