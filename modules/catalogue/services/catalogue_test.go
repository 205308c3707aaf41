package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/tiered"
)

func mustDefault(t *testing.T) *Catalogue {
	t.Helper()
	c, err := LoadDefault()
	require.NoError(t, err)
	return c
}

func TestLoadDefault(t *testing.T) {
	c := mustDefault(t)
	require.NotEmpty(t, c.Version())

	areas := c.ListPracticeAreas()
	require.Len(t, areas, 4)
	for i, want := range types.PracticeAreaIDs {
		require.Equal(t, want, areas[i].ID)
		require.Equal(t, 7, areas[i].TaskCount)
	}
	require.Contains(t, areas[2].Tables, "mansion_tax_tiers")
}

func TestLookupTask(t *testing.T) {
	c := mustDefault(t)

	t.Run("found", func(t *testing.T) {
		task, err := c.LookupTask("personal-injury", "pi-notice-of-claim")
		require.NoError(t, err)
		require.Equal(t, "General Municipal Law §50-e", task.Statute)
		require.True(t, task.Deadline.Computable())
		require.Equal(t, 90, *task.Deadline.OffsetDays)
	})

	t.Run("unknown area", func(t *testing.T) {
		_, err := c.LookupTask("maritime", "pi-notice-of-claim")
		require.True(t, ruleerr.IsNotFound(err))
	})

	t.Run("task in other area", func(t *testing.T) {
		_, err := c.LookupTask("family-law", "pi-notice-of-claim")
		require.True(t, ruleerr.IsNotFound(err))
	})
}

func TestListTasksOrder(t *testing.T) {
	c := mustDefault(t)
	tasks, err := c.ListTasks("criminal-defense")
	require.NoError(t, err)
	require.Len(t, tasks, 7)
	require.Equal(t, "cd-arraignment", tasks[0].ID)
	require.Equal(t, "cd-yo-eligibility", tasks[6].ID)

	_, err = c.ListTasks("")
	require.True(t, ruleerr.IsNotFound(err))
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := mustDefault(t)

	task, err := c.LookupTask("personal-injury", "pi-notice-of-claim")
	require.NoError(t, err)
	*task.Deadline.OffsetDays = 1
	task.Fields[0].Name = "mutated"

	again, err := c.LookupTask("personal-injury", "pi-notice-of-claim")
	require.NoError(t, err)
	require.Equal(t, 90, *again.Deadline.OffsetDays)
	require.Equal(t, "incident_date", again.Fields[0].Name)

	bt, err := c.LookupBracketTable("real-estate", "mansion_tax_tiers")
	require.NoError(t, err)
	bt.Brackets[1].Rate = decimal.NewFromInt(9)

	bt2, err := c.LookupBracketTable("real-estate", "mansion_tax_tiers")
	require.NoError(t, err)
	require.True(t, bt2.Brackets[1].Rate.Equal(decimal.RequireFromString("0.01")))

	areas := c.Areas()
	areas[0].Tasks = nil
	require.Len(t, c.Areas()[0].Tasks, 7)
}

func TestLookupTables(t *testing.T) {
	c := mustDefault(t)

	sched, err := c.LookupPercentageSchedule("family-law", "cssa_percentages")
	require.NoError(t, err)
	rate, err := tiered.ApplyPercentageSchedule(sched, 2)
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("0.25")), "rate=%s", rate)

	budgets, err := c.LookupTimeBudgets("criminal-defense", "speedy_trial_limits")
	require.NoError(t, err)
	require.Len(t, budgets, 4)

	_, err = c.LookupBracketTable("family-law", "cssa_percentages")
	require.True(t, ruleerr.IsInvalidInput(err))
	require.False(t, ruleerr.IsNotFound(err))

	_, err = c.LookupTable("real-estate", "no_such_table")
	require.True(t, ruleerr.IsNotFound(err))

	factors, err := c.LookupTable("family-law", "equitable_distribution_factors")
	require.NoError(t, err)
	require.NotEmpty(t, factors.Factors)
}

func minimalArea() types.PracticeArea {
	offset := 10
	return types.PracticeArea{
		ID:         types.PersonalInjury,
		Name:       "Personal Injury",
		TaskPrefix: "pi-",
		Tasks: []types.TaskDefinition{{
			ID:   "pi-one",
			Name: "One",
			Deadline: &types.DeadlineRule{
				Text:         "10 days",
				OffsetDays:   &offset,
				TriggerField: "start",
			},
			Fields: []types.FieldSpec{{Name: "start", Label: "Start", Kind: types.FieldDate, Required: true}},
		}},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate([]types.PracticeArea{minimalArea()}))

	withExtras := minimalArea()
	withExtras.Tasks[0].Fields = append(withExtras.Tasks[0].Fields, types.FieldSpec{Name: "is_nyc", Label: "NYC", Kind: types.FieldCheckbox})
	withExtras.Tasks[0].Advisories = []types.Advisory{{ID: "nyc", When: "fields.is_nyc", Message: "m"}}
	withExtras.Tables = []types.Table{{
		Name:        "limits",
		Kind:        types.TableLimitation,
		Limitations: []types.LimitationPeriod{{ClaimType: "notice", Days: 90}},
	}}
	require.NoError(t, Validate([]types.PracticeArea{withExtras}))

	cases := []struct {
		name   string
		mutate func(a *types.PracticeArea)
	}{
		{"unknown area", func(a *types.PracticeArea) { a.ID = "maritime" }},
		{"duplicate task", func(a *types.PracticeArea) { a.Tasks = append(a.Tasks, a.Tasks[0].Clone()) }},
		{"trigger not a date", func(a *types.PracticeArea) { a.Tasks[0].Fields[0].Kind = types.FieldText }},
		{"negative offset", func(a *types.PracticeArea) {
			n := -1
			a.Tasks[0].Deadline.OffsetDays = &n
		}},
		{"select without options", func(a *types.PracticeArea) {
			a.Tasks[0].Fields = append(a.Tasks[0].Fields, types.FieldSpec{Name: "pick", Kind: types.FieldSelect})
		}},
		{"malformed field name", func(a *types.PracticeArea) { a.Tasks[0].Fields[0].Name = "Start Date" }},
		{"advisory expression does not compile", func(a *types.PracticeArea) {
			a.Tasks[0].Advisories = []types.Advisory{{ID: "x", When: "fields.start >", Message: "m"}}
		}},
		{"advisory expression not boolean", func(a *types.PracticeArea) {
			a.Tasks[0].Advisories = []types.Advisory{{ID: "x", When: `"yes"`, Message: "m"}}
		}},
		{"calculation table missing", func(a *types.PracticeArea) {
			a.Tasks[0].Calculations = []types.Calculation{{ID: "c", Kind: types.CalcBracket, Table: "nope"}}
		}},
		{"bracket table unsorted", func(a *types.PracticeArea) {
			a.Tables = []types.Table{{
				Name: "t",
				Kind: types.TableBracket,
				Brackets: &tiered.BracketTable{Name: "t", Boundary: tiered.BoundaryLower, Brackets: []tiered.Bracket{
					{Min: decimal.Zero, Rate: decimal.Zero},
					{Min: decimal.Zero, Rate: decimal.Zero},
				}},
			}}
		}},
		{"limitation period empty", func(a *types.PracticeArea) {
			a.Tables = []types.Table{{Name: "t", Kind: types.TableLimitation, Limitations: []types.LimitationPeriod{{ClaimType: "x"}}}}
		}},
		{"limitation days negative", func(a *types.PracticeArea) {
			a.Tables = []types.Table{{Name: "t", Kind: types.TableLimitation, Limitations: []types.LimitationPeriod{{ClaimType: "x", Months: 12, Days: -1}}}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := minimalArea()
			tc.mutate(&a)
			err := Validate([]types.PracticeArea{a})
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidCatalogue))
		})
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	a := minimalArea()
	a.Tasks[0].Deadline.TriggerField = "missing"
	_, err := New("1.0.0", []types.PracticeArea{a})
	require.ErrorIs(t, err, ErrInvalidCatalogue)
}
