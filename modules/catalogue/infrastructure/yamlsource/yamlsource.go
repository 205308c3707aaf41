package yamlsource

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/tiered"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/timebudget"
)

//go:embed data/ny.yaml
var nyCatalogue []byte

//go:embed data/catalogue.schema.json
var catalogueSchema string

const schemaURL = "https://paralegal.local/schemas/catalogue.schema.json"

// SupportedVersions is the catalogue format range this build understands.
const SupportedVersions = "^1"

var (
	ErrSchema      = errors.New("yamlsource: catalogue does not match schema")
	ErrVersion     = errors.New("yamlsource: unsupported catalogue version")
	ErrMalformed   = errors.New("yamlsource: malformed catalogue")
	compiledSchema = mustCompileSchema()
)

type Document struct {
	Version      string
	Jurisdiction string
	Areas        []types.PracticeArea
}

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(catalogueSchema)); err != nil {
		panic(fmt.Sprintf("yamlsource: schema load failed: %v", err))
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("yamlsource: schema compile failed: %v", err))
	}
	return s
}

// Embedded returns the raw catalogue shipped with the binary.
func Embedded() []byte {
	return bytes.Clone(nyCatalogue)
}

func LoadEmbedded() (Document, error) {
	return Parse(nyCatalogue)
}

// Parse validates raw against the catalogue schema and version range, then decodes it.
func Parse(raw []byte) (Document, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	instance, err := toJSONValue(generic)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := compiledSchema.Validate(instance); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	var doc documentDTO
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := checkVersion(doc.Version); err != nil {
		return Document{}, err
	}

	out := Document{Version: doc.Version, Jurisdiction: doc.Jurisdiction}
	for _, a := range doc.PracticeAreas {
		area, err := a.toDomain()
		if err != nil {
			return Document{}, err
		}
		out.Areas = append(out.Areas, area)
	}
	return out, nil
}

func checkVersion(raw string) error {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrVersion, raw, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s not in %s", ErrVersion, v, SupportedVersions)
	}
	return nil
}

// toJSONValue round-trips through encoding/json so the validator sees json.Number and map[string]any.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

type documentDTO struct {
	Version       string            `yaml:"version"`
	Jurisdiction  string            `yaml:"jurisdiction"`
	PracticeAreas []practiceAreaDTO `yaml:"practice_areas"`
}

type practiceAreaDTO struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	TaskPrefix string     `yaml:"task_prefix"`
	Tasks      []taskDTO  `yaml:"tasks"`
	Tables     []tableDTO `yaml:"tables"`
}

type taskDTO struct {
	ID           string           `yaml:"id"`
	Name         string           `yaml:"name"`
	Description  string           `yaml:"description"`
	Statute      string           `yaml:"statute"`
	Deadline     *deadlineDTO     `yaml:"deadline"`
	Fields       []fieldDTO       `yaml:"fields"`
	Notes        string           `yaml:"notes"`
	Calculations []calculationDTO `yaml:"calculations"`
	Advisories   []advisoryDTO    `yaml:"advisories"`
}

type deadlineDTO struct {
	Text         string `yaml:"text"`
	OffsetDays   *int   `yaml:"offset_days"`
	TriggerField string `yaml:"trigger_field"`
}

type advisoryDTO struct {
	ID       string `yaml:"id"`
	When     string `yaml:"when"`
	Message  string `yaml:"message"`
	Citation string `yaml:"citation"`
}

type fieldDTO struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Kind     string   `yaml:"kind"`
	Required bool     `yaml:"required"`
	ReadOnly bool     `yaml:"readonly"`
	Options  []string `yaml:"options"`
}

type calculationDTO struct {
	ID              string            `yaml:"id"`
	Kind            string            `yaml:"kind"`
	Table           string            `yaml:"table"`
	When            string            `yaml:"when"`
	AmountFields    []string          `yaml:"amount_fields"`
	DeductFields    []string          `yaml:"deduct_fields"`
	BasisFields     []string          `yaml:"basis_fields"`
	AmountCap       string            `yaml:"amount_cap"`
	KeyField        string            `yaml:"key_field"`
	CategoryField   string            `yaml:"category_field"`
	CategoryMap     map[string]string `yaml:"category_map"`
	AnchorField     string            `yaml:"anchor_field"`
	ElapsedField    string            `yaml:"elapsed_field"`
	ExcludableField string            `yaml:"excludable_field"`
	Outputs         map[string]string `yaml:"outputs"`
}

type tableDTO struct {
	Name        string          `yaml:"name"`
	Kind        string          `yaml:"kind"`
	Statute     string          `yaml:"statute"`
	Notes       string          `yaml:"notes"`
	Boundary    string          `yaml:"boundary"`
	Brackets    []rateDTO       `yaml:"brackets"`
	Entries     []rateDTO       `yaml:"entries"`
	Budgets     []budgetDTO     `yaml:"budgets"`
	Limitations []limitationDTO `yaml:"limitations"`
	Factors     []string        `yaml:"factors"`
}

type budgetDTO struct {
	Category string `yaml:"category"`
	Amount   int    `yaml:"amount"`
	Unit     string `yaml:"unit"`
	Statute  string `yaml:"statute"`
}

type limitationDTO struct {
	ClaimType string `yaml:"claim_type"`
	Months    int    `yaml:"months"`
	Days      int    `yaml:"days"`
	Statute   string `yaml:"statute"`
	Notes     string `yaml:"notes"`
}

type rateDTO struct {
	Min  string `yaml:"min"`
	Key  int    `yaml:"key"`
	Rate string `yaml:"rate"`
}

func (a practiceAreaDTO) toDomain() (types.PracticeArea, error) {
	out := types.PracticeArea{
		ID:         types.PracticeAreaID(a.ID),
		Name:       a.Name,
		TaskPrefix: a.TaskPrefix,
	}
	for _, t := range a.Tasks {
		task, err := t.toDomain()
		if err != nil {
			return types.PracticeArea{}, fmt.Errorf("%s/%s: %w", a.ID, t.ID, err)
		}
		out.Tasks = append(out.Tasks, task)
	}
	for _, t := range a.Tables {
		table, err := t.toDomain()
		if err != nil {
			return types.PracticeArea{}, fmt.Errorf("%s/%s: %w", a.ID, t.Name, err)
		}
		out.Tables = append(out.Tables, table)
	}
	return out, nil
}

func (t taskDTO) toDomain() (types.TaskDefinition, error) {
	out := types.TaskDefinition{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Statute:     t.Statute,
		Notes:       t.Notes,
	}
	if t.Deadline != nil {
		out.Deadline = &types.DeadlineRule{
			Text:         t.Deadline.Text,
			OffsetDays:   t.Deadline.OffsetDays,
			TriggerField: t.Deadline.TriggerField,
		}
	}
	for _, a := range t.Advisories {
		out.Advisories = append(out.Advisories, types.Advisory(a))
	}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, types.FieldSpec{
			Name:     f.Name,
			Label:    f.Label,
			Kind:     types.FieldKind(f.Kind),
			Required: f.Required,
			ReadOnly: f.ReadOnly,
			Options:  f.Options,
		})
	}
	for _, c := range t.Calculations {
		calc := types.Calculation{
			ID:              c.ID,
			Kind:            types.CalculationKind(c.Kind),
			Table:           c.Table,
			When:            c.When,
			AmountFields:    c.AmountFields,
			DeductFields:    c.DeductFields,
			BasisFields:     c.BasisFields,
			KeyField:        c.KeyField,
			CategoryField:   c.CategoryField,
			CategoryMap:     c.CategoryMap,
			AnchorField:     c.AnchorField,
			ElapsedField:    c.ElapsedField,
			ExcludableField: c.ExcludableField,
			Outputs:         c.Outputs,
		}
		if c.AmountCap != "" {
			capped, err := decimal.NewFromString(c.AmountCap)
			if err != nil {
				return types.TaskDefinition{}, fmt.Errorf("%w: calculation %s amount_cap: %v", ErrMalformed, c.ID, err)
			}
			calc.AmountCap = &capped
		}
		out.Calculations = append(out.Calculations, calc)
	}
	return out, nil
}

func (t tableDTO) toDomain() (types.Table, error) {
	out := types.Table{
		Name:        t.Name,
		Kind:        types.TableKind(t.Kind),
		Statute:     t.Statute,
		Notes:       t.Notes,
		Factors:     t.Factors,
	}
	for _, b := range t.Budgets {
		out.Budgets = append(out.Budgets, timebudget.Budget{
			Category: b.Category,
			Amount:   b.Amount,
			Unit:     timebudget.Unit(b.Unit),
			Statute:  b.Statute,
		})
	}
	for _, l := range t.Limitations {
		out.Limitations = append(out.Limitations, types.LimitationPeriod(l))
	}
	switch out.Kind {
	case types.TableBracket:
		boundary := tiered.Boundary(t.Boundary)
		if boundary == "" {
			boundary = tiered.BoundaryLower
		}
		table := tiered.BracketTable{Name: t.Name, Boundary: boundary}
		for _, b := range t.Brackets {
			lo, err := decimal.NewFromString(b.Min)
			if err != nil {
				return types.Table{}, fmt.Errorf("%w: bracket min %q", ErrMalformed, b.Min)
			}
			rate, err := decimal.NewFromString(b.Rate)
			if err != nil {
				return types.Table{}, fmt.Errorf("%w: bracket rate %q", ErrMalformed, b.Rate)
			}
			table.Brackets = append(table.Brackets, tiered.Bracket{Min: lo, Rate: rate})
		}
		out.Brackets = &table
	case types.TablePercentage:
		schedule := tiered.PercentageSchedule{Name: t.Name}
		for _, e := range t.Entries {
			rate, err := decimal.NewFromString(e.Rate)
			if err != nil {
				return types.Table{}, fmt.Errorf("%w: schedule rate %q", ErrMalformed, e.Rate)
			}
			schedule.Entries = append(schedule.Entries, tiered.Entry{Key: e.Key, Rate: rate})
		}
		out.Schedule = &schedule
	}
	return out, nil
}
