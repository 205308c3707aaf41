package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
)

//go:embed lint.rego
var lintPolicy string

const lintQuery = "data.catalogue.lint.findings"

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Finding is one authoring-convention violation.
type Finding struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Area     string `json:"area"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
}

type Linter struct {
	query rego.PreparedEvalQuery
}

func NewLinter(ctx context.Context) (*Linter, error) {
	return NewLinterWithPolicy(ctx, lintPolicy)
}

func NewLinterWithPolicy(ctx context.Context, policy string) (*Linter, error) {
	q, err := rego.New(
		rego.Query(lintQuery),
		rego.Module("lint.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalogue: prepare lint policy: %w", err)
	}
	return &Linter{query: q}, nil
}

func (l *Linter) Lint(ctx context.Context, areas []types.PracticeArea) ([]Finding, error) {
	input, err := lintInput(areas)
	if err != nil {
		return nil, err
	}
	rs, err := l.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("catalogue: lint: %w", err)
	}

	out := make([]Finding, 0)
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(rs[0].Expressions[0].Value)
	if err != nil {
		return nil, fmt.Errorf("catalogue: lint result: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("catalogue: lint result: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Area != out[j].Area {
			return out[i].Area < out[j].Area
		}
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Rule < out[j].Rule
	})
	return out, nil
}

func lintInput(areas []types.PracticeArea) (map[string]any, error) {
	raw, err := json.Marshal(areas)
	if err != nil {
		return nil, fmt.Errorf("catalogue: lint input: %w", err)
	}
	var generic []any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("catalogue: lint input: %w", err)
	}
	return map[string]any{"areas": generic}, nil
}

// HasErrors reports whether any finding is error severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Lint runs the embedded authoring policy over the loaded catalogue.
func (c *Catalogue) Lint(ctx context.Context) ([]Finding, error) {
	l, err := NewLinter(ctx)
	if err != nil {
		return nil, err
	}
	return l.Lint(ctx, c.areas)
}
