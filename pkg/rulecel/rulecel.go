// Package rulecel compiles and evaluates the boolean guard expressions that
// catalogue calculations and advisories carry.
//
// Expressions see three variables:
//
//	fields    map(string, dyn)  every task field, zero-filled when absent
//	filled    map(string, bool) whether the field carried a value
//	deadline  map(string, dyn)  status, days_remaining, due, computed
package rulecel

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"golang.org/x/sync/singleflight"
)

var (
	ErrEmpty      = errors.New("rulecel: expression required")
	ErrOutputType = errors.New("rulecel: expression must evaluate to bool")
)

var newEnv = func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("fields", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("filled", cel.MapType(cel.StringType, cel.BoolType)),
		cel.Variable("deadline", cel.MapType(cel.StringType, cel.DynType)),
	)
}

var (
	programCache sync.Map
	compiles     singleflight.Group
)

// Program is a compiled guard, safe for concurrent evaluation.
type Program struct {
	expr string
	prg  cel.Program
}

func (p Program) Expr() string { return p.expr }

// Compile returns the cached program for expr, compiling it on first use.
func Compile(expr string) (Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Program{}, ErrEmpty
	}
	if cached, ok := programCache.Load(expr); ok {
		return cached.(Program), nil
	}
	v, err, _ := compiles.Do(expr, func() (any, error) {
		if cached, ok := programCache.Load(expr); ok {
			return cached.(Program), nil
		}
		p, err := compile(expr)
		if err != nil {
			return Program{}, err
		}
		programCache.Store(expr, p)
		return p, nil
	})
	if err != nil {
		return Program{}, err
	}
	return v.(Program), nil
}

func compile(expr string) (Program, error) {
	env, err := newEnv()
	if err != nil {
		return Program{}, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return Program{}, fmt.Errorf("rulecel: %q: %w", expr, issues.Err())
	}
	// A dyn result (a bare map lookup) is checked again in Eval.
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return Program{}, fmt.Errorf("%w: %q", ErrOutputType, expr)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return Program{}, fmt.Errorf("rulecel: %q: %w", expr, err)
	}
	return Program{expr: expr, prg: prg}, nil
}

// Input is the activation an expression is evaluated against.
type Input struct {
	Fields   map[string]any
	Filled   map[string]bool
	Deadline map[string]any
}

func (in Input) activation() map[string]any {
	fields := in.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	filled := in.Filled
	if filled == nil {
		filled = map[string]bool{}
	}
	dl := in.Deadline
	if dl == nil {
		dl = map[string]any{}
	}
	return map[string]any{"fields": fields, "filled": filled, "deadline": dl}
}

func (p Program) Eval(in Input) (bool, error) {
	if p.prg == nil {
		return false, ErrEmpty
	}
	out, _, err := p.prg.Eval(in.activation())
	if err != nil {
		return false, fmt.Errorf("rulecel: eval %q: %w", p.expr, err)
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrOutputType, p.expr)
	}
	return v, nil
}
