package rulecel

import (
	"errors"
	"sync"
	"testing"
)

func TestCompile(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, err := Compile("  "); !errors.Is(err, ErrEmpty) {
			t.Fatalf("err=%v", err)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		if _, err := Compile("fields.a &&"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown variable", func(t *testing.T) {
		if _, err := Compile("matter.open"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("non-bool output", func(t *testing.T) {
		if _, err := Compile(`"text"`); !errors.Is(err, ErrOutputType) {
			t.Fatalf("err=%v", err)
		}
	})

	t.Run("int output", func(t *testing.T) {
		if _, err := Compile("1 + 2"); !errors.Is(err, ErrOutputType) {
			t.Fatalf("err=%v", err)
		}
	})

	t.Run("bare map lookup", func(t *testing.T) {
		if _, err := Compile("fields.is_residential"); err != nil {
			t.Fatalf("err=%v", err)
		}
	})

	t.Run("cached", func(t *testing.T) {
		a, err := Compile("fields.is_nyc")
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		b, err := Compile(" fields.is_nyc ")
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if a.Expr() != b.Expr() {
			t.Fatalf("a=%q b=%q", a.Expr(), b.Expr())
		}
	})
}

func TestEval(t *testing.T) {
	cases := []struct {
		name string
		expr string
		in   Input
		want bool
	}{
		{
			name: "checkbox conjunction",
			expr: "fields.is_nyc && !fields.is_residential",
			in:   Input{Fields: map[string]any{"is_nyc": true, "is_residential": false}},
			want: true,
		},
		{
			name: "number threshold",
			expr: "fields.payor_income > 228000.0",
			in:   Input{Fields: map[string]any{"payor_income": 150000.0}},
			want: false,
		},
		{
			name: "filled guard",
			expr: "filled.marriage_length && fields.marriage_length <= 15.0",
			in: Input{
				Fields: map[string]any{"marriage_length": 0.0},
				Filled: map[string]bool{"marriage_length": false},
			},
			want: false,
		},
		{
			name: "deadline status",
			expr: `deadline.status == "passed"`,
			in:   Input{Deadline: map[string]any{"status": "passed", "days_remaining": int64(-3)}},
			want: true,
		},
		{
			name: "select equality",
			expr: `fields.claim_type == "medical_malpractice"`,
			in:   Input{Fields: map[string]any{"claim_type": "general_negligence"}},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Compile(tc.expr)
			if err != nil {
				t.Fatalf("compile err=%v", err)
			}
			got, err := p.Eval(tc.in)
			if err != nil {
				t.Fatalf("eval err=%v", err)
			}
			if got != tc.want {
				t.Fatalf("got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestEvalMissingKey(t *testing.T) {
	p, err := Compile("fields.absent")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := p.Eval(Input{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestEvalBareLookup(t *testing.T) {
	p, err := Compile("fields.is_residential")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	got, err := p.Eval(Input{Fields: map[string]any{"is_residential": true}})
	if err != nil || !got {
		t.Fatalf("got=%v err=%v", got, err)
	}
	got, err = p.Eval(Input{Fields: map[string]any{"is_residential": false}})
	if err != nil || got {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if _, err := p.Eval(Input{Fields: map[string]any{"is_residential": "yes"}}); !errors.Is(err, ErrOutputType) {
		t.Fatalf("non-bool value: err=%v", err)
	}
}

func TestEvalZeroProgram(t *testing.T) {
	if _, err := (Program{}).Eval(Input{}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err=%v", err)
	}
}

func TestCompileConcurrent(t *testing.T) {
	const expr = `filled.concurrent_flag && fields.concurrent_flag == "yes"`
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := Compile(expr)
			if err != nil {
				errs <- err
				return
			}
			ok, err := p.Eval(Input{
				Fields: map[string]any{"concurrent_flag": "yes"},
				Filled: map[string]bool{"concurrent_flag": true},
			})
			if err != nil || !ok {
				errs <- errors.New("unexpected eval result")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
