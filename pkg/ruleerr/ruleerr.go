package ruleerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("ruleerr: not found")
	ErrInvalidInput = errors.New("ruleerr: invalid input")
	ErrForbidden    = errors.New("ruleerr: forbidden")

	// ErrOutOfRange is an ErrInvalidInput for amounts outside a table's domain.
	ErrOutOfRange = fmt.Errorf("%w: out of range", ErrInvalidInput)
)

const (
	CodeRequired      = "required"
	CodeInvalidDate   = "invalid_date"
	CodeInvalidNumber = "invalid_number"
	CodeInvalidBool   = "invalid_checkbox"
	CodeInvalidOption = "invalid_option"
	CodeInvalidText   = "invalid_text"
	CodeOutOfRange    = "out_of_range"
	CodeUnknownField  = "unknown_field"
)

type Problem struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// ValidationError carries every field problem found in one pass.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "ruleerr: validation failed"
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+"="+p.Code)
	}
	return "ruleerr: validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Add(field string, code string) {
	e.Problems = append(e.Problems, Problem{Field: field, Code: code})
}

func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Problems) == 0
}

// FieldNames returns the distinct field names with at least one problem, sorted.
func (e *ValidationError) FieldNames() []string {
	if e == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(e.Problems))
	out := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if _, ok := seen[p.Field]; ok {
			continue
		}
		seen[p.Field] = struct{}{}
		out = append(out, p.Field)
	}
	sort.Strings(out)
	return out
}

// Missing returns the fields reported as required but absent.
func (e *ValidationError) Missing() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0)
	for _, p := range e.Problems {
		if p.Code == CodeRequired {
			out = append(out, p.Field)
		}
	}
	return out
}

// OrNil returns e as an error when it holds problems, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func AsValidation(err error) (*ValidationError, bool) {
	return errors.AsType[*ValidationError](err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
