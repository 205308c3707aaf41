package fieldmeta

import (
	"encoding/json"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/deadline"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

// Field names double as storage keys and CEL map keys.
var fieldKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

func IsFieldKey(name string) bool {
	return fieldKeyRe.MatchString(name)
}

type KindDefinition struct {
	Kind         types.FieldKind
	ValueType    string
	AllowOptions bool
	Computable   bool
}

var kindDefinitions = []KindDefinition{
	{Kind: types.FieldText, ValueType: "text"},
	{Kind: types.FieldTextarea, ValueType: "text"},
	{Kind: types.FieldNumber, ValueType: "number", Computable: true},
	{Kind: types.FieldDate, ValueType: "date", Computable: true},
	{Kind: types.FieldCheckbox, ValueType: "bool"},
	{Kind: types.FieldSelect, ValueType: "text", AllowOptions: true},
}

var kindDefinitionByKind = func() map[types.FieldKind]KindDefinition {
	out := make(map[types.FieldKind]KindDefinition, len(kindDefinitions))
	for _, def := range kindDefinitions {
		out[def.Kind] = def
	}
	return out
}()

func ListKinds() []KindDefinition {
	return slices.Clone(kindDefinitions)
}

func LookupKind(kind types.FieldKind) (KindDefinition, bool) {
	def, ok := kindDefinitionByKind[kind]
	return def, ok
}

// Value is a normalized field value. Exactly one payload is meaningful for Kind.
type Value struct {
	Kind   types.FieldKind
	Text   string
	Number decimal.Decimal
	Date   time.Time
	Bool   bool
}

// JSON returns the wire form: dates as YYYY-MM-DD, numbers as decimal strings.
func (v Value) JSON() any {
	switch v.Kind {
	case types.FieldNumber:
		return v.Number.String()
	case types.FieldDate:
		if v.Date.IsZero() {
			return ""
		}
		return v.Date.Format(deadline.DateLayout)
	case types.FieldCheckbox:
		return v.Bool
	default:
		return v.Text
	}
}

// CEL returns the value as seen by guard and advisory expressions.
func (v Value) CEL() any {
	switch v.Kind {
	case types.FieldNumber:
		return v.Number.InexactFloat64()
	case types.FieldDate:
		if v.Date.IsZero() {
			return ""
		}
		return v.Date.Format(deadline.DateLayout)
	case types.FieldCheckbox:
		return v.Bool
	default:
		return v.Text
	}
}

func Zero(spec types.FieldSpec) Value {
	return Value{Kind: spec.Kind, Number: decimal.Zero}
}

// Normalize converts a stored value. present is false for nil and blank strings.
// A non-empty code reports why raw does not fit the field.
func Normalize(spec types.FieldSpec, raw any) (v Value, present bool, code string) {
	v = Zero(spec)
	if raw == nil {
		return v, false, ""
	}
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
		if raw == "" {
			return v, false, ""
		}
	}

	switch spec.Kind {
	case types.FieldText, types.FieldTextarea:
		s, ok := raw.(string)
		if !ok {
			return v, true, ruleerr.CodeInvalidText
		}
		v.Text = s
	case types.FieldSelect:
		s, ok := raw.(string)
		if !ok || !slices.Contains(spec.Options, s) {
			return v, true, ruleerr.CodeInvalidOption
		}
		v.Text = s
	case types.FieldNumber:
		n, ok := toDecimal(raw)
		if !ok {
			return v, true, ruleerr.CodeInvalidNumber
		}
		v.Number = n
	case types.FieldDate:
		switch x := raw.(type) {
		case string:
			d, err := deadline.ParseDate(x)
			if err != nil {
				return v, true, ruleerr.CodeInvalidDate
			}
			v.Date = d
		case time.Time:
			if x.IsZero() {
				return v, false, ""
			}
			y, m, d := x.Date()
			v.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		default:
			return v, true, ruleerr.CodeInvalidDate
		}
	case types.FieldCheckbox:
		b, ok := toBool(raw)
		if !ok {
			return v, true, ruleerr.CodeInvalidBool
		}
		v.Bool = b
	default:
		return v, true, ruleerr.CodeInvalidText
	}
	return v, true, ""
}

func toDecimal(raw any) (decimal.Decimal, bool) {
	switch x := raw.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimPrefix(x, "$"), ",", "")
		d, err := decimal.NewFromString(s)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func toBool(raw any) (bool, bool) {
	switch x := raw.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(x) {
		case "true", "on", "yes", "1":
			return true, true
		case "false", "off", "no", "0":
			return false, true
		}
	}
	return false, false
}
