package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the Value union.
type Kind int

const (
	KindMissing Kind = iota // absent metadata, the "undefined" literal
	KindNull
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

var kindNames = [...]string{
	KindMissing: "missing",
	KindNull:    "null",
	KindBool:    "bool",
	KindNumber:  "number",
	KindString:  "string",
	KindList:    "list",
	KindObject:  "object",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is the single typed representation every metadata shape is normalized
// into before it enters the evaluator.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	list []Value
	obj  map[string]Value
}

var (
	missingValue = Value{kind: KindMissing}
	nullValue    = Value{kind: KindNull}
)

func MissingVal() Value            { return missingValue }
func NullVal() Value               { return nullValue }
func BoolVal(b bool) Value         { return Value{kind: KindBool, b: b} }
func NumberVal(f float64) Value    { return Value{kind: KindNumber, num: f} }
func StringVal(s string) Value     { return Value{kind: KindString, str: s} }
func ListVal(vs []Value) Value     { return Value{kind: KindList, list: vs} }
func ObjectVal(m map[string]Value) Value {
	return Value{kind: KindObject, obj: m}
}

// FromAny normalizes a dynamically-typed value (as produced by a YAML or JSON
// decoder) into a Value. Unrecognized types are stringified.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return NullVal()
	case Value:
		return t
	case bool:
		return BoolVal(t)
	case int:
		return NumberVal(float64(t))
	case int64:
		return NumberVal(float64(t))
	case uint64:
		return NumberVal(float64(t))
	case float64:
		return NumberVal(t)
	case string:
		return StringVal(t)
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = FromAny(e)
		}
		return ListVal(vs)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = FromAny(e)
		}
		return ObjectVal(m)
	default:
		return StringVal(fmt.Sprintf("%v", t))
	}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// isAbsent reports whether the value is missing or null; the two compare
// equal to one another and to nothing else.
func (v Value) isAbsent() bool { return v.kind == KindMissing || v.kind == KindNull }

// List returns the element slice for list values, nil otherwise.
func (v Value) List() []Value { return v.list }

// Field performs one step of property access. Missing intermediates yield
// missing rather than an error, so deep chains short-circuit cleanly.
func (v Value) Field(name string) Value {
	if v.kind != KindObject {
		return MissingVal()
	}
	fv, ok := v.obj[name]
	if !ok {
		return MissingVal()
	}
	return fv
}

// Num reports the value coerced to a number and whether the coercion held:
// numbers themselves, and strings that parse as numbers.
func (v Value) Num() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Truthy implements the loose truthiness model: false, 0, "", missing, null
// and the literal strings "false", "0", "null", "undefined" are falsy;
// everything else, including empty lists and objects, is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindMissing, KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		switch strings.ToLower(v.str) {
		case "", "false", "0", "null", "undefined":
			return false
		}
		return true
	}
	return true
}

// Equal implements the == operator: absent values equal each other only,
// numeric strings compare as numbers, and string comparison ignores case.
func (v Value) Equal(o Value) bool {
	if v.isAbsent() || o.isAbsent() {
		return v.isAbsent() && o.isAbsent()
	}
	if a, ok := v.Num(); ok {
		if b, ok := o.Num(); ok {
			return a == b
		}
	}
	return strings.EqualFold(v.Display(), o.Display())
}

// Display renders the value as the flat string form consumed by widgets.
// Absent values render empty; lists and objects render as JSON.
func (v Value) Display() string {
	switch v.kind {
	case KindMissing, KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.num)
	case KindString:
		return v.str
	case KindList, KindObject:
		b, err := json.Marshal(v.ToAny())
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// ToAny converts back to a dynamically-typed representation, primarily for
// JSON marshalling of lists and objects.
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.ToAny()
		}
		return out
	}
	return nil
}

// formatNumber matches the display conventions widgets expect: integral
// floats render without a decimal point, infinities as Infinity.
func formatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
