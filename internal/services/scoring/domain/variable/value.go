package variable

import (
	"fmt"
	"strconv"
)

// ValueKind identifies the runtime type of a Value.
type ValueKind int

const (
	// KindZero is the zero value of an unresolved variable.
	KindZero ValueKind = iota
	// KindNumber holds a numeric value.
	KindNumber
	// KindBoolean holds a true/false value.
	KindBoolean
	// KindText holds an enum label.
	KindText
)

// Value is one typed fact value. The zero Value represents an unresolved
// variable and coerces to 0, false, or "" depending on context.
type Value struct {
	kind    ValueKind
	number  float64
	boolean bool
	text    string
}

// Number creates a numeric value.
func Number(v float64) Value {
	return Value{kind: KindNumber, number: v}
}

// Boolean creates a true/false value.
func Boolean(v bool) Value {
	return Value{kind: KindBoolean, boolean: v}
}

// Text creates an enum label value.
func Text(v string) Value {
	return Value{kind: KindText, text: v}
}

// Kind returns the runtime type of the value.
func (v Value) Kind() ValueKind {
	return v.kind
}

// AsNumber coerces the value to a float64. Unresolved values coerce to 0 and
// booleans to 0/1.
func (v Value) AsNumber() float64 {
	switch v.kind {
	case KindNumber:
		return v.number
	case KindBoolean:
		if v.boolean {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// AsBoolean coerces the value to a bool. Unresolved values coerce to false.
func (v Value) AsBoolean() bool {
	switch v.kind {
	case KindBoolean:
		return v.boolean
	case KindNumber:
		return v.number != 0
	default:
		return false
	}
}

// AsText coerces the value to its label form.
func (v Value) AsText() string {
	if v.kind == KindText {
		return v.text
	}
	return ""
}

// String renders the value for audit traces.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	case KindText:
		return v.text
	default:
		return "0"
	}
}

// Facts is one fact set keyed by variable key. Lookups of absent keys return
// the zero Value so a dangling reference never aborts evaluation.
type Facts map[string]Value

// Lookup returns the value for a key, or the zero Value when absent.
func (f Facts) Lookup(key string) Value {
	if f == nil {
		return Value{}
	}
	return f[key]
}

// Trace renders "key=value" for audit reasons.
func Trace(key string, v Value) string {
	return fmt.Sprintf("%s=%s", key, v.String())
}
