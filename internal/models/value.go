package models

import (
	"fmt"
	"math"
	"strconv"
)

// ValueKind enumerates the types a detector output can take.
type ValueKind int

const (
	KindFloat ValueKind = iota
	KindInt
	KindString
	KindBool
)

// Value is the tagged union returned by detector output lookups. Degenerate
// or not-yet-populated outputs carry well-defined empty sentinels (NaN for
// floats, -1 for ints, "none" for strings, false for bools) rather than
// erroring.
type Value struct {
	Kind ValueKind
	f    float64
	i    int
	s    string
	b    bool
}

// FloatValue wraps a float64.
func FloatValue(v float64) Value { return Value{Kind: KindFloat, f: v} }

// IntValue wraps an int.
func IntValue(v int) Value { return Value{Kind: KindInt, i: v} }

// StringValue wraps a string.
func StringValue(v string) Value { return Value{Kind: KindString, s: v} }

// BoolValue wraps a bool.
func BoolValue(v bool) Value { return Value{Kind: KindBool, b: v} }

// EmptyFloat is the float sentinel (NaN).
func EmptyFloat() Value { return FloatValue(math.NaN()) }

// EmptyInt is the int sentinel (-1).
func EmptyInt() Value { return IntValue(-1) }

// EmptyString is the string sentinel ("none").
func EmptyString() Value { return StringValue("none") }

// EmptyBool is the bool sentinel (false).
func EmptyBool() Value { return BoolValue(false) }

// Float returns the float payload; NaN when the value is not a float.
func (v Value) Float() float64 {
	if v.Kind != KindFloat {
		return math.NaN()
	}
	return v.f
}

// Int returns the int payload; -1 when the value is not an int.
func (v Value) Int() int {
	if v.Kind != KindInt {
		return -1
	}
	return v.i
}

// Str returns the string payload; "none" when the value is not a string.
func (v Value) Str() string {
	if v.Kind != KindString {
		return "none"
	}
	return v.s
}

// Bool returns the bool payload; false when the value is not a bool.
func (v Value) Bool() bool {
	return v.Kind == KindBool && v.b
}

// IsEmpty reports whether the value carries its kind's empty sentinel.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindFloat:
		return math.IsNaN(v.f)
	case KindInt:
		return v.i == -1
	case KindString:
		return v.s == "none"
	case KindBool:
		return !v.b
	}
	return true
}

// String renders the value for display and logging.
func (v Value) String() string {
	switch v.Kind {
	case KindFloat:
		if math.IsNaN(v.f) {
			return "NaN"
		}
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindInt:
		return strconv.Itoa(v.i)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return fmt.Sprintf("unknown(%d)", int(v.Kind))
}
