// G-code argument values
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"math"
	"strconv"
)

// Kind identifies which member of a Value is set.
type Kind int

const (
	KindNone Kind = iota
	KindInt
	KindFloat
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "none"
	}
}

// Value is an argument value: an integer, a float, or raw text when the
// argument is not numeric. The zero Value has KindNone.
type Value struct {
	kind Kind
	i    int
	f    float64
	s    string
}

// IntValue returns an integer Value.
func IntValue(i int) Value { return Value{kind: KindInt, i: i} }

// FloatValue returns a floating-point Value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// TextValue returns a raw text Value.
func TextValue(s string) Value { return Value{kind: KindText, s: s} }

// Kind returns the kind of value held.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindNone }

// Int returns the integer and true for KindInt, otherwise 0 and false.
func (v Value) Int() (int, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float returns the numeric value of v. Integers widen; text and missing
// values read as 0, the way a failed numeric conversion does.
func (v Value) Float() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	default:
		return 0
	}
}

// IsNumeric reports whether v is an integer or a float.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// Text returns the raw text of a KindText value, or the formatted number.
func (v Value) Text() string {
	switch v.kind {
	case KindInt:
		return strconv.Itoa(v.i)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

func (v Value) String() string { return v.Text() }

// ParseValue interprets s as an integer if it parses cleanly as one, else as a
// finite float, else keeps it as text.
func ParseValue(s string) Value {
	if i, err := strconv.Atoi(s); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) && !isHexFloat(s) {
		return FloatValue(f)
	}
	return TextValue(s)
}

// isHexFloat rejects the 0x forms strconv accepts but G-code never uses.
func isHexFloat(s string) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
