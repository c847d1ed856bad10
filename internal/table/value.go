package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the type of a column or a single Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindDate
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// DateLayout is the canonical rendering for date values.
const DateLayout = "2006-01-02"

// Value is a single cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
	b    bool
}

// Null returns the missing value.
func Null() Value { return Value{} }

func StringValue(s string) Value { return Value{kind: KindString, s: s} }
func IntValue(i int64) Value     { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func BoolValue(b bool) Value     { return Value{kind: KindBool, b: b} }

// DateValue truncates t to a calendar date in UTC.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the raw string of a string value, "" otherwise.
func (v Value) Str() string {
	if v.kind == KindString {
		return v.s
	}
	return ""
}

// Int returns the integer payload. Floats are truncated, bools map to 0/1.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		return int64(v.f), true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Float returns the numeric payload of int, float and bool values.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (v Value) Date() (time.Time, bool) {
	if v.kind == KindDate {
		return v.t, true
	}
	return time.Time{}, false
}

func (v Value) Bool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// String renders the value for display. Null renders as "NA".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDate:
		return v.t.Format(DateLayout)
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	default:
		return "NA"
	}
}

// key is a kind-tagged encoding used for hashing in joins and groupings.
// Null keys compare equal to each other and to nothing else.
func (v Value) key() string {
	switch v.kind {
	case KindNull:
		return "\x00"
	case KindString:
		return "s" + v.s
	case KindInt:
		return "i" + strconv.FormatInt(v.i, 10)
	case KindFloat:
		return "f" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDate:
		return "d" + v.t.Format(DateLayout)
	case KindBool:
		if v.b {
			return "bT"
		}
		return "bF"
	}
	return "?"
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool { return v.key() == o.key() }

// Compare orders values of the same kind; nulls sort after everything.
// Values of different non-null kinds are ordered by kind.
func Compare(a, b Value) int {
	if a.kind == KindNull || b.kind == KindNull {
		switch {
		case a.kind == b.kind:
			return 0
		case a.kind == KindNull:
			return 1
		default:
			return -1
		}
	}
	if af, ok := a.Float(); ok && a.kind != KindBool {
		if bf, ok := b.Float(); ok && b.kind != KindBool {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindDate:
		return a.t.Compare(b.t)
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		}
		return 1
	}
	return 0
}

func keyOf(vals []Value) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(v.key())
	}
	return b.String()
}

func checkKind(col Column, v Value) error {
	if v.kind == KindNull || v.kind == col.Kind {
		return nil
	}
	return fmt.Errorf("column %q: value of kind %s in %s column", col.Name, v.kind, col.Kind)
}
