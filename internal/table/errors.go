package table

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownColumn is returned when an operation names a column the table does not have.
var ErrUnknownColumn = errors.New("unknown column")

func unknownColumn(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// ParseError reports a value that must be numeric or date-like and is neither.
// Row is the zero-based data row, or -1 when the offending text is a column header.
type ParseError struct {
	Column string
	Row    int
	Value  string
	// Key optionally identifies the record (e.g. an incident key).
	Key string
	Err error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error")
	if e.Column != "" {
		fmt.Fprintf(&b, " in column %q", e.Column)
	}
	if e.Row >= 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " (key %s)", e.Key)
	}
	fmt.Fprintf(&b, ": value %q", e.Value)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// DuplicateKeyError reports a key tuple that appears more than once where it must be unique.
type DuplicateKeyError struct {
	Columns []string
	Key     []Value
	// Rows holds the first two row indexes carrying the key.
	Rows [2]int
}

func (e *DuplicateKeyError) Error() string {
	parts := make([]string, len(e.Key))
	for i, v := range e.Key {
		parts[i] = fmt.Sprintf("%s=%s", e.Columns[i], v)
	}
	return fmt.Sprintf("duplicate key (%s) at rows %d and %d", strings.Join(parts, ", "), e.Rows[0], e.Rows[1])
}

// DenominatorError reports a percent-style aggregate whose denominator is missing.
type DenominatorError struct {
	Column string
	Row    int
}

func (e *DenominatorError) Error() string {
	return fmt.Sprintf("null denominator in column %q at row %d", e.Column, e.Row)
}
