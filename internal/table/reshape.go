package table

import (
	"fmt"
)

// MeltOptions configures a wide-to-long reshape.
type MeltOptions struct {
	// IDs are carried through on every emitted row. When empty, every
	// column not selected by Match is an id column.
	IDs []string
	// Match selects the value columns by name.
	Match func(name string) bool
	// KeyName and ValueName name the emitted key and value columns.
	KeyName   string
	ValueName string
	KeyKind   Kind
	ValueKind Kind
	// ParseKey turns a value-column name into the key value.
	ParseKey func(name string) (Value, error)
	// ParseValue converts each cell. Nil keeps the cell unchanged.
	// It is not called for nulls.
	ParseValue func(Value) (Value, error)
}

// Melt reshapes a wide table into long form: one output row per input row
// and value column, ordered row-major.
func (t *Table) Melt(opt MeltOptions) (*Table, error) {
	if opt.Match == nil || opt.ParseKey == nil {
		return nil, fmt.Errorf("melt: Match and ParseKey are required")
	}
	var valueIdx []int
	var keys []Value
	for j, c := range t.cols {
		if !opt.Match(c.Name) {
			continue
		}
		k, err := opt.ParseKey(c.Name)
		if err != nil {
			return nil, &ParseError{Column: c.Name, Row: -1, Value: c.Name, Err: err}
		}
		if err := checkKind(Column{Name: opt.KeyName, Kind: opt.KeyKind}, k); err != nil {
			return nil, fmt.Errorf("melt key: %w", err)
		}
		valueIdx = append(valueIdx, j)
		keys = append(keys, k)
	}
	ids := opt.IDs
	if len(ids) == 0 {
		for _, c := range t.cols {
			if !opt.Match(c.Name) {
				ids = append(ids, c.Name)
			}
		}
	}
	idIdx, err := t.indexes(ids)
	if err != nil {
		return nil, err
	}
	cols := make([]Column, 0, len(idIdx)+2)
	for _, j := range idIdx {
		cols = append(cols, t.cols[j])
	}
	cols = append(cols, Column{Name: opt.KeyName, Kind: opt.KeyKind}, Column{Name: opt.ValueName, Kind: opt.ValueKind})
	out, err := newSchema(cols)
	if err != nil {
		return nil, err
	}
	valueCol := cols[len(cols)-1]
	out.rows = make([][]Value, 0, len(t.rows)*len(valueIdx))
	for i, r := range t.rows {
		idVals := pick(r, idIdx)
		for k, j := range valueIdx {
			v := r[j]
			if !v.IsNull() && opt.ParseValue != nil {
				pv, err := opt.ParseValue(v)
				if err != nil {
					return nil, &ParseError{Column: t.cols[j].Name, Row: i, Value: v.String(), Err: err}
				}
				v = pv
			}
			if err := checkKind(valueCol, v); err != nil {
				return nil, fmt.Errorf("melt row %d: %w", i, err)
			}
			row := make([]Value, 0, len(cols))
			row = append(row, idVals...)
			row = append(row, keys[k], v)
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// PivotOptions configures a long-to-wide reshape.
type PivotOptions struct {
	IDs   []string
	Key   string
	Value string
	// ColumnName names the emitted column for a key value. Nil uses Value.String.
	ColumnName func(Value) string
}

// Pivot reshapes a long table into wide form, the inverse of Melt. Output
// rows follow the first appearance of each id tuple, output columns the
// first appearance of each key. Missing combinations are null; a repeated
// (ids, key) pair is a *DuplicateKeyError.
func (t *Table) Pivot(opt PivotOptions) (*Table, error) {
	idIdx, err := t.indexes(opt.IDs)
	if err != nil {
		return nil, err
	}
	kv, err := t.indexes([]string{opt.Key, opt.Value})
	if err != nil {
		return nil, err
	}
	name := opt.ColumnName
	if name == nil {
		name = Value.String
	}
	type wideRow struct {
		ids  []Value
		vals map[string]Value
		src  map[string]int
	}
	var (
		order   []*wideRow
		byID    = map[string]*wideRow{}
		keyCols []string
		seenKey = map[string]bool{}
	)
	for i, r := range t.rows {
		ids := pick(r, idIdx)
		idKey := keyOf(ids)
		wr, ok := byID[idKey]
		if !ok {
			wr = &wideRow{ids: ids, vals: map[string]Value{}, src: map[string]int{}}
			byID[idKey] = wr
			order = append(order, wr)
		}
		col := name(r[kv[0]])
		if first, dup := wr.src[col]; dup {
			return nil, &DuplicateKeyError{
				Columns: append(append([]string(nil), opt.IDs...), opt.Key),
				Key:     append(append([]Value(nil), ids...), r[kv[0]]),
				Rows:    [2]int{first, i},
			}
		}
		wr.src[col] = i
		wr.vals[col] = r[kv[1]]
		if !seenKey[col] {
			seenKey[col] = true
			keyCols = append(keyCols, col)
		}
	}
	cols := make([]Column, 0, len(idIdx)+len(keyCols))
	for _, j := range idIdx {
		cols = append(cols, t.cols[j])
	}
	valueKind := t.cols[kv[1]].Kind
	for _, k := range keyCols {
		cols = append(cols, Column{Name: k, Kind: valueKind})
	}
	out, err := newSchema(cols)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]Value, len(order))
	for i, wr := range order {
		row := make([]Value, 0, len(cols))
		row = append(row, wr.ids...)
		for _, k := range keyCols {
			row = append(row, wr.vals[k])
		}
		out.rows[i] = row
	}
	return out, nil
}

// LeftJoin keeps every row of t exactly once, in order, and appends the
// non-key columns of right. Unmatched rows get nulls. Null keys match null
// keys. A right-side column whose name collides with a left column is
// suffixed with "_right". Duplicate keys on the right are a *DuplicateKeyError.
func (t *Table) LeftJoin(right *Table, keys ...string) (*Table, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("left join: no key columns")
	}
	lIdx, err := t.indexes(keys)
	if err != nil {
		return nil, fmt.Errorf("left join: left: %w", err)
	}
	rIdx, err := right.indexes(keys)
	if err != nil {
		return nil, fmt.Errorf("left join: right: %w", err)
	}
	isKey := make(map[int]bool, len(rIdx))
	for _, j := range rIdx {
		isKey[j] = true
	}
	cols := t.Columns()
	var extra []int
	for j, c := range right.cols {
		if isKey[j] {
			continue
		}
		if _, clash := t.index[c.Name]; clash {
			c.Name += "_right"
		}
		cols = append(cols, c)
		extra = append(extra, j)
	}
	out, err := newSchema(cols)
	if err != nil {
		return nil, fmt.Errorf("left join: %w", err)
	}
	lookup := make(map[string]int, len(right.rows))
	for i, r := range right.rows {
		k := keyOf(pick(r, rIdx))
		if first, dup := lookup[k]; dup {
			return nil, &DuplicateKeyError{Columns: append([]string(nil), keys...), Key: pick(r, rIdx), Rows: [2]int{first, i}}
		}
		lookup[k] = i
	}
	out.rows = make([][]Value, len(t.rows))
	for i, r := range t.rows {
		row := make([]Value, len(r), len(cols))
		copy(row, r)
		if m, ok := lookup[keyOf(pick(r, lIdx))]; ok {
			for _, j := range extra {
				row = append(row, right.rows[m][j])
			}
		} else {
			row = append(row, make([]Value, len(extra))...)
		}
		out.rows[i] = row
	}
	return out, nil
}
