package table

import (
	"fmt"
	"sort"
)

// Column describes one named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Table is an immutable ordered sequence of rows sharing one schema.
// Every operation returns a new Table and leaves the receiver untouched.
type Table struct {
	cols  []Column
	index map[string]int
	rows  [][]Value
}

// New validates the schema and rows and returns a Table owning copies of both.
func New(cols []Column, rows [][]Value) (*Table, error) {
	t, err := newSchema(cols)
	if err != nil {
		return nil, err
	}
	t.rows = make([][]Value, len(rows))
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(r), len(cols))
		}
		for j, v := range r {
			if err := checkKind(cols[j], v); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
		t.rows[i] = append([]Value(nil), r...)
	}
	return t, nil
}

// MustNew is New that panics on error. Intended for fixtures.
func MustNew(cols []Column, rows [][]Value) *Table {
	t, err := New(cols, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// FromStrings builds an all-string table. Cells equal to one of nullMarkers become null.
func FromStrings(header []string, records [][]string, nullMarkers []string) (*Table, error) {
	cols := make([]Column, len(header))
	for i, h := range header {
		cols[i] = Column{Name: h, Kind: KindString}
	}
	t, err := newSchema(cols)
	if err != nil {
		return nil, err
	}
	nulls := make(map[string]bool, len(nullMarkers))
	for _, m := range nullMarkers {
		nulls[m] = true
	}
	t.rows = make([][]Value, len(records))
	for i, rec := range records {
		if len(rec) > len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i, len(rec), len(header))
		}
		row := make([]Value, len(header))
		for j := range header {
			if j >= len(rec) || nulls[rec[j]] {
				continue
			}
			row[j] = StringValue(rec[j])
		}
		t.rows[i] = row
	}
	return t, nil
}

func newSchema(cols []Column) (*Table, error) {
	t := &Table{cols: append([]Column(nil), cols...), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		t.index[c.Name] = i
	}
	return t, nil
}

// derive returns a table sharing the schema of t with the given rows.
// Rows are not copied; callers hand over ownership.
func (t *Table) derive(rows [][]Value) *Table {
	return &Table{cols: t.cols, index: t.index, rows: rows}
}

func (t *Table) Nrow() int { return len(t.rows) }
func (t *Table) Ncol() int { return len(t.cols) }

// Columns returns a copy of the schema.
func (t *Table) Columns() []Column { return append([]Column(nil), t.cols...) }

func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Col returns the schema entry for name.
func (t *Table) Col(name string) (Column, error) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, unknownColumn(name)
	}
	return t.cols[i], nil
}

func (t *Table) indexes(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		j, ok := t.index[n]
		if !ok {
			return nil, unknownColumn(n)
		}
		out[i] = j
	}
	return out, nil
}

// At returns the value at row i in column name. It panics on an unknown
// column or an out-of-range row, like slice indexing.
func (t *Table) At(i int, name string) Value {
	j, ok := t.index[name]
	if !ok {
		panic(unknownColumn(name))
	}
	return t.rows[i][j]
}

// Values returns a copy of one column.
func (t *Table) Values(name string) ([]Value, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, unknownColumn(name)
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Row returns row i as a Record.
func (t *Table) Row(i int) Record { return Record{t: t, i: i} }

// Record is a read-only view of one row.
type Record struct {
	t *Table
	i int
}

// Index is the zero-based row number within its table.
func (r Record) Index() int { return r.i }

// Get returns the value in column name, or null for an unknown column.
func (r Record) Get(name string) Value {
	j, ok := r.t.index[name]
	if !ok {
		return Null()
	}
	return r.t.rows[r.i][j]
}

// Map returns the record as a column-name to value mapping.
func (r Record) Map() map[string]Value {
	m := make(map[string]Value, len(r.t.cols))
	for j, c := range r.t.cols {
		m[c.Name] = r.t.rows[r.i][j]
	}
	return m
}

// Select keeps the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx, err := t.indexes(names)
	if err != nil {
		return nil, err
	}
	cols := make([]Column, len(idx))
	for i, j := range idx {
		cols[i] = t.cols[j]
	}
	out, err := newSchema(cols)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]Value, len(t.rows))
	for i, r := range t.rows {
		row := make([]Value, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows[i] = row
	}
	return out, nil
}

// Drop removes the named columns.
func (t *Table) Drop(names ...string) (*Table, error) {
	if _, err := t.indexes(names); err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	keep := make([]string, 0, len(t.cols))
	for _, c := range t.cols {
		if !skip[c.Name] {
			keep = append(keep, c.Name)
		}
	}
	return t.Select(keep...)
}

// Rename renames columns by old -> new mapping.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := t.Columns()
	for old, name := range mapping {
		j, ok := t.index[old]
		if !ok {
			return nil, unknownColumn(old)
		}
		cols[j].Name = name
	}
	out, err := newSchema(cols)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows
	return out, nil
}

// WithColumn appends a column, or replaces it when the name already exists.
func (t *Table) WithColumn(col Column, vals []Value) (*Table, error) {
	if len(vals) != len(t.rows) {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", col.Name, len(vals), len(t.rows))
	}
	for i, v := range vals {
		if err := checkKind(col, v); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	cols := t.Columns()
	j, replace := t.index[col.Name]
	if replace {
		cols[j] = col
	} else {
		j = len(cols)
		cols = append(cols, col)
	}
	out, err := newSchema(cols)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]Value, len(t.rows))
	for i, r := range t.rows {
		row := make([]Value, len(cols))
		copy(row, r)
		row[j] = vals[i]
		out.rows[i] = row
	}
	return out, nil
}

// Mutate computes a new column row by row. An error aborts and is returned as is.
func (t *Table) Mutate(col Column, fn func(Record) (Value, error)) (*Table, error) {
	vals := make([]Value, len(t.rows))
	for i := range t.rows {
		v, err := fn(t.Row(i))
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return t.WithColumn(col, vals)
}

// Cast converts a string column to kind using parse. Nulls stay null; parse
// failures are returned as *ParseError identifying the row.
func (t *Table) Cast(name string, kind Kind, parse func(string) (Value, error)) (*Table, error) {
	c, err := t.Col(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != KindString {
		return nil, fmt.Errorf("cast %q: column is %s, want string", name, c.Kind)
	}
	j := t.index[name]
	vals := make([]Value, len(t.rows))
	for i, r := range t.rows {
		if r[j].IsNull() {
			continue
		}
		v, err := parse(r[j].s)
		if err != nil {
			return nil, &ParseError{Column: name, Row: i, Value: r[j].s, Err: err}
		}
		vals[i] = v
	}
	return t.WithColumn(Column{Name: name, Kind: kind}, vals)
}

// Filter keeps rows for which keep returns true.
func (t *Table) Filter(keep func(Record) bool) *Table {
	rows := make([][]Value, 0, len(t.rows))
	for i, r := range t.rows {
		if keep(t.Row(i)) {
			rows = append(rows, r)
		}
	}
	return t.derive(rows)
}

// CompleteCases drops rows holding a null in any of the named columns.
func (t *Table) CompleteCases(names ...string) (*Table, error) {
	idx, err := t.indexes(names)
	if err != nil {
		return nil, err
	}
	rows := make([][]Value, 0, len(t.rows))
	for _, r := range t.rows {
		ok := true
		for _, j := range idx {
			if r[j].IsNull() {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, r)
		}
	}
	return t.derive(rows), nil
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= len(t.rows) {
		return t.derive(t.rows)
	}
	return t.derive(t.rows[:n])
}

// SortKey orders by one column.
type SortKey struct {
	Name string
	Desc bool
}

func Asc(name string) SortKey  { return SortKey{Name: name} }
func Desc(name string) SortKey { return SortKey{Name: name, Desc: true} }

// Sort orders rows by the keys. The sort is stable; nulls go last in either direction.
func (t *Table) Sort(keys ...SortKey) (*Table, error) {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Name
	}
	idx, err := t.indexes(names)
	if err != nil {
		return nil, err
	}
	rows := append([][]Value(nil), t.rows...)
	sort.SliceStable(rows, func(a, b int) bool {
		for k, j := range idx {
			va, vb := rows[a][j], rows[b][j]
			c := Compare(va, vb)
			if c == 0 {
				continue
			}
			if keys[k].Desc && !va.IsNull() && !vb.IsNull() {
				c = -c
			}
			return c < 0
		}
		return false
	})
	return t.derive(rows), nil
}

// Concat stacks tables with identical schemas.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("concat: no tables")
	}
	first := tables[0]
	var rows [][]Value
	for n, t := range tables {
		if len(t.cols) != len(first.cols) {
			return nil, fmt.Errorf("concat: table %d has %d columns, want %d", n, len(t.cols), len(first.cols))
		}
		for j, c := range t.cols {
			if c != first.cols[j] {
				return nil, fmt.Errorf("concat: table %d column %d is %s %s, want %s %s", n, j, c.Name, c.Kind, first.cols[j].Name, first.cols[j].Kind)
			}
		}
		rows = append(rows, t.rows...)
	}
	return first.derive(rows), nil
}

// CheckUnique returns a *DuplicateKeyError for the first repeated key tuple.
func (t *Table) CheckUnique(names ...string) error {
	idx, err := t.indexes(names)
	if err != nil {
		return err
	}
	seen := make(map[string]int, len(t.rows))
	for i, r := range t.rows {
		key := pick(r, idx)
		k := keyOf(key)
		if first, dup := seen[k]; dup {
			return &DuplicateKeyError{Columns: append([]string(nil), names...), Key: key, Rows: [2]int{first, i}}
		}
		seen[k] = i
	}
	return nil
}

func pick(r []Value, idx []int) []Value {
	out := make([]Value, len(idx))
	for k, j := range idx {
		out[k] = r[j]
	}
	return out
}
