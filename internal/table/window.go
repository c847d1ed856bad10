package table

import "fmt"

// Diff appends out[i] = col[i] - col[i-1] in the current row order, with the
// value before the first row taken as 0. A null on either side yields null.
// Negative differences are kept.
func (t *Table) Diff(col, out string) (*Table, error) {
	c, err := t.Col(col)
	if err != nil {
		return nil, err
	}
	if c.Kind != KindInt && c.Kind != KindFloat {
		return nil, fmt.Errorf("diff %q: column is %s", col, c.Kind)
	}
	j := t.index[col]
	vals := make([]Value, len(t.rows))
	prev := zeroOf(c.Kind)
	for i, r := range t.rows {
		cur := r[j]
		switch {
		case cur.IsNull() || prev.IsNull():
			vals[i] = Null()
		case c.Kind == KindInt:
			vals[i] = IntValue(cur.i - prev.i)
		default:
			vals[i] = FloatValue(cur.f - prev.f)
		}
		prev = cur
	}
	return t.WithColumn(Column{Name: out, Kind: c.Kind}, vals)
}

func zeroOf(k Kind) Value {
	if k == KindFloat {
		return FloatValue(0)
	}
	return IntValue(0)
}

// Ratio appends out = num / den as a float. The result is null when either
// side is null or den is not strictly positive.
func (t *Table) Ratio(num, den, out string) (*Table, error) {
	idx, err := t.indexes([]string{num, den})
	if err != nil {
		return nil, err
	}
	vals := make([]Value, len(t.rows))
	for i, r := range t.rows {
		n, okN := r[idx[0]].Float()
		d, okD := r[idx[1]].Float()
		if !okN || !okD || d <= 0 {
			continue
		}
		vals[i] = FloatValue(n / d)
	}
	return t.WithColumn(Column{Name: out, Kind: KindFloat}, vals)
}

// Share appends out = 100 * num / den for percent-style aggregates. A null
// denominator is a *DenominatorError; a zero denominator yields null.
func (t *Table) Share(num, den, out string) (*Table, error) {
	idx, err := t.indexes([]string{num, den})
	if err != nil {
		return nil, err
	}
	vals := make([]Value, len(t.rows))
	for i, r := range t.rows {
		d, ok := r[idx[1]].Float()
		if !ok {
			return nil, &DenominatorError{Column: den, Row: i}
		}
		n, ok := r[idx[0]].Float()
		if !ok || d == 0 {
			continue
		}
		vals[i] = FloatValue(100 * n / d)
	}
	return t.WithColumn(Column{Name: out, Kind: KindFloat}, vals)
}

// RollingMean appends the trailing mean of col over window rows in the
// current order. Rows before a full window, or with a null inside the
// window, are null.
func (t *Table) RollingMean(col, out string, window int) (*Table, error) {
	if window <= 0 {
		return nil, fmt.Errorf("rolling mean: window must be positive, got %d", window)
	}
	j, ok := t.index[col]
	if !ok {
		return nil, unknownColumn(col)
	}
	vals := make([]Value, len(t.rows))
	for i := window - 1; i < len(t.rows); i++ {
		var s float64
		full := true
		for k := i - window + 1; k <= i; k++ {
			f, ok := t.rows[k][j].Float()
			if !ok {
				full = false
				break
			}
			s += f
		}
		if full {
			vals[i] = FloatValue(s / float64(window))
		}
	}
	return t.WithColumn(Column{Name: out, Kind: KindFloat}, vals)
}
