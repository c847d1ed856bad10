package table

import (
	"fmt"
)

// Grouping partitions a table by the distinct values of its key columns.
// Groups are kept in order of first appearance; null keys form their own group.
type Grouping struct {
	t      *Table
	keys   []string
	keyIdx []int
	groups []group
}

type group struct {
	key  []Value
	rows []int
}

// GroupBy partitions t by the named key columns.
func (t *Table) GroupBy(keys ...string) (*Grouping, error) {
	idx, err := t.indexes(keys)
	if err != nil {
		return nil, err
	}
	g := &Grouping{t: t, keys: append([]string(nil), keys...), keyIdx: idx}
	pos := map[string]int{}
	for i, r := range t.rows {
		kv := pick(r, idx)
		k := keyOf(kv)
		p, ok := pos[k]
		if !ok {
			p = len(g.groups)
			pos[k] = p
			g.groups = append(g.groups, group{key: kv})
		}
		g.groups[p].rows = append(g.groups[p].rows, i)
	}
	return g, nil
}

// Len is the number of distinct key tuples.
func (g *Grouping) Len() int { return len(g.groups) }

// Op is an aggregate reduction.
type Op int

const (
	OpCount Op = iota
	OpSum
	OpMean
	OpMin
	OpMax
	// OpSumNonNull sums like OpSum but gives null for a group with no non-null values.
	OpSumNonNull
)

// Agg is one reduction: Op over Col, written to Out. Col is ignored for OpCount.
type Agg struct {
	Op  Op
	Col string
	Out string
}

func Count(out string) Agg     { return Agg{Op: OpCount, Out: out} }
func Sum(col, out string) Agg  { return Agg{Op: OpSum, Col: col, Out: out} }
func Mean(col, out string) Agg { return Agg{Op: OpMean, Col: col, Out: out} }
func Min(col, out string) Agg  { return Agg{Op: OpMin, Col: col, Out: out} }
func Max(col, out string) Agg  { return Agg{Op: OpMax, Col: col, Out: out} }

// SumNonNull is Sum, except that a group with no non-null values sums to null.
func SumNonNull(col, out string) Agg { return Agg{Op: OpSumNonNull, Col: col, Out: out} }

// Count returns the row count per group.
func (g *Grouping) Count(out string) *Table {
	t, err := g.Aggregate(Count(out))
	if err != nil {
		// Count touches no source column and cannot fail on a valid grouping.
		panic(err)
	}
	return t
}

// Sum is shorthand for Aggregate(Sum(col, out)).
func (g *Grouping) Sum(col, out string) (*Table, error) { return g.Aggregate(Sum(col, out)) }

// Aggregate produces one row per group: the key columns followed by one
// column per reduction. Nulls are ignored by every reduction except Count,
// which counts rows. Sum over ints and bools is an int; a group with no
// non-null values sums to zero (null under SumNonNull) and has a null mean,
// min and max.
func (g *Grouping) Aggregate(aggs ...Agg) (*Table, error) {
	cols := make([]Column, 0, len(g.keyIdx)+len(aggs))
	for _, j := range g.keyIdx {
		cols = append(cols, g.t.cols[j])
	}
	srcIdx := make([]int, len(aggs))
	for a, agg := range aggs {
		if agg.Op == OpCount {
			cols = append(cols, Column{Name: agg.Out, Kind: KindInt})
			continue
		}
		j, ok := g.t.index[agg.Col]
		if !ok {
			return nil, unknownColumn(agg.Col)
		}
		srcIdx[a] = j
		kind, err := aggKind(agg, g.t.cols[j])
		if err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: agg.Out, Kind: kind})
	}
	out, err := newSchema(cols)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]Value, len(g.groups))
	for n, grp := range g.groups {
		row := make([]Value, 0, len(cols))
		row = append(row, grp.key...)
		for a, agg := range aggs {
			row = append(row, reduce(agg.Op, cols[len(g.keyIdx)+a].Kind, g.t.rows, grp.rows, srcIdx[a]))
		}
		out.rows[n] = row
	}
	return out, nil
}

func aggKind(agg Agg, src Column) (Kind, error) {
	numeric := src.Kind == KindInt || src.Kind == KindFloat || src.Kind == KindBool
	switch agg.Op {
	case OpSum, OpSumNonNull:
		if !numeric {
			return 0, fmt.Errorf("sum %q: column is %s", src.Name, src.Kind)
		}
		if src.Kind == KindFloat {
			return KindFloat, nil
		}
		return KindInt, nil
	case OpMean:
		if !numeric {
			return 0, fmt.Errorf("mean %q: column is %s", src.Name, src.Kind)
		}
		return KindFloat, nil
	case OpMin, OpMax:
		return src.Kind, nil
	}
	return 0, fmt.Errorf("unsupported aggregate op %d", agg.Op)
}

func reduce(op Op, kind Kind, rows [][]Value, members []int, j int) Value {
	switch op {
	case OpCount:
		return IntValue(int64(len(members)))
	case OpSum, OpSumNonNull:
		var fs float64
		var is int64
		seen := false
		for _, i := range members {
			v := rows[i][j]
			if v.IsNull() {
				continue
			}
			seen = true
			if kind == KindFloat {
				f, _ := v.Float()
				fs += f
			} else {
				n, _ := v.Int()
				is += n
			}
		}
		switch {
		case !seen && op == OpSumNonNull:
			return Null()
		case kind == KindFloat:
			return FloatValue(fs)
		}
		return IntValue(is)
	case OpMean:
		var s float64
		var n int
		for _, i := range members {
			if f, ok := rows[i][j].Float(); ok {
				s += f
				n++
			}
		}
		if n == 0 {
			return Null()
		}
		return FloatValue(s / float64(n))
	case OpMin, OpMax:
		best := Null()
		for _, i := range members {
			v := rows[i][j]
			if v.IsNull() {
				continue
			}
			c := Compare(v, best)
			if best.IsNull() || (op == OpMin && c < 0) || (op == OpMax && c > 0) {
				best = v
			}
		}
		return best
	}
	return Null()
}

// Transform applies fn to each group as its own table and stacks the
// results in group order. All results must share one schema.
func (g *Grouping) Transform(fn func(*Table) (*Table, error)) (*Table, error) {
	if len(g.groups) == 0 {
		return fn(g.t.derive(nil))
	}
	parts := make([]*Table, len(g.groups))
	for n, grp := range g.groups {
		rows := make([][]Value, len(grp.rows))
		for k, i := range grp.rows {
			rows[k] = g.t.rows[i]
		}
		res, err := fn(g.t.derive(rows))
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", describeKey(g.keys, grp.key), err)
		}
		parts[n] = res
	}
	return Concat(parts...)
}

func describeKey(names []string, key []Value) string {
	s := ""
	for i, v := range key {
		if i > 0 {
			s += ", "
		}
		s += names[i] + "=" + v.String()
	}
	return s
}
