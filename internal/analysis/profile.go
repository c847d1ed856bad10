package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

// Options controls profiling.
type Options struct {
	// TopValues is how many frequent values to keep for categorical columns.
	TopValues int
	// MaxCategories is the unique-value ceiling for treating a text column as categorical.
	MaxCategories int
	// Samples is how many example texts to keep for free-text columns.
	Samples int
}

// DefaultOptions returns reasonable defaults for profiling.
func DefaultOptions() Options {
	return Options{TopValues: 5, MaxCategories: 50, Samples: 3}
}

// Profile is a markdown-friendly data-quality summary of one table.
type Profile struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Warnings []string
}

// ColumnSummary captures the inferred kind and statistics of one column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|boolean|categorical|text|empty
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// MissingPct is the share of null cells in percent.
func (c ColumnSummary) MissingPct() float64 {
	total := c.NonNull + c.Missing
	if total == 0 {
		return 0
	}
	return float64(c.Missing) * 100 / float64(total)
}

var dateLayouts = []string{"1/2/2006", "1/2/06", "2006-01-02", "15:04:05"}

// ProfileTable summarises every column of t. String columns are classified
// by what their non-null cells parse as.
func ProfileTable(name string, t *table.Table, opt Options) *Profile {
	if opt.TopValues <= 0 {
		opt.TopValues = DefaultOptions().TopValues
	}
	if opt.MaxCategories <= 0 {
		opt.MaxCategories = DefaultOptions().MaxCategories
	}
	p := &Profile{Name: name, Rows: t.Nrow()}
	for _, c := range t.Columns() {
		vals, _ := t.Values(c.Name)
		s := summarize(c, vals, opt)
		if s.NonNull == 0 && s.Missing > 0 {
			p.Warnings = append(p.Warnings, fmt.Sprintf("column %s is entirely missing", c.Name))
		}
		p.Cols = append(p.Cols, s)
	}
	return p
}

type acc struct {
	n              int
	mean, m2       float64
	min, max       float64
	numeric, dates int
	counts         map[string]int
	examples       []string
}

func (a *acc) add(x float64) {
	a.n++
	if a.n == 1 {
		a.min, a.max = x, x
	}
	a.min = math.Min(a.min, x)
	a.max = math.Max(a.max, x)
	d := x - a.mean
	a.mean += d / float64(a.n)
	a.m2 += d * (x - a.mean)
}

func summarize(c table.Column, vals []table.Value, opt Options) ColumnSummary {
	s := ColumnSummary{Name: c.Name}
	a := &acc{counts: map[string]int{}}
	for _, v := range vals {
		if v.IsNull() {
			s.Missing++
			continue
		}
		s.NonNull++
		key := v.String()
		a.counts[key]++
		switch c.Kind {
		case table.KindInt, table.KindFloat:
			f, _ := v.Float()
			a.add(f)
		case table.KindString:
			str := strings.TrimSpace(v.Str())
			if f, err := strconv.ParseFloat(str, 64); err == nil {
				a.numeric++
				a.add(f)
			} else if isDate(str) {
				a.dates++
			} else if len(a.examples) < opt.Samples {
				a.examples = append(a.examples, str)
			}
		}
	}
	s.Unique = len(a.counts)
	switch {
	case s.NonNull == 0:
		s.Kind = "empty"
	case c.Kind == table.KindInt || c.Kind == table.KindFloat || (c.Kind == table.KindString && a.numeric == s.NonNull):
		s.Kind = "numeric"
		s.Min, s.Max, s.Mean = a.min, a.max, a.mean
		if a.n > 1 {
			s.Std = math.Sqrt(a.m2 / float64(a.n-1))
		}
	case c.Kind == table.KindDate || (c.Kind == table.KindString && a.dates == s.NonNull):
		s.Kind = "datetime"
	case c.Kind == table.KindBool:
		s.Kind = "boolean"
		s.TopValues = topValues(a.counts, opt.TopValues)
	case s.Unique <= opt.MaxCategories:
		s.Kind = "categorical"
		s.TopValues = topValues(a.counts, opt.TopValues)
	default:
		s.Kind = "text"
		s.ExampleTexts = a.examples
	}
	return s
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func topValues(counts map[string]int, k int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(counts))
	for v, n := range counts {
		tops = append(tops, CategoryCount{Value: v, Count: n})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > k {
		tops = tops[:k]
	}
	return tops
}

// Markdown renders the profile as a compact schema listing.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(p.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Cols {
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, c.MissingPct()))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		case "categorical", "boolean":
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString("; e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(p.Warnings) > 0 {
		b.WriteString("\n[WARNINGS]\n")
		for _, w := range p.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
