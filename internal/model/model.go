// Package model fits the two regression families used by the reports:
// ordinary least squares and logistic regression.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

// Family selects the error distribution and link.
type Family int

const (
	Gaussian Family = iota
	Binomial
)

func (f Family) String() string {
	switch f {
	case Gaussian:
		return "gaussian"
	case Binomial:
		return "binomial"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// ParseFamily accepts the family names plus the common aliases ols, linear, logistic and logit.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gaussian", "ols", "linear":
		return Gaussian, nil
	case "binomial", "logistic", "logit":
		return Binomial, nil
	}
	return 0, fmt.Errorf("unknown model family %q", s)
}

var (
	ErrTooFewRows   = errors.New("too few complete rows")
	ErrSingular     = errors.New("design matrix is singular")
	ErrNotConverged = errors.New("fit did not converge")
)

// Intercept is the name of the constant term.
const Intercept = "(Intercept)"

// Term is one fitted coefficient.
type Term struct {
	Name      string
	Estimate  float64
	StdErr    float64
	Statistic float64 // t for Gaussian, z for Binomial
	PValue    float64
}

// Result is a fitted model. Fields that do not apply to the family are zero.
type Result struct {
	Family     Family
	Target     string
	Predictors []string
	Terms      []Term

	N          int // rows used
	Dropped    int // rows removed by complete-case filtering
	DFResidual int

	// Gaussian
	RSquared float64
	Sigma    float64

	Deviance     float64
	NullDeviance float64
	AIC          float64
	Iterations   int
}

// Formula renders the model as "target ~ a + b".
func (r *Result) Formula() string {
	return r.Target + " ~ " + strings.Join(r.Predictors, " + ")
}

// Term looks up a coefficient by name.
func (r *Result) Term(name string) (Term, bool) {
	for _, t := range r.Terms {
		if t.Name == name {
			return t, true
		}
	}
	return Term{}, false
}

// Fit regresses target on predictors over the complete cases of t.
// String predictors are treatment coded against their lexically first
// level; dummy terms are named predictor+level. Bool columns enter as 0/1.
func Fit(t *table.Table, target string, predictors []string, family Family) (*Result, error) {
	if len(predictors) == 0 {
		return nil, fmt.Errorf("fit %s: no predictors", target)
	}
	used := append([]string{target}, predictors...)
	cc, err := t.CompleteCases(used...)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", target, err)
	}
	d, err := buildDesign(cc, target, predictors, family)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", target, err)
	}
	n, p := len(d.y), len(d.names)
	if n <= p {
		return nil, fmt.Errorf("fit %s: %w: %d rows for %d terms", target, ErrTooFewRows, n, p)
	}
	res := &Result{
		Family:     family,
		Target:     target,
		Predictors: append([]string(nil), predictors...),
		N:          n,
		Dropped:    t.Nrow() - n,
		DFResidual: n - p,
	}
	switch family {
	case Gaussian:
		err = fitOLS(d, res)
	case Binomial:
		err = fitLogit(d, res)
	default:
		err = fmt.Errorf("unsupported family %s", family)
	}
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", res.Formula(), err)
	}
	return res, nil
}

type design struct {
	x     *mat.Dense
	y     []float64
	names []string
}

func buildDesign(t *table.Table, target string, predictors []string, family Family) (*design, error) {
	n := t.Nrow()
	y, err := response(t, target, family)
	if err != nil {
		return nil, err
	}
	names := []string{Intercept}
	cols := [][]float64{ones(n)}
	for _, p := range predictors {
		c, err := t.Col(p)
		if err != nil {
			return nil, err
		}
		vals, _ := t.Values(p)
		switch c.Kind {
		case table.KindInt, table.KindFloat, table.KindBool:
			col := make([]float64, n)
			for i, v := range vals {
				col[i], _ = v.Float()
			}
			names = append(names, p)
			cols = append(cols, col)
		case table.KindString:
			levels := levelsOf(vals)
			for _, lvl := range levels[min(1, len(levels)):] {
				col := make([]float64, n)
				for i, v := range vals {
					if v.Str() == lvl {
						col[i] = 1
					}
				}
				names = append(names, p+lvl)
				cols = append(cols, col)
			}
		default:
			return nil, fmt.Errorf("predictor %q: %s columns are not supported", p, c.Kind)
		}
	}
	d := &design{y: y, names: names}
	if n > 0 {
		d.x = mat.NewDense(n, len(cols), nil)
		for j, col := range cols {
			d.x.SetCol(j, col)
		}
	}
	return d, nil
}

func response(t *table.Table, target string, family Family) ([]float64, error) {
	c, err := t.Col(target)
	if err != nil {
		return nil, err
	}
	vals, _ := t.Values(target)
	y := make([]float64, len(vals))
	switch c.Kind {
	case table.KindInt, table.KindFloat, table.KindBool:
	default:
		return nil, fmt.Errorf("target %q: %s columns are not supported", target, c.Kind)
	}
	for i, v := range vals {
		y[i], _ = v.Float()
		if family == Binomial && y[i] != 0 && y[i] != 1 {
			return nil, fmt.Errorf("target %q: binomial response must be 0/1, got %v at row %d", target, y[i], i)
		}
	}
	return y, nil
}

func levelsOf(vals []table.Value) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range vals {
		s := v.Str()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// invert returns the inverse of a, mapping any failure to ErrSingular.
func invert(a mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return &inv, nil
}

func stdErrs(cov *mat.Dense, scale float64) []float64 {
	p, _ := cov.Dims()
	out := make([]float64, p)
	for j := 0; j < p; j++ {
		out[j] = math.Sqrt(scale * cov.At(j, j))
	}
	return out
}
