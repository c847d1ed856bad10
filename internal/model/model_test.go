package model

import (
	"errors"
	"math"
	"testing"

	"github.com/KaramelBytes/tidyreport-cli/internal/table"
)

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.6f, want %.6f", name, got, want)
	}
}

func TestFitOLS(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2.1, 3.9, 6.2, 7.8, 10.1}
	rows := make([][]table.Value, 0, len(xs)+1)
	for i := range xs {
		rows = append(rows, []table.Value{table.FloatValue(xs[i]), table.FloatValue(ys[i])})
	}
	rows = append(rows, []table.Value{table.FloatValue(6), table.Null()})
	tbl := table.MustNew([]table.Column{{Name: "confirmed", Kind: table.KindFloat}, {Name: "deaths", Kind: table.KindFloat}}, rows)

	res, err := Fit(tbl, "deaths", []string{"confirmed"}, Gaussian)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if res.N != 5 || res.Dropped != 1 || res.DFResidual != 3 {
		t.Fatalf("n=%d dropped=%d df=%d", res.N, res.Dropped, res.DFResidual)
	}
	if res.Formula() != "deaths ~ confirmed" {
		t.Fatalf("formula=%q", res.Formula())
	}
	icpt, _ := res.Term(Intercept)
	slope, ok := res.Term("confirmed")
	if !ok {
		t.Fatalf("missing slope term")
	}
	approx(t, "intercept", icpt.Estimate, 0.05, 1e-9)
	approx(t, "slope", slope.Estimate, 1.99, 1e-9)
	approx(t, "se(slope)", slope.StdErr, 0.059722, 1e-5)
	approx(t, "R²", res.RSquared, 0.997305, 1e-5)
	approx(t, "RSS", res.Deviance, 0.107, 1e-9)
	if slope.PValue <= 0 || slope.PValue > 1e-3 {
		t.Fatalf("slope p-value %g out of range", slope.PValue)
	}
}

func TestFitOLSLargeMagnitudes(t *testing.T) {
	// Cumulative counts in the billions leave X'X too ill-conditioned to invert.
	xs := []float64{1e9, 2e9, 3e9, 4e9}
	noise := []float64{0.5, -1, 1, -0.5}
	rows := make([][]table.Value, len(xs))
	for i, x := range xs {
		rows[i] = []table.Value{table.FloatValue(x), table.FloatValue(3 + 0.5*x + noise[i])}
	}
	tbl := table.MustNew([]table.Column{{Name: "confirmed", Kind: table.KindFloat}, {Name: "deaths", Kind: table.KindFloat}}, rows)
	res, err := Fit(tbl, "deaths", []string{"confirmed"}, Gaussian)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	slope, _ := res.Term("confirmed")
	// least-squares slope is 0.5 + sum(dx*noise)/Sxx = 0.5 - 1e-10
	approx(t, "slope", slope.Estimate, 0.5-1e-10, 1e-6)
	if math.IsNaN(slope.StdErr) || slope.StdErr <= 0 {
		t.Fatalf("se(slope)=%g", slope.StdErr)
	}
	approx(t, "R²", res.RSquared, 1, 1e-9)
}

func TestFitLogistic(t *testing.T) {
	// x=0: 1 of 4 successes, x=1: 3 of 4.
	flags := []bool{true, false, false, false, true, true, true, false}
	rows := make([][]table.Value, len(flags))
	for i, f := range flags {
		rows[i] = []table.Value{table.IntValue(int64(i / 4)), table.BoolValue(f)}
	}
	tbl := table.MustNew([]table.Column{{Name: "x", Kind: table.KindInt}, {Name: "murder", Kind: table.KindBool}}, rows)

	res, err := Fit(tbl, "murder", []string{"x"}, Binomial)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	icpt, _ := res.Term(Intercept)
	slope, _ := res.Term("x")
	approx(t, "intercept", icpt.Estimate, -1.098612, 1e-5)
	approx(t, "se(intercept)", icpt.StdErr, 1.154701, 1e-4)
	approx(t, "slope", slope.Estimate, 2.197225, 1e-5)
	approx(t, "se(slope)", slope.StdErr, 1.632993, 1e-4)
	approx(t, "AIC", res.AIC, res.Deviance+4, 1e-12)
	if res.NullDeviance <= res.Deviance {
		t.Fatalf("null deviance %g should exceed deviance %g", res.NullDeviance, res.Deviance)
	}
	if res.Iterations == 0 || res.Iterations > maxIterations {
		t.Fatalf("iterations=%d", res.Iterations)
	}
}

func TestFitTreatmentCoding(t *testing.T) {
	boros := []string{"QUEENS", "BRONX", "BROOKLYN", "BRONX", "QUEENS", "BROOKLYN", "BRONX", "QUEENS"}
	hours := []int64{1, 2, 3, 4, 5, 6, 7, 8}
	flags := []bool{true, false, true, true, false, false, false, true}
	rows := make([][]table.Value, len(boros))
	for i := range boros {
		rows[i] = []table.Value{table.StringValue(boros[i]), table.IntValue(hours[i]), table.BoolValue(flags[i])}
	}
	tbl := table.MustNew([]table.Column{
		{Name: "BORO", Kind: table.KindString},
		{Name: "INC_TIME", Kind: table.KindInt},
		{Name: "MURDER_FLAG", Kind: table.KindBool},
	}, rows)
	res, err := Fit(tbl, "MURDER_FLAG", []string{"INC_TIME", "BORO"}, Binomial)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	var names []string
	for _, term := range res.Terms {
		names = append(names, term.Name)
	}
	want := []string{Intercept, "INC_TIME", "BOROBROOKLYN", "BOROQUEENS"}
	if len(names) != len(want) {
		t.Fatalf("terms=%v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("terms=%v, want %v", names, want)
		}
	}
}

func TestFitErrors(t *testing.T) {
	cols := []table.Column{{Name: "x", Kind: table.KindFloat}, {Name: "y", Kind: table.KindFloat}}
	two := table.MustNew(cols, [][]table.Value{
		{table.FloatValue(1), table.FloatValue(1)},
		{table.FloatValue(2), table.FloatValue(3)},
	})
	if _, err := Fit(two, "y", []string{"x"}, Gaussian); !errors.Is(err, ErrTooFewRows) {
		t.Fatalf("expected ErrTooFewRows, got %v", err)
	}
	constant := table.MustNew(cols, [][]table.Value{
		{table.FloatValue(1), table.FloatValue(1)},
		{table.FloatValue(1), table.FloatValue(2)},
		{table.FloatValue(1), table.FloatValue(4)},
	})
	if _, err := Fit(constant, "y", []string{"x"}, Gaussian); !errors.Is(err, ErrSingular) {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
	notBinary := table.MustNew(cols, [][]table.Value{
		{table.FloatValue(1), table.FloatValue(0)},
		{table.FloatValue(2), table.FloatValue(2)},
		{table.FloatValue(3), table.FloatValue(1)},
	})
	if _, err := Fit(notBinary, "y", []string{"x"}, Binomial); err == nil {
		t.Fatalf("expected error for non 0/1 binomial response")
	}
}

func TestParseFamily(t *testing.T) {
	for in, want := range map[string]Family{"OLS": Gaussian, "gaussian": Gaussian, "logit": Binomial, " Binomial ": Binomial} {
		got, err := ParseFamily(in)
		if err != nil || got != want {
			t.Fatalf("ParseFamily(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFamily("poisson"); err == nil {
		t.Fatalf("expected error for unknown family")
	}
}
