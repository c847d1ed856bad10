package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	maxIterations = 25
	tolerance     = 1e-8
	minWeight     = 1e-10
)

// fitLogit runs iteratively reweighted least squares for the logit link,
// starting from all-zero coefficients.
func fitLogit(d *design, res *Result) error {
	n, p := d.x.Dims()
	beta := mat.NewVecDense(p, nil)
	eta := make([]float64, n)
	mu := make([]float64, n)
	w := make([]float64, n)
	z := make([]float64, n)
	for i := range mu {
		mu[i] = 0.5
	}
	dev := binomialDeviance(d.y, mu)

	var inv *mat.Dense
	converged := false
	iter := 0
	for iter < maxIterations {
		iter++
		for i := range w {
			w[i] = math.Max(mu[i]*(1-mu[i]), minWeight)
			z[i] = eta[i] + (d.y[i]-mu[i])/w[i]
		}
		var err error
		inv, err = weightedSolve(d.x, w, z, beta)
		if err != nil {
			return err
		}
		linkInverse(d.x, beta, eta, mu)
		devOld := dev
		dev = binomialDeviance(d.y, mu)
		if math.Abs(dev-devOld)/(math.Abs(dev)+0.1) < tolerance {
			converged = true
			break
		}
	}
	if !converged {
		return fmt.Errorf("%w after %d iterations", ErrNotConverged, iter)
	}

	// Covariance from the weights at the final estimate.
	for i := range w {
		w[i] = math.Max(mu[i]*(1-mu[i]), minWeight)
	}
	var xtwx mat.Dense
	xtwx.Mul(d.x.T(), weighted(d.x, w))
	cov, err := invert(&xtwx)
	if err != nil {
		cov = inv
	}
	se := stdErrs(cov, 1)
	res.Terms = make([]Term, p)
	for j := 0; j < p; j++ {
		b := beta.AtVec(j)
		stat := b / se[j]
		res.Terms[j] = Term{
			Name:      d.names[j],
			Estimate:  b,
			StdErr:    se[j],
			Statistic: stat,
			PValue:    2 * distuv.UnitNormal.Survival(math.Abs(stat)),
		}
	}
	var ybar float64
	for _, v := range d.y {
		ybar += v
	}
	ybar /= float64(n)
	null := make([]float64, n)
	for i := range null {
		null[i] = ybar
	}
	res.Deviance = dev
	res.NullDeviance = binomialDeviance(d.y, null)
	res.AIC = dev + 2*float64(p)
	res.Iterations = iter
	return nil
}

// weightedSolve sets beta to the solution of (X'WX)beta = X'Wz and returns (X'WX)^-1.
func weightedSolve(x *mat.Dense, w, z []float64, beta *mat.VecDense) (*mat.Dense, error) {
	xw := weighted(x, w)
	var xtwx mat.Dense
	xtwx.Mul(x.T(), xw)
	inv, err := invert(&xtwx)
	if err != nil {
		return nil, err
	}
	var rhs mat.VecDense
	rhs.MulVec(xw.T(), mat.NewVecDense(len(z), z))
	beta.MulVec(inv, &rhs)
	return inv, nil
}

// weighted returns diag(w)·x.
func weighted(x *mat.Dense, w []float64) *mat.Dense {
	var xw mat.Dense
	xw.Apply(func(i, _ int, v float64) float64 { return v * w[i] }, x)
	return &xw
}

func linkInverse(x *mat.Dense, beta *mat.VecDense, eta, mu []float64) {
	var e mat.VecDense
	e.MulVec(x, beta)
	for i := range eta {
		eta[i] = e.AtVec(i)
		mu[i] = 1 / (1 + math.Exp(-eta[i]))
	}
}

func binomialDeviance(y, mu []float64) float64 {
	var dev float64
	for i, v := range y {
		m := math.Min(math.Max(mu[i], 1e-15), 1-1e-15)
		if v == 1 {
			dev -= 2 * math.Log(m)
		} else {
			dev -= 2 * math.Log(1-m)
		}
	}
	return dev
}
