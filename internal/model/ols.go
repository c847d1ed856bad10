package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// fitOLS solves the least-squares problem Xb = y by QR factorization of X.
// The coefficient covariance is sigma²·R⁻¹R⁻ᵀ.
func fitOLS(d *design, res *Result) error {
	n, p := d.x.Dims()
	var qr mat.QR
	qr.Factorize(d.x)
	rinv, err := upperInverse(&qr, d.x)
	if err != nil {
		return err
	}
	y := mat.NewVecDense(n, d.y)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	var cov mat.Dense
	cov.Mul(rinv, rinv.T())

	var fitted mat.VecDense
	fitted.MulVec(d.x, &beta)
	var ybar float64
	for _, v := range d.y {
		ybar += v
	}
	ybar /= float64(n)
	var rss, tss float64
	for i, v := range d.y {
		r := v - fitted.AtVec(i)
		rss += r * r
		tss += (v - ybar) * (v - ybar)
	}
	df := float64(n - p)
	sigma2 := rss / df
	se := stdErrs(&cov, sigma2)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}

	res.Terms = make([]Term, p)
	for j := 0; j < p; j++ {
		b := beta.AtVec(j)
		stat := b / se[j]
		res.Terms[j] = Term{
			Name:      d.names[j],
			Estimate:  b,
			StdErr:    se[j],
			Statistic: stat,
			PValue:    2 * dist.Survival(math.Abs(stat)),
		}
	}
	res.Sigma = math.Sqrt(sigma2)
	if tss > 0 {
		res.RSquared = 1 - rss/tss
	} else {
		res.RSquared = math.NaN()
	}
	res.Deviance = rss
	res.NullDeviance = tss
	nf := float64(n)
	res.AIC = nf*(math.Log(2*math.Pi*rss/nf)+1) + 2*float64(p+1)
	return nil
}

// rankTol is the smallest |R_jj| relative to the norm of column j of X
// for which the column is taken as linearly independent.
const rankTol = 1e-7

// upperInverse inverts the leading triangle R of the QR factorization of x.
func upperInverse(qr *mat.QR, x *mat.Dense) (*mat.TriDense, error) {
	_, p := x.Dims()
	var full mat.Dense
	qr.RTo(&full)
	r := mat.NewTriDense(p, mat.Upper, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			r.SetTri(i, j, full.At(i, j))
		}
	}
	for j := 0; j < p; j++ {
		norm := mat.Norm(x.ColView(j), 2)
		if math.Abs(r.At(j, j)) <= rankTol*norm {
			return nil, fmt.Errorf("%w: column %d is a linear combination of earlier columns", ErrSingular, j)
		}
	}
	var inv mat.TriDense
	if err := inv.InverseTri(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return &inv, nil
}
