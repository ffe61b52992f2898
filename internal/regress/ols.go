// Package regress fits the study's two regression models: ordinary least
// squares and the first-order spatial-lag specification estimated by
// concentrated maximum likelihood. Both fitters are pure functions over
// immutable inputs.
package regress

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// rankTol is the relative singular-value cutoff for declaring a design
// matrix rank deficient.
const rankTol = 1e-12

// Coefficient is one fitted parameter with its inference columns. Stat is a
// t statistic for OLS and an asymptotic z for the spatial-lag model.
type Coefficient struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	Stat     float64 `json:"stat"`
	PValue   float64 `json:"p_value"`
}

// OLSResult is a fitted ordinary least-squares model.
type OLSResult struct {
	Coefficients []Coefficient `json:"coefficients"`
	Fitted       []float64     `json:"-"`
	Residuals    []float64     `json:"-"`
	Sigma2       float64       `json:"sigma2"` // RSS/(n-k)
	R2           float64       `json:"r2"`
	AdjR2        float64       `json:"adj_r2"`
	FStat        float64       `json:"f_stat"`
	FPValue      float64       `json:"f_p_value"`
	LogLik       float64       `json:"log_lik"`
	AIC          float64       `json:"aic"`
	N            int           `json:"n"`
	K            int           `json:"k"`
}

// FitOLS estimates y = X*beta + e by least squares. X must include the
// intercept column; names label the columns of X and default to "const",
// "x1", ... when nil. Rank-deficient designs are rejected with
// ErrSingularDesign.
func FitOLS(x *mat.Dense, y []float64, names []string) (*OLSResult, error) {
	n, k := x.Dims()
	if err := checkEstimationInput(x, y, names); err != nil {
		return nil, eris.Wrap(err, "fit ols")
	}
	names = coefNames(names, k)

	yVec := mat.NewVecDense(n, append([]float64(nil), y...))
	beta, err := solveLS(x, yVec)
	if err != nil {
		return nil, eris.Wrap(err, "fit ols")
	}

	resid := residualVec(x, beta, yVec)
	rss := mat.Dot(resid, resid)

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)
	var tss float64
	for _, v := range y {
		d := v - mean
		tss += d * d
	}
	if tss == 0 {
		return nil, eris.Wrap(ErrBadInput, "fit ols: response is constant")
	}
	if rss <= 0 {
		return nil, eris.Wrap(ErrBadInput, "fit ols: perfect fit, residual variance is zero")
	}

	dof := float64(n - k)
	sigma2 := rss / dof

	var xtx, xtxInv mat.Dense
	xtx.Mul(x.T(), x)
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, eris.Wrap(ErrSingularDesign, "fit ols: covariance inverse")
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}
	coefs := make([]Coefficient, k)
	for j := 0; j < k; j++ {
		est := beta.AtVec(j)
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		stat, p := 0.0, 1.0
		if se > 0 {
			stat = est / se
			p = 2 * tDist.Survival(math.Abs(stat))
		}
		coefs[j] = Coefficient{Name: names[j], Estimate: est, StdErr: se, Stat: stat, PValue: p}
	}

	r2 := 1 - rss/tss
	adjR2 := 1 - (1-r2)*float64(n-1)/dof

	// Overall F test: all slope coefficients jointly zero. Undefined for an
	// intercept-only model.
	fStat, fP := 0.0, 1.0
	if k > 1 {
		q := float64(k - 1)
		fStat = ((tss - rss) / q) / (rss / dof)
		if fStat > 0 && !math.IsNaN(fStat) && !math.IsInf(fStat, 0) {
			fDist := distuv.F{D1: q, D2: dof}
			fP = 1 - fDist.CDF(fStat)
		} else {
			fStat, fP = 0, 1
		}
	}

	logLik := gaussianLogLik(n, rss)

	fitted := make([]float64, n)
	res := make([]float64, n)
	for i := 0; i < n; i++ {
		res[i] = resid.AtVec(i)
		fitted[i] = y[i] - res[i]
	}

	return &OLSResult{
		Coefficients: coefs,
		Fitted:       fitted,
		Residuals:    res,
		Sigma2:       sigma2,
		R2:           r2,
		AdjR2:        adjR2,
		FStat:        fStat,
		FPValue:      fP,
		LogLik:       logLik,
		AIC:          -2*logLik + 2*float64(k),
		N:            n,
		K:            k,
	}, nil
}

// checkEstimationInput validates shared fitter preconditions.
func checkEstimationInput(x *mat.Dense, y []float64, names []string) error {
	n, k := x.Dims()
	if n == 0 || k == 0 {
		return eris.Wrap(ErrBadInput, "empty design matrix")
	}
	if len(y) != n {
		return eris.Wrapf(ErrBadInput, "response length %d for %d design rows", len(y), n)
	}
	if n <= k {
		return eris.Wrapf(ErrBadInput, "need more observations (%d) than parameters (%d)", n, k)
	}
	if names != nil && len(names) != k {
		return eris.Wrapf(ErrBadInput, "%d names for %d columns", len(names), k)
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return eris.Wrapf(ErrBadInput, "non-finite response at row %d", i)
		}
		for j := 0; j < k; j++ {
			if v := x.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return eris.Wrapf(ErrBadInput, "non-finite design entry at row %d column %d", i, j)
			}
		}
	}
	return nil
}

func coefNames(names []string, k int) []string {
	if names != nil {
		return names
	}
	out := make([]string, k)
	out[0] = "const"
	for j := 1; j < k; j++ {
		out[j] = fmt.Sprintf("x%d", j)
	}
	return out
}

// solveLS computes the least-squares coefficients of X*beta = b via SVD,
// rejecting rank-deficient designs rather than picking one of the infinite
// minimum-norm solutions.
func solveLS(x *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	_, k := x.Dims()
	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDFullU|mat.SVDFullV) {
		return nil, eris.Wrap(ErrSingularDesign, "svd factorization failed")
	}
	if rank := svd.Rank(rankTol); rank < k {
		return nil, eris.Wrapf(ErrSingularDesign, "rank %d for %d columns", rank, k)
	}
	n := b.Len()
	bm := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		bm.Set(i, 0, b.AtVec(i))
	}
	var sol mat.Dense
	svd.SolveTo(&sol, bm, k)
	out := mat.NewVecDense(k, nil)
	for j := 0; j < k; j++ {
		out.SetVec(j, sol.At(j, 0))
	}
	return out, nil
}

// residualVec returns b - X*beta.
func residualVec(x *mat.Dense, beta, b *mat.VecDense) *mat.VecDense {
	var fit mat.VecDense
	fit.MulVec(x, beta)
	var r mat.VecDense
	r.SubVec(b, &fit)
	return &r
}

// gaussianLogLik is the Gaussian log-likelihood at the ML variance RSS/n.
func gaussianLogLik(n int, rss float64) float64 {
	nf := float64(n)
	return -0.5 * nf * (math.Log(2*math.Pi) + math.Log(rss/nf) + 1)
}
