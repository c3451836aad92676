package regress

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// OLSResult is an ordinary least squares fit with classical inference.
type OLSResult struct {
	Formula Formula
	Terms   []string
	Params  []float64
	BSE     []float64
	TValues []float64
	PValues []float64
	ConfInt [][2]float64

	NObs     int
	DFModel  int
	DFResid  int
	RSquared float64
	AdjR2    float64
	FValue   float64
	FPValue  float64
	SSR      float64
}

// OLS fits the design by least squares. The covariance is σ̂²(X'X)⁺ with
// σ̂² = SSR/(n − rank). A design with no residual degrees of freedom returns
// ErrSingular.
func OLS(d *Design) (*OLSResult, error) {
	n, p := d.X.Dims()
	if n == 0 {
		return nil, ErrNoObservations
	}
	beta, rank, err := pinvSolve(d.X, d.Y)
	if err != nil {
		return nil, err
	}
	if n-rank <= 0 {
		return nil, fmt.Errorf("%s: %d observations for rank %d: %w", d.Formula, n, rank, ErrSingular)
	}
	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(d.X, mat.NewVecDense(p, beta))
	var ybar float64
	for _, v := range d.Y {
		ybar += v
	}
	ybar /= float64(n)
	var ssr, sst float64
	for i, v := range d.Y {
		e := v - fitted.AtVec(i)
		ssr += e * e
		sst += (v - ybar) * (v - ybar)
	}
	res := &OLSResult{
		Formula: d.Formula,
		Terms:   d.Terms,
		Params:  beta,
		NObs:    n,
		DFModel: rank - 1,
		DFResid: n - rank,
		SSR:     ssr,
	}
	sigma2 := ssr / float64(res.DFResid)

	var xtx mat.Dense
	xtx.Mul(d.X.T(), d.X)
	inv, _, err := pinv(&xtx)
	if err != nil {
		return nil, err
	}
	res.BSE = make([]float64, p)
	for i := range res.BSE {
		res.BSE[i] = math.Sqrt(sigma2 * inv.At(i, i))
	}
	res.TValues, res.PValues, res.ConfInt = tInference(beta, res.BSE, res.DFResid)

	res.RSquared = math.NaN()
	res.AdjR2 = math.NaN()
	res.FValue = math.NaN()
	res.FPValue = math.NaN()
	if sst > 0 {
		res.RSquared = 1 - ssr/sst
		res.AdjR2 = 1 - (1-res.RSquared)*float64(n-1)/float64(res.DFResid)
	}
	if res.DFModel > 0 && ssr > 0 {
		res.FValue = ((sst - ssr) / float64(res.DFModel)) / sigma2
		f := distuv.F{D1: float64(res.DFModel), D2: float64(res.DFResid)}
		res.FPValue = f.Survival(res.FValue)
	}
	return res, nil
}

// Summary renders the model header and the coefficient table.
func (r *OLSResult) Summary() string {
	var b strings.Builder
	b.WriteString(headerTable("OLS Regression Results", [][2]string{
		{"Dep. Variable:", r.Formula.Dependent},
		{"R-squared:", fmt.Sprintf("%.4f", r.RSquared)},
		{"Model:", "OLS"},
		{"Adj. R-squared:", fmt.Sprintf("%.4f", r.AdjR2)},
		{"No. Observations:", fmt.Sprintf("%d", r.NObs)},
		{"F-statistic:", fmt.Sprintf("%.4f", r.FValue)},
		{"Df Residuals:", fmt.Sprintf("%d", r.DFResid)},
		{"Prob (F-statistic):", fmt.Sprintf("%.4g", r.FPValue)},
		{"Df Model:", fmt.Sprintf("%d", r.DFModel)},
	}))
	b.WriteString("\n")
	b.WriteString(coefTable(r.Terms, r.Params, r.BSE, r.TValues, r.PValues, r.ConfInt))
	return b.String()
}
