package regress

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
)

const (
	DefaultMaxIter = 1000
	DefaultTol     = 1e-6
	// residuals smaller than this are pinned to ±residFloor before weighting
	residFloor = 1e-6
)

// FitOptions controls a quantile fit.
type FitOptions struct {
	MaxIter int
	Tol     float64
	// Bootstrap is the number of pairs-bootstrap resamples used for the
	// covariance. Zero skips standard errors entirely.
	Bootstrap int
	// Rand drives resampling; required when Bootstrap > 0.
	Rand *rand.Rand
}

func (o FitOptions) withDefaults() FitOptions {
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Tol <= 0 {
		o.Tol = DefaultTol
	}
	return o
}

// QuantFit is the point estimate of one quantile regression.
type QuantFit struct {
	Params     []float64
	Iterations int
	Rank       int
}

// QuantReg fits the τ-quantile regression of y on x by iteratively reweighted
// least squares. Each step solves the weighted normal equations with the
// pseudo-inverse, starting from all-ones coefficients, and stops once no
// coefficient moves by more than the tolerance.
func QuantReg(x *mat.Dense, y []float64, q float64, opt FitOptions) (*QuantFit, error) {
	opt = opt.withDefaults()
	if q <= 0 || q >= 1 {
		return nil, fmt.Errorf("quantile %g outside (0,1)", q)
	}
	n, p := x.Dims()
	if n == 0 {
		return nil, ErrNoObservations
	}
	yv := mat.NewVecDense(n, y)
	beta := make([]float64, p)
	for i := range beta {
		beta[i] = 1
	}
	xstar := mat.DenseCopyOf(x)
	resid := mat.NewVecDense(n, nil)
	var xtx mat.Dense
	var xty mat.VecDense
	var rank int
	diff := math.Inf(1)
	iter := 0
	for iter < opt.MaxIter && diff > opt.Tol {
		iter++
		xtx.Mul(xstar.T(), x)
		xty.MulVec(xstar.T(), yv)
		next, r, err := pinvSolve(&xtx, xty.RawVector().Data)
		if err != nil {
			return nil, err
		}
		rank = r
		diff = maxAbsDiff(next, beta)
		beta = next

		resid.MulVec(x, mat.NewVecDense(p, beta))
		resid.SubVec(yv, resid)
		for i := 0; i < n; i++ {
			w := checkWeight(resid.AtVec(i), q)
			for j := 0; j < p; j++ {
				xstar.Set(i, j, x.At(i, j)/w)
			}
		}
	}
	if diff > opt.Tol {
		return nil, &NotConvergedError{Quantile: q, Iterations: iter, MaxDelta: diff}
	}
	return &QuantFit{Params: beta, Iterations: iter, Rank: rank}, nil
}

// checkWeight scales a residual by τ below the fit and by 1−τ above it.
func checkWeight(r, q float64) float64 {
	if math.Abs(r) < residFloor {
		if r >= 0 {
			r = residFloor
		} else {
			r = -residFloor
		}
	}
	if r < 0 {
		return math.Abs(q * r)
	}
	return math.Abs((1 - q) * r)
}

// checkLoss is the quantile check function ρ_τ(u).
func checkLoss(u, q float64) float64 {
	if u < 0 {
		return u * (q - 1)
	}
	return u * q
}

// FitQuantile fits the design at τ and, when requested, estimates the
// covariance by pairs bootstrap. Resamples that fail to converge are skipped;
// fewer than two usable resamples is a *BootstrapError.
func FitQuantile(ctx context.Context, d *Design, q float64, opt FitOptions) (*QuantResult, error) {
	opt = opt.withDefaults()
	fit, err := QuantReg(d.X, d.Y, q, opt)
	if err != nil {
		return nil, err
	}
	n, p := d.X.Dims()
	res := &QuantResult{
		Formula:    d.Formula,
		Quantile:   q,
		Terms:      d.Terms,
		Params:     fit.Params,
		Iterations: fit.Iterations,
		NObs:       n,
		DFModel:    fit.Rank - 1,
		DFResid:    n - fit.Rank,
	}
	res.PseudoR2 = pseudoR2(d.X, d.Y, fit.Params, q)

	if opt.Bootstrap > 0 {
		if opt.Rand == nil {
			return nil, fmt.Errorf("bootstrap requested without a random source")
		}
		samples := make([]float64, 0, opt.Bootstrap*p)
		idx := make([]int, n)
		for b := 0; b < opt.Bootstrap; b++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for i := range idx {
				idx[i] = opt.Rand.IntN(n)
			}
			bx, by := d.Resample(idx)
			bf, err := QuantReg(bx, by, q, opt)
			if err != nil {
				res.Skipped++
				continue
			}
			samples = append(samples, bf.Params...)
		}
		used := len(samples) / p
		if used < 2 {
			return nil, &BootstrapError{Quantile: q, Used: used, Skipped: res.Skipped}
		}
		res.Resamples = used
		var cov mat.SymDense
		stat.CovarianceMatrix(&cov, mat.NewDense(used, p, samples), nil)
		res.Cov = &cov
		res.BSE = make([]float64, p)
		for i := range res.BSE {
			res.BSE[i] = math.Sqrt(cov.At(i, i))
		}
		res.inference()
	}
	return res, nil
}

func pseudoR2(x *mat.Dense, y, params []float64, q float64) float64 {
	n, p := x.Dims()
	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(x, mat.NewVecDense(p, params))
	sorted := append([]float64(nil), y...)
	sort.Float64s(sorted)
	qy := dataset.Quantile(sorted, q)
	var num, den float64
	for i, v := range y {
		num += checkLoss(v-fitted.AtVec(i), q)
		den += checkLoss(v-qy, q)
	}
	if den == 0 {
		return math.NaN()
	}
	return 1 - num/den
}
