package regress

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// rcond is the relative cutoff below which singular values are treated as zero.
const rcond = 1e-15

var errSVD = errors.New("singular value decomposition failed")

// pinvSolve returns the minimum-norm least-squares solution of a·x = b using
// the SVD pseudo-inverse, and the numerical rank of a.
func pinvSolve(a mat.Matrix, b []float64) ([]float64, int, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, 0, errSVD
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		_, c := a.Dims()
		return make([]float64, c), 0, nil
	}
	var x mat.VecDense
	svd.SolveVecTo(&x, mat.NewVecDense(len(b), b), rank)
	return x.RawVector().Data, rank, nil
}

// pinv returns the pseudo-inverse of a square or rectangular matrix.
func pinv(a mat.Matrix) (*mat.Dense, int, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, 0, errSVD
	}
	r, _ := a.Dims()
	rank := svd.Rank(rcond)
	var out mat.Dense
	if rank == 0 {
		_, c := a.Dims()
		return mat.NewDense(c, r, nil), 0, nil
	}
	eye := mat.NewDiagDense(r, nil)
	for i := 0; i < r; i++ {
		eye.SetDiag(i, 1)
	}
	svd.SolveTo(&out, eye, rank)
	return &out, rank, nil
}
