// Package regress fits linear and quantile regressions on designs built from
// dataset columns.
package regress

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
)

// InterceptTerm is the name of the constant column of every design.
const InterceptTerm = "Intercept"

// Formula names a dependent column and the regressor columns, in order.
type Formula struct {
	Dependent string
	Terms     []string
}

// String renders the formula as "y ~ a + b".
func (f Formula) String() string {
	if len(f.Terms) == 0 {
		return f.Dependent + " ~ 1"
	}
	return f.Dependent + " ~ " + strings.Join(f.Terms, " + ")
}

// Design is the model matrix of a formula evaluated on a dataset. Only rows
// where the dependent and every regressor are present are kept.
type Design struct {
	Formula Formula
	X       *mat.Dense
	Y       []float64
	// Terms name the columns of X.
	Terms []string
	// Rows are the dataset row indices kept, in order.
	Rows    []int
	Dropped int

	levels map[string][]string
}

// BuildDesign evaluates f on d. The dependent must be numeric. Numeric
// regressors enter as-is; categorical regressors are treatment coded with the
// first category as reference, one indicator per other level named
// "col[T.level]". Text and datetime regressors are rejected; convert them to
// categorical first.
func BuildDesign(d *dataset.Dataset, f Formula) (*Design, error) {
	y, err := d.Numeric(f.Dependent)
	if err != nil {
		return nil, err
	}
	cols := make([]*dataset.Column, len(f.Terms))
	terms := []string{InterceptTerm}
	levels := map[string][]string{}
	for i, name := range f.Terms {
		c, ok := d.Column(name)
		if !ok {
			return nil, &dataset.MissingColumnError{Column: name, Available: d.Names()}
		}
		switch c.Kind {
		case dataset.KindNumeric:
			terms = append(terms, name)
		case dataset.KindCategorical:
			levels[name] = c.Levels()
			for k, lv := range c.Levels() {
				if k > 0 {
					terms = append(terms, TreatmentTerm(name, lv))
				}
			}
		default:
			return nil, &dataset.ColumnKindError{Column: name, Want: dataset.KindCategorical, Got: c.Kind}
		}
		cols[i] = c
	}

	var rows []int
	for r := 0; r < d.Rows(); r++ {
		if y.IsMissing(r) {
			continue
		}
		complete := true
		for _, c := range cols {
			if c.IsMissing(r) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, r)
		}
	}
	des := &Design{Formula: f, Terms: terms, Rows: rows, Dropped: d.Rows() - len(rows), levels: levels}
	if len(rows) == 0 {
		return des, fmt.Errorf("%s: %w", f, ErrNoObservations)
	}

	x := mat.NewDense(len(rows), len(terms), nil)
	des.Y = make([]float64, len(rows))
	for i, r := range rows {
		des.Y[i] = y.Num[r]
		x.Set(i, 0, 1)
		j := 1
		for _, c := range cols {
			if c.Kind == dataset.KindNumeric {
				x.Set(i, j, c.Num[r])
				j++
				continue
			}
			// code 0 is the reference level
			if code := c.Codes[r]; code > 0 {
				x.Set(i, j+code-1, 1)
			}
			if len(c.Categories) > 0 {
				j += len(c.Categories) - 1
			}
		}
	}
	des.X = x
	return des, nil
}

// TreatmentTerm names the indicator of level within column.
func TreatmentTerm(column, level string) string {
	return fmt.Sprintf("%s[T.%s]", column, level)
}

// Levels returns the categories of a categorical regressor, reference first.
func (d *Design) Levels(column string) []string { return d.levels[column] }

// N returns the number of observations.
func (d *Design) N() int { return len(d.Y) }

// Predict evaluates the linear predictor for params at a single regressor row
// given as term name → value; terms not present count as zero.
func Predict(terms []string, params []float64, at map[string]float64) float64 {
	var sum float64
	for i, t := range terms {
		if t == InterceptTerm {
			sum += params[i]
			continue
		}
		if v, ok := at[t]; ok {
			sum += params[i] * v
		}
	}
	return sum
}

// Resample returns a design made of the given row positions (with repetition).
func (d *Design) Resample(idx []int) (*mat.Dense, []float64) {
	_, p := d.X.Dims()
	x := mat.NewDense(len(idx), p, nil)
	y := make([]float64, len(idx))
	for i, k := range idx {
		x.SetRow(i, d.X.RawRowView(k))
		y[i] = d.Y[k]
	}
	return x, y
}

func maxAbsDiff(a, b []float64) float64 {
	var m float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}
