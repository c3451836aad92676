package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
)

// NormalEstimate holds the normal-model parameter estimates of one column.
type NormalEstimate struct {
	Column   string
	N        int
	Mean     float64
	Std      float64 // sample standard deviation
	SigmaMLE float64
	MeanCI   [2]float64
	VarCI    [2]float64
	Skewness float64
	Kurtosis float64 // excess
}

// NormalParameters estimates μ and σ for each selected numeric column, with
// (1−alpha) confidence intervals from the Student t and χ² distributions.
// An empty selection means every numeric column.
func NormalParameters(ds *dataset.Dataset, columns []string, alpha float64) ([]NormalEstimate, error) {
	if len(columns) == 0 {
		columns = ds.NumericColumns()
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	var out []NormalEstimate
	for _, name := range columns {
		col, err := ds.Numeric(name)
		if err != nil {
			return nil, err
		}
		vals := dataset.Present(col)
		n := len(vals)
		if n < 2 {
			return nil, fmt.Errorf("column %q: need at least 2 values, have %d", name, n)
		}
		mean, std := stat.MeanStdDev(vals, nil)
		df := float64(n - 1)
		tq := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(1 - alpha/2)
		half := tq * std / math.Sqrt(float64(n))
		chi := distuv.ChiSquared{K: df}
		ss := df * std * std
		out = append(out, NormalEstimate{
			Column:   name,
			N:        n,
			Mean:     mean,
			Std:      std,
			SigmaMLE: std * math.Sqrt(df/float64(n)),
			MeanCI:   [2]float64{mean - half, mean + half},
			VarCI:    [2]float64{ss / chi.Quantile(1-alpha/2), ss / chi.Quantile(alpha/2)},
			Skewness: stat.Skew(vals, nil),
			Kurtosis: stat.ExKurtosis(vals, nil),
		})
	}
	return out, nil
}

// NormalReport renders the estimates as a text report.
func NormalReport(est []NormalEstimate, alpha float64) string {
	var b strings.Builder
	b.WriteString("PARAMETRY NORMÁLNÍHO ROZDĚLENÍ\n")
	b.WriteString("==============================\n\n")
	conf := 100 * (1 - alpha)
	tbl := newTable()
	tbl.AppendHeader(table.Row{
		"proměnná", "n", "průměr", "s", "σ (MLE)",
		fmt.Sprintf("IS μ %.0f %%", conf), fmt.Sprintf("IS σ² %.0f %%", conf),
		"šikmost", "špičatost",
	})
	for _, e := range est {
		tbl.AppendRow(table.Row{
			e.Column, e.N,
			fmt.Sprintf("%.4f", e.Mean),
			fmt.Sprintf("%.4f", e.Std),
			fmt.Sprintf("%.4f", e.SigmaMLE),
			fmt.Sprintf("[%.4f; %.4f]", e.MeanCI[0], e.MeanCI[1]),
			fmt.Sprintf("[%.4f; %.4f]", e.VarCI[0], e.VarCI[1]),
			fmt.Sprintf("%.3f", e.Skewness),
			fmt.Sprintf("%.3f", e.Kurtosis),
		})
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}
