package regress

import (
	"fmt"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// QuantResult is a fitted quantile regression with bootstrap inference.
// BSE, TValues, PValues and ConfInt are nil when no bootstrap was requested.
type QuantResult struct {
	Formula  Formula
	Quantile float64
	Terms    []string
	Params   []float64
	BSE      []float64
	TValues  []float64
	PValues  []float64
	ConfInt  [][2]float64
	Cov      *mat.SymDense

	PseudoR2   float64
	Iterations int
	NObs       int
	DFModel    int
	DFResid    int
	Resamples  int
	Skipped    int
}

// Param returns the coefficient and standard error of a term.
func (r *QuantResult) Param(term string) (coef, se float64, ok bool) {
	for i, t := range r.Terms {
		if t == term {
			se = math.NaN()
			if r.BSE != nil {
				se = r.BSE[i]
			}
			return r.Params[i], se, true
		}
	}
	return 0, 0, false
}

func (r *QuantResult) inference() {
	r.TValues, r.PValues, r.ConfInt = tInference(r.Params, r.BSE, r.DFResid)
}

// tInference computes t statistics, two-sided p-values and 95% intervals from
// a Student t reference with df degrees of freedom.
func tInference(params, bse []float64, df int) ([]float64, []float64, [][2]float64) {
	p := len(params)
	tv := make([]float64, p)
	pv := make([]float64, p)
	ci := make([][2]float64, p)
	crit := math.NaN()
	var dist distuv.StudentsT
	if df > 0 {
		dist = distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
		crit = dist.Quantile(0.975)
	}
	for i := range params {
		tv[i] = params[i] / bse[i]
		if df > 0 {
			pv[i] = 2 * dist.Survival(math.Abs(tv[i]))
		} else {
			pv[i] = math.NaN()
		}
		ci[i] = [2]float64{params[i] - crit*bse[i], params[i] + crit*bse[i]}
	}
	return tv, pv, ci
}

// Summary renders the model header and the coefficient table.
func (r *QuantResult) Summary() string {
	var b strings.Builder
	head := [][2]string{
		{"Dep. Variable:", r.Formula.Dependent},
		{"Model:", "QuantReg"},
		{"Method:", "IRLS"},
		{"Quantile:", formatQ(r.Quantile)},
		{"Pseudo R-squared:", fmt.Sprintf("%.4f", r.PseudoR2)},
		{"No. Observations:", fmt.Sprintf("%d", r.NObs)},
		{"Df Residuals:", fmt.Sprintf("%d", r.DFResid)},
		{"Df Model:", fmt.Sprintf("%d", r.DFModel)},
		{"Iterations:", fmt.Sprintf("%d", r.Iterations)},
	}
	if r.Resamples > 0 {
		cov := fmt.Sprintf("bootstrap (%d resamples)", r.Resamples)
		if r.Skipped > 0 {
			cov += fmt.Sprintf(", %d skipped", r.Skipped)
		}
		head = append(head, [2]string{"Covariance:", cov})
	}
	b.WriteString(headerTable("QuantReg Regression Results", head))
	b.WriteString("\n")
	b.WriteString(coefTable(r.Terms, r.Params, r.BSE, r.TValues, r.PValues, r.ConfInt))
	b.WriteString("\n")
	return b.String()
}

func formatQ(q float64) string { return fmt.Sprintf("%g", q) }

// newTable returns a borderless light table that keeps header case.
func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Options.DrawBorder = false
	return tbl
}

func headerTable(title string, rows [][2]string) string {
	tbl := newTable()
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateHeader = true
	tbl.SetTitle(title)
	tbl.Style().Title.Align = text.AlignCenter
	// two key/value pairs per line
	for i := 0; i < len(rows); i += 2 {
		row := table.Row{rows[i][0], rows[i][1]}
		if i+1 < len(rows) {
			row = append(row, rows[i+1][0], rows[i+1][1])
		}
		tbl.AppendRow(row)
	}
	return tbl.Render() + "\n"
}

func coefTable(terms []string, params, bse, tv, pv []float64, ci [][2]float64) string {
	tbl := newTable()
	tbl.Style().Options.SeparateColumns = false
	if bse == nil {
		tbl.AppendHeader(table.Row{"", "coef"})
		for i, t := range terms {
			tbl.AppendRow(table.Row{t, fmt.Sprintf("%.4f", params[i])})
		}
	} else {
		tbl.AppendHeader(table.Row{"", "coef", "std err", "t", "P>|t|", "[0.025", "0.975]"})
		for i, t := range terms {
			tbl.AppendRow(table.Row{
				t,
				fmt.Sprintf("%.4f", params[i]),
				fmt.Sprintf("%.4f", bse[i]),
				fmt.Sprintf("%.3f", tv[i]),
				fmt.Sprintf("%.3f", pv[i]),
				fmt.Sprintf("%.3f", ci[i][0]),
				fmt.Sprintf("%.3f", ci[i][1]),
			})
		}
	}
	cfg := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft}}
	for n := 2; n <= 7; n++ {
		cfg = append(cfg, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	tbl.SetColumnConfigs(cfg)
	return tbl.Render() + "\n"
}
