package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
	"github.com/KaramelBytes/ratiostat-cli/internal/regress"
	"github.com/KaramelBytes/ratiostat-cli/internal/render"
	"github.com/KaramelBytes/ratiostat-cli/internal/utils"
)

// QuantileOptions selects the model and the quantile levels to fit.
type QuantileOptions struct {
	Dependent  string
	Covariates []string
	Quantiles  []float64
	// Bootstrap resamples for the standard errors; must be at least 2.
	Bootstrap int
	// Seed for the resampling generator; 0 draws a fresh one.
	Seed uint64
	// Alpha of the intercept test; 0 means DefaultAlpha.
	Alpha float64
	// HTMLCharts also writes an interactive chart next to each PNG.
	HTMLCharts bool
}

// Section is the outcome of one quantile level. Err is set when the fit or
// its bootstrap failed; Result and Wald are then nil.
type Section struct {
	Quantile float64
	Result   *regress.QuantResult
	Wald     *WaldResult
	Err      error
}

// QuantileOutput lists what an analysis run produced.
type QuantileOutput struct {
	ReportPath string
	PlotPaths  []string
	HTMLPaths  []string
	Sections   []Section
	Seed       uint64
}

// FitFunc fits one quantile level with bootstrap standard errors.
type FitFunc func(ctx context.Context, d *regress.Design, q float64, opt regress.FitOptions) (*regress.QuantResult, error)

// QuantileAnalyzer runs the quantile-regression task.
type QuantileAnalyzer struct {
	Out Output
	// Fit defaults to regress.FitQuantile.
	Fit FitFunc
}

// NewQuantileAnalyzer returns an analyzer writing below out.Dir.
func NewQuantileAnalyzer(out Output) *QuantileAnalyzer {
	return &QuantileAnalyzer{Out: out, Fit: regress.FitQuantile}
}

// Validate checks the options against the dataset before any work is done.
func (o QuantileOptions) Validate(ds *dataset.Dataset) error {
	if err := ds.Require(append([]string{o.Dependent}, o.Covariates...)...); err != nil {
		return err
	}
	if _, err := ds.Numeric(o.Dependent); err != nil {
		return err
	}
	if len(o.Covariates) == 0 {
		return errors.New("quantile regression needs at least one covariate")
	}
	if len(o.Quantiles) == 0 {
		return errors.New("quantile regression needs at least one quantile level")
	}
	for _, q := range o.Quantiles {
		if q <= 0 || q >= 1 || math.IsNaN(q) {
			return fmt.Errorf("quantile %g outside (0,1)", q)
		}
	}
	if o.Bootstrap < 2 {
		return fmt.Errorf("bootstrap needs at least 2 resamples, got %d", o.Bootstrap)
	}
	return nil
}

// Analyze fits every quantile level, writes the text report and one chart per
// covariate. Failures of a single quantile level or covariate chart are
// recorded and logged; the remaining levels and covariates still run.
func (a *QuantileAnalyzer) Analyze(ctx context.Context, ds *dataset.Dataset, opt QuantileOptions) (*QuantileOutput, error) {
	log := a.Out.logger()
	if err := opt.Validate(ds); err != nil {
		return nil, err
	}
	if opt.Alpha == 0 {
		opt.Alpha = DefaultAlpha
	}
	seed := opt.Seed
	if seed == 0 {
		seed = rand.Uint64()
		log.Debug("drew bootstrap seed", "seed", seed)
	}

	data := ds.Clone()
	for _, c := range opt.Covariates {
		if err := data.AsCategorical(c); err != nil {
			return nil, err
		}
	}
	formula := regress.Formula{Dependent: opt.Dependent, Terms: opt.Covariates}
	design, err := regress.BuildDesign(data, formula)
	if err != nil {
		return nil, err
	}
	if design.Dropped > 0 {
		log.Warn("dropped incomplete rows", "formula", formula.String(), "dropped", humanize.Comma(int64(design.Dropped)), "kept", humanize.Comma(int64(design.N())))
	}

	fit := a.Fit
	if fit == nil {
		fit = regress.FitQuantile
	}
	out := &QuantileOutput{Seed: seed}
	for k, q := range opt.Quantiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sec := Section{Quantile: q}
		res, err := fit(ctx, design, q, regress.FitOptions{
			Bootstrap: opt.Bootstrap,
			Rand:      rand.New(rand.NewPCG(seed, uint64(k))),
		})
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		case err != nil:
			log.Warn("quantile fit failed", "quantile", q, "err", err)
			sec.Err = err
		default:
			if res.Skipped > 0 {
				log.Warn("bootstrap resamples skipped", "quantile", q, "skipped", res.Skipped, "used", res.Resamples)
			}
			coef, se, _ := res.Param(regress.InterceptTerm)
			w := WaldTest(coef, se, Phi, opt.Alpha)
			sec.Result = res
			sec.Wald = &w
			log.Debug("quantile fitted", "quantile", q, "iterations", res.Iterations, "intercept", coef, "p", w.P)
		}
		out.Sections = append(out.Sections, sec)
	}

	name := fmt.Sprintf("kvantilova_regrese_%s.txt", utils.FileComponent(opt.Dependent))
	out.ReportPath, err = a.Out.WriteText(DirQuantile, name, QuantileReport(formula, design.N(), out.Sections))
	if err != nil {
		return nil, err
	}

	for _, cov := range opt.Covariates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chart, err := QuantileChartFor(data, opt.Dependent, cov, opt.Quantiles, log)
		if err != nil {
			log.Warn("chart skipped", "covariate", cov, "err", err)
			continue
		}
		base := fmt.Sprintf("kvantilova_regrese_%s_%s", utils.FileComponent(opt.Dependent), utils.FileComponent(cov))
		path, err := a.Out.WriteChart(DirQuantile, base+".png", chart)
		if err != nil {
			log.Warn("chart not written", "covariate", cov, "err", err)
			continue
		}
		out.PlotPaths = append(out.PlotPaths, path)
		if opt.HTMLCharts {
			hp, err := a.Out.WriteChartHTML(DirQuantile, base+".html", chart)
			if err != nil {
				log.Warn("interactive chart not written", "covariate", cov, "err", err)
				continue
			}
			out.HTMLPaths = append(out.HTMLPaths, hp)
		}
	}
	return out, nil
}

// QuantileReport renders the text report: header, φ, formula, the number of
// observations and one section per quantile level in the given order.
func QuantileReport(formula regress.Formula, nobs int, sections []Section) string {
	var b strings.Builder
	b.WriteString("KVANTILOVÁ REGRESE – TESTY VÝZNAMNOSTI\n")
	b.WriteString("====================================\n\n")
	fmt.Fprintf(&b, "Zlatý řez φ = %.6f\n", Phi)
	fmt.Fprintf(&b, "Regresní formule: %s\n", formula)
	fmt.Fprintf(&b, "Počet pozorování: %s\n\n", humanize.Comma(int64(nobs)))
	for _, s := range sections {
		fmt.Fprintf(&b, "\n--- KVANTIL τ = %s ---\n\n", formatQuantile(s.Quantile))
		if s.Err != nil {
			fmt.Fprintf(&b, "Odhad selhal: %v\n\n", s.Err)
			continue
		}
		b.WriteString(s.Result.Summary())
		b.WriteString("\n\n")
		b.WriteString(s.Wald.Text(s.Quantile, formula.Dependent))
	}
	return b.String()
}

// QuantileChartFor fits dependent ~ covariate at each level without
// bootstrap and predicts every category. The covariate must already be
// categorical in ds. A level whose fit fails leaves its line out.
func QuantileChartFor(ds *dataset.Dataset, dependent, covariate string, quantiles []float64, log *slog.Logger) (render.QuantileChart, error) {
	formula := regress.Formula{Dependent: dependent, Terms: []string{covariate}}
	design, err := regress.BuildDesign(ds, formula)
	if err != nil {
		return render.QuantileChart{}, err
	}
	cats := design.Levels(covariate)
	chart := render.QuantileChart{
		Title:      fmt.Sprintf("Kvantilová regrese podle %s", covariate),
		XLabel:     covariate,
		YLabel:     dependent,
		Categories: cats,
		Reference:  Phi,
		RefLabel:   "Zlatý řez φ",
	}
	for _, q := range quantiles {
		fit, err := regress.QuantReg(design.X, design.Y, q, regress.FitOptions{})
		if err != nil {
			if log != nil {
				log.Warn("chart line skipped", "covariate", covariate, "quantile", q, "err", err)
			}
			continue
		}
		vals := make([]float64, len(cats))
		for i, cat := range cats {
			at := map[string]float64{}
			if i > 0 {
				at[regress.TreatmentTerm(covariate, cat)] = 1
			}
			vals[i] = regress.Predict(design.Terms, fit.Params, at)
		}
		chart.Series = append(chart.Series, render.Series{Label: fmt.Sprintf("Kvantil %s", formatQuantile(q)), Values: vals})
	}
	if len(chart.Series) == 0 {
		return chart, fmt.Errorf("no quantile level could be fitted for %s", formula)
	}
	return chart, nil
}
