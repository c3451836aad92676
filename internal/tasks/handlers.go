package tasks

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/KaramelBytes/ratiostat-cli/internal/analysis"
	"github.com/KaramelBytes/ratiostat-cli/internal/utils"
)

// DefaultRegistry wires every task to its analysis.
func DefaultRegistry() Registry {
	return Registry{
		GraphicAnalysis:              runGraphicAnalysis,
		NormalDistributionParameters: runNormalParameters,
		MedianEqualityTest:           runMedianEquality,
		RegressionSignificanceTest:   runRegressionSignificance,
		QuantileRegression:           runQuantileRegression,
	}
}

func runGraphicAnalysis(ctx context.Context, env *Env) error {
	_, err := analysis.GraphicAnalysis(ctx, env.Data, env.Settings.GraphicAnalysis.Columns, env.Out)
	return err
}

func runNormalParameters(_ context.Context, env *Env) error {
	est, err := analysis.NormalParameters(env.Data, env.Settings.NormalDistribution.Columns, env.Settings.Alpha)
	if err != nil {
		return err
	}
	_, err = env.Out.WriteText(analysis.DirNormal, "normalni_rozdeleni.txt", analysis.NormalReport(est, env.Settings.Alpha))
	return err
}

func runMedianEquality(_ context.Context, env *Env) error {
	cfg := env.Settings.MedianEquality
	res, err := analysis.MedianEquality(env.Data, cfg.Value, cfg.Group, env.Settings.Alpha)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("shoda_medianu_%s.txt", utils.FileComponent(cfg.Value))
	_, err = env.Out.WriteText(analysis.DirMedian, name, res.Text())
	return err
}

func runRegressionSignificance(_ context.Context, env *Env) error {
	cfg := env.Settings.RegressionSignificance
	res, dropped, err := analysis.RegressionSignificance(env.Data, cfg.Dependent, cfg.Regressors)
	if err != nil {
		return err
	}
	if dropped > 0 {
		env.logger().Warn("dropped incomplete rows", "formula", res.Formula.String(), "dropped", humanize.Comma(int64(dropped)))
	}
	name := fmt.Sprintf("vyznamnost_regrese_%s.txt", utils.FileComponent(cfg.Dependent))
	_, err = env.Out.WriteText(analysis.DirRegression, name, analysis.RegressionReport(res, env.Settings.Alpha))
	return err
}

func runQuantileRegression(ctx context.Context, env *Env) error {
	cfg := env.Settings.QuantileRegression
	_, err := analysis.NewQuantileAnalyzer(env.Out).Analyze(ctx, env.Data, analysis.QuantileOptions{
		Dependent:  cfg.Dependent,
		Covariates: cfg.Covariates,
		Quantiles:  cfg.Quantiles,
		Bootstrap:  cfg.Bootstrap,
		Seed:       cfg.Seed,
		Alpha:      env.Settings.Alpha,
		HTMLCharts: cfg.HTMLCharts,
	})
	return err
}
