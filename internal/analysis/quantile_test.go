package analysis

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
	"github.com/KaramelBytes/ratiostat-cli/internal/regress"
)

func scenario(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("scenario",
		dataset.NewNumeric("poměr", []float64{1.0, 1.5, 1.618, 2.0}),
		dataset.NewText("věk", []string{"young", "old", "young", "old"}),
		dataset.NewText("pohlaví", []string{"M", "F", "M", "F"}),
	)
	require.NoError(t, err)
	return ds
}

func scenarioOptions(quantiles ...float64) QuantileOptions {
	return QuantileOptions{
		Dependent:  "poměr",
		Covariates: []string{"věk", "pohlaví"},
		Quantiles:  quantiles,
		Bootstrap:  50,
		Seed:       7,
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	a := NewQuantileAnalyzer(Output{Dir: dir, Stdout: &stdout})
	ds := scenario(t)

	out, err := a.Analyze(context.Background(), ds, scenarioOptions(0.5))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "QR", "kvantilova_regrese_poměr.txt"), out.ReportPath)
	assert.Equal(t, []string{
		filepath.Join(dir, "QR", "kvantilova_regrese_poměr_věk.png"),
		filepath.Join(dir, "QR", "kvantilova_regrese_poměr_pohlaví.png"),
	}, out.PlotPaths)
	entries, err := os.ReadDir(filepath.Join(dir, "QR"))
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	b, err := os.ReadFile(out.ReportPath)
	require.NoError(t, err)
	report := string(b)
	assert.True(t, strings.HasPrefix(report, "KVANTILOVÁ REGRESE – TESTY VÝZNAMNOSTI\n====================================\n\n"))
	assert.Contains(t, report, "Zlatý řez φ = 1.618034\n")
	assert.Contains(t, report, "Regresní formule: poměr ~ věk + pohlaví\n")
	assert.Contains(t, report, "Počet pozorování: 4\n")
	assert.Equal(t, 1, strings.Count(report, "--- KVANTIL τ = 0.5 ---"))
	assert.Contains(t, report, "H0: Q_0.5(poměr) = φ\n")
	assert.Contains(t, report, "Odhad interceptu: 1.7500\n")

	require.Len(t, out.Sections, 1)
	sec := out.Sections[0]
	require.NoError(t, sec.Err)
	assert.InDelta(t, 1.75, sec.Wald.Estimate, 1e-9)

	msgs := stdout.String()
	assert.Contains(t, msgs, "✓ Textový výstup uložen: "+out.ReportPath)
	assert.Equal(t, 2, strings.Count(msgs, "✓ Graf uložen: "))

	// the caller's dataset is untouched
	c, _ := ds.Column("věk")
	assert.Equal(t, dataset.KindText, c.Kind)
}

func TestAnalyzeIsIdempotentWithSeed(t *testing.T) {
	dir := t.TempDir()
	a := NewQuantileAnalyzer(Output{Dir: dir})
	read := func(paths ...string) [][]byte {
		var out [][]byte
		for _, p := range paths {
			b, err := os.ReadFile(p)
			require.NoError(t, err)
			out = append(out, b)
		}
		return out
	}

	first, err := a.Analyze(context.Background(), scenario(t), scenarioOptions(0.25, 0.5))
	require.NoError(t, err)
	firstBytes := read(append([]string{first.ReportPath}, first.PlotPaths...)...)

	second, err := a.Analyze(context.Background(), scenario(t), scenarioOptions(0.25, 0.5))
	require.NoError(t, err)
	secondBytes := read(append([]string{second.ReportPath}, second.PlotPaths...)...)

	assert.Equal(t, firstBytes, secondBytes)
	entries, err := os.ReadDir(filepath.Join(dir, "QR"))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestAnalyzeSectionsFollowQuantileOrder(t *testing.T) {
	a := NewQuantileAnalyzer(Output{Dir: t.TempDir()})
	qs := []float64{0.75, 0.25, 0.5}
	out, err := a.Analyze(context.Background(), scenario(t), scenarioOptions(qs...))
	require.NoError(t, err)
	require.Len(t, out.Sections, 3)

	b, err := os.ReadFile(out.ReportPath)
	require.NoError(t, err)
	report := string(b)
	last := -1
	for i, q := range qs {
		assert.Equal(t, q, out.Sections[i].Quantile)
		header := "--- KVANTIL τ = " + formatQuantile(q) + " ---"
		assert.Equal(t, 1, strings.Count(report, header))
		pos := strings.Index(report, header)
		assert.Greater(t, pos, last)
		last = pos
	}
}

func TestAnalyzeHTMLCharts(t *testing.T) {
	a := NewQuantileAnalyzer(Output{Dir: t.TempDir()})
	opt := scenarioOptions(0.5)
	opt.HTMLCharts = true
	out, err := a.Analyze(context.Background(), scenario(t), opt)
	require.NoError(t, err)
	require.Len(t, out.HTMLPaths, 2)
	assert.True(t, strings.HasSuffix(out.HTMLPaths[0], "kvantilova_regrese_poměr_věk.html"))
}

func TestAnalyzeValidation(t *testing.T) {
	a := NewQuantileAnalyzer(Output{Dir: t.TempDir()})
	ds := scenario(t)

	opt := scenarioOptions(0.5)
	opt.Covariates = []string{"věk", "vzdělání"}
	_, err := a.Analyze(context.Background(), ds, opt)
	var mc *dataset.MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "vzdělání", mc.Column)

	opt = scenarioOptions(0.5)
	opt.Dependent = "věk"
	_, err = a.Analyze(context.Background(), ds, opt)
	var kc *dataset.ColumnKindError
	require.ErrorAs(t, err, &kc)

	_, err = a.Analyze(context.Background(), ds, scenarioOptions(0, 0.5))
	require.Error(t, err)

	for _, n := range []int{0, 1} {
		opt = scenarioOptions(0.5)
		opt.Bootstrap = n
		_, err = a.Analyze(context.Background(), ds, opt)
		require.Error(t, err, n)
		assert.Contains(t, err.Error(), "at least 2 resamples")
	}
}

func TestAnalyzeFailedQuantileKeepsOtherSections(t *testing.T) {
	dir := t.TempDir()
	a := NewQuantileAnalyzer(Output{Dir: dir})
	a.Fit = func(ctx context.Context, d *regress.Design, q float64, opt regress.FitOptions) (*regress.QuantResult, error) {
		if q == 0.5 {
			return nil, &regress.NotConvergedError{Quantile: q, Iterations: 1000, MaxDelta: 0.3}
		}
		return regress.FitQuantile(ctx, d, q, opt)
	}

	out, err := a.Analyze(context.Background(), scenario(t), scenarioOptions(0.25, 0.5, 0.75))
	require.NoError(t, err)
	require.Len(t, out.Sections, 3)

	var nc *regress.NotConvergedError
	require.ErrorAs(t, out.Sections[1].Err, &nc)
	assert.Nil(t, out.Sections[1].Wald)
	for _, i := range []int{0, 2} {
		require.NoError(t, out.Sections[i].Err)
		require.NotNil(t, out.Sections[i].Wald)
	}

	// each level draws from its own stream, so its neighbours match a clean run
	clean, err := NewQuantileAnalyzer(Output{Dir: t.TempDir()}).Analyze(context.Background(), scenario(t), scenarioOptions(0.25, 0.5, 0.75))
	require.NoError(t, err)
	for _, i := range []int{0, 2} {
		assert.Equal(t, clean.Sections[i].Wald, out.Sections[i].Wald)
	}

	b, err := os.ReadFile(out.ReportPath)
	require.NoError(t, err)
	report := string(b)
	assert.Contains(t, report, "--- KVANTIL τ = 0.5 ---\n\nOdhad selhal: quantile 0.5 did not converge")
	assert.Equal(t, 2, strings.Count(report, "Waldův test"))
	assert.Contains(t, report, "H0: Q_0.25(poměr) = φ\n")
	assert.Contains(t, report, "H0: Q_0.75(poměr) = φ\n")
	assert.Len(t, out.PlotPaths, 2)
}

func TestAnalyzeFailedChartKeepsReportAndOtherCharts(t *testing.T) {
	dir := t.TempDir()
	// a directory squatting on the PNG name makes the final rename fail
	blocked := filepath.Join(dir, "QR", "kvantilova_regrese_poměr_věk.png")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "obsazeno"), 0o755))

	out, err := NewQuantileAnalyzer(Output{Dir: dir}).Analyze(context.Background(), scenario(t), scenarioOptions(0.5))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "QR", "kvantilova_regrese_poměr_pohlaví.png")}, out.PlotPaths)

	_, err = os.Stat(out.ReportPath)
	require.NoError(t, err)
	for _, p := range out.PlotPaths {
		fi, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, fi.Mode().IsRegular())
	}
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewQuantileAnalyzer(Output{Dir: t.TempDir()}).Analyze(ctx, scenario(t), scenarioOptions(0.5))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestQuantileReportFailedSection(t *testing.T) {
	f := regress.Formula{Dependent: "poměr", Terms: []string{"věk"}}
	report := QuantileReport(f, 1234, []Section{
		{Quantile: 0.1, Err: &regress.NotConvergedError{Quantile: 0.1, Iterations: 1000, MaxDelta: 0.2}},
	})
	assert.Contains(t, report, "--- KVANTIL τ = 0.1 ---\n\nOdhad selhal: quantile 0.1 did not converge after 1000 iterations")
	assert.NotContains(t, report, "Waldův test")
	assert.Contains(t, report, "Počet pozorování: 1,234\n")
}

func TestQuantileChartPredictsCategories(t *testing.T) {
	ds := scenario(t)
	require.NoError(t, ds.AsCategorical("věk"))
	chart, err := QuantileChartFor(ds, "poměr", "věk", []float64{0.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "young"}, chart.Categories)
	require.Len(t, chart.Series, 1)
	assert.Equal(t, "Kvantil 0.5", chart.Series[0].Label)
	assert.InDelta(t, 1.75, chart.Series[0].Values[0], 1e-9)
	assert.InDelta(t, 1.309, chart.Series[0].Values[1], 1e-9)
	assert.Equal(t, Phi, chart.Reference)
	assert.Equal(t, "Kvantilová regrese podle věk", chart.Title)
}

func TestWaldTestDeterministic(t *testing.T) {
	a := WaldTest(1.7, 0.05, Phi, DefaultAlpha)
	b := WaldTest(1.7, 0.05, Phi, DefaultAlpha)
	assert.Equal(t, math.Float64bits(a.T), math.Float64bits(b.T))
	assert.Equal(t, math.Float64bits(a.P), math.Float64bits(b.P))
	assert.InDelta(t, 1.6393, a.T, 1e-4)
	assert.InDelta(t, 0.1011, a.P, 1e-3)
	assert.False(t, a.Significant)

	s := WaldTest(2.0, 0.1, Phi, DefaultAlpha)
	assert.True(t, s.Significant)
	assert.Contains(t, s.Text(0.5, "poměr"), "→ H0 zamítáme: kvantil se významně liší od φ.")
	assert.Contains(t, a.Text(0.5, "poměr"), "→ H0 nezamítáme: kvantil se statisticky neliší od φ.")
}

func TestWaldDecisionMatchesPValue(t *testing.T) {
	for _, est := range []float64{1.0, 1.5, 1.6, 1.618, 1.65, 1.8, 2.5} {
		for _, se := range []float64{0.01, 0.05, 0.1, 0.5} {
			w := WaldTest(est, se, Phi, DefaultAlpha)
			assert.Equal(t, w.P < 0.05, w.Significant, "est=%g se=%g", est, se)
			assert.GreaterOrEqual(t, w.P, 0.0)
			assert.LessOrEqual(t, w.P, 1.0)
		}
	}
}
