package render

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChart() QuantileChart {
	return QuantileChart{
		Title:      "Kvantilová regrese: poměr podle věk",
		XLabel:     "věk",
		YLabel:     "poměr",
		Categories: []string{"old", "young"},
		Series: []Series{
			{Label: "τ = 0.25", Values: []float64{1.6, 1.2}},
			{Label: "τ = 0.5", Values: []float64{1.75, math.NaN()}},
			{Label: "τ = 0.9", Values: nil},
		},
		Reference: (1 + math.Sqrt(5)) / 2,
		RefLabel:  "φ",
	}
}

func TestWritePNGDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, WritePNG(sampleChart(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 1600, cfg.Width)
	assert.Equal(t, 1000, cfg.Height)
}

func TestPNGIsDeterministic(t *testing.T) {
	a, err := sampleChart().PNG()
	require.NoError(t, err)
	b, err := sampleChart().PNG()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestChartWithoutCategories(t *testing.T) {
	_, err := QuantileChart{Title: "empty"}.PNG()
	require.Error(t, err)
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.html")
	require.NoError(t, WriteHTML(sampleChart(), path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, "echarts")
	assert.Contains(t, s, "young")
	assert.Contains(t, s, "dashed")
}

func TestWriteHistogramPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist.png")
	h := Histogram{Title: "poměr", XLabel: "poměr", Values: []float64{1, 1.2, 1.5, math.NaN(), 1.6, 2.1}}
	require.NoError(t, WriteHistogramPNG(h, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	_, err = Histogram{Title: "x", Values: []float64{math.NaN()}}.Plot()
	require.Error(t, err)
}
