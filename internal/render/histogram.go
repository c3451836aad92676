package render

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"

	"github.com/KaramelBytes/ratiostat-cli/internal/utils"
)

// Histogram is the distribution of one numeric column.
type Histogram struct {
	Title  string
	XLabel string
	Values []float64
	// Bins; if <= 0, Sturges' rule.
	Bins int
}

// Plot builds the gonum plot for the histogram. NaN values are ignored.
func (h Histogram) Plot() (*plot.Plot, error) {
	vals := make(plotter.Values, 0, len(h.Values))
	for _, v := range h.Values {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("histogram %q: no values", h.Title)
	}
	bins := h.Bins
	if bins <= 0 {
		bins = int(math.Ceil(math.Log2(float64(len(vals))))) + 1
	}
	p := plot.New()
	p.Title.Text = h.Title
	p.X.Label.Text = h.XLabel
	p.Y.Label.Text = "četnost"
	p.Add(plotter.NewGrid())
	hist, err := plotter.NewHist(vals, bins)
	if err != nil {
		return nil, fmt.Errorf("histogram %q: %w", h.Title, err)
	}
	hist.FillColor = plotutil.Color(0)
	p.Add(hist)
	return p, nil
}

// WriteHistogramPNG renders the histogram and writes it atomically to path.
func WriteHistogramPNG(h Histogram, path string) error {
	p, err := h.Plot()
	if err != nil {
		return err
	}
	b, err := encodePNG(p)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}
