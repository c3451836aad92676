// Package render draws chart records produced by the analyses into PNG and
// HTML artifacts. Records are plain values; building them never touches disk.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/KaramelBytes/ratiostat-cli/internal/utils"
)

// Image geometry of every PNG artifact.
const (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
	DPI    = 200
)

// Series is one line of a category chart. Values align with the chart's
// categories; NaN leaves a gap.
type Series struct {
	Label  string
	Values []float64
}

// QuantileChart is the predicted value of each category for several quantile
// levels, drawn against a horizontal reference line.
type QuantileChart struct {
	Title      string
	XLabel     string
	YLabel     string
	Categories []string
	Series     []Series
	Reference  float64
	RefLabel   string
}

// Plot builds the gonum plot for the chart.
func (c QuantileChart) Plot() (*plot.Plot, error) {
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("chart %q has no categories", c.Title)
	}
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, s := range c.Series {
		pts := make(plotter.XYs, 0, len(s.Values))
		for k, v := range s.Values {
			if k >= len(c.Categories) || math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(k), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Label, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		points.Color = plotutil.Color(i)
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(3)
		p.Add(line, points)
		p.Legend.Add(s.Label, line, points)
	}

	n := float64(len(c.Categories))
	ref, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: c.Reference}, {X: n - 0.5, Y: c.Reference}})
	if err != nil {
		return nil, err
	}
	ref.Color = color.Gray{Y: 96}
	ref.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(ref)
	if c.RefLabel != "" {
		p.Legend.Add(c.RefLabel, ref)
	}
	p.NominalX(c.Categories...)
	p.X.Min = -0.5
	p.X.Max = n - 0.5
	return p, nil
}

// PNG renders the chart at the fixed artifact size.
func (c QuantileChart) PNG() ([]byte, error) {
	p, err := c.Plot()
	if err != nil {
		return nil, err
	}
	return encodePNG(p)
}

// WritePNG renders the chart and writes it atomically to path.
func WritePNG(c QuantileChart, path string) error {
	b, err := c.PNG()
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}

func encodePNG(p *plot.Plot) ([]byte, error) {
	img := vgimg.NewWith(vgimg.UseWH(Width, Height), vgimg.UseDPI(DPI))
	p.Draw(draw.New(img))
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
