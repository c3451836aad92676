package render

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/KaramelBytes/ratiostat-cli/internal/utils"
)

// Line builds the interactive counterpart of the PNG chart.
func (c QuantileChart) Line() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "500px", PageTitle: c.Title}),
		charts.WithTitleOpts(opts.Title{Title: c.Title, Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "8%", Left: "center"}),
		charts.WithXAxisOpts(opts.XAxis{Name: c.XLabel}),
		charts.WithYAxisOpts(opts.YAxis{Name: c.YLabel, Scale: opts.Bool(true)}),
	)
	line.SetXAxis(c.Categories)
	for _, s := range c.Series {
		data := make([]opts.LineData, len(c.Categories))
		for k := range c.Categories {
			if k < len(s.Values) && !math.IsNaN(s.Values[k]) {
				data[k] = opts.LineData{Value: s.Values[k]}
			} else {
				data[k] = opts.LineData{Value: "-"}
			}
		}
		line.AddSeries(s.Label, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	}
	ref := make([]opts.LineData, len(c.Categories))
	for k := range ref {
		ref[k] = opts.LineData{Value: c.Reference}
	}
	label := c.RefLabel
	if label == "" {
		label = "reference"
	}
	line.AddSeries(label, ref,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Color: "#606060"}),
	)
	return line
}

// WriteHTML renders the interactive chart and writes it atomically to path.
func WriteHTML(c QuantileChart, path string) error {
	var buf bytes.Buffer
	if err := c.Line().Render(&buf); err != nil {
		return fmt.Errorf("render html chart: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
