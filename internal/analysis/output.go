// Package analysis implements the analysis tasks: quantile regression with
// the golden-ratio intercept test, graphic analysis, normal distribution
// parameters, median equality and regression significance.
package analysis

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/KaramelBytes/ratiostat-cli/internal/render"
	"github.com/KaramelBytes/ratiostat-cli/internal/utils"
)

// Artifact subdirectories under the output root.
const (
	DirQuantile   = "QR"
	DirGraphic    = "GA"
	DirNormal     = "NR"
	DirMedian     = "MR"
	DirRegression = "RV"
)

// Output is where a task writes its artifacts and announces them.
type Output struct {
	Dir    string
	Stdout io.Writer
	Logger *slog.Logger
}

func (o Output) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o Output) announce(format string, args ...any) {
	if o.Stdout != nil {
		fmt.Fprintf(o.Stdout, format+"\n", args...)
	}
}

// WriteText writes a text artifact and prints the confirmation line.
func (o Output) WriteText(sub, name, content string) (string, error) {
	path, err := utils.ArtifactPath(o.Dir, sub, name)
	if err != nil {
		return "", err
	}
	if err := utils.SafeWriteFile(path, []byte(content)); err != nil {
		return "", err
	}
	o.announce("✓ Textový výstup uložen: %s", path)
	return path, nil
}

// WriteChart renders a quantile chart to PNG and prints the confirmation line.
func (o Output) WriteChart(sub, name string, c render.QuantileChart) (string, error) {
	path, err := utils.ArtifactPath(o.Dir, sub, name)
	if err != nil {
		return "", err
	}
	if err := render.WritePNG(c, path); err != nil {
		return "", err
	}
	o.announce("✓ Graf uložen: %s", path)
	return path, nil
}

// WriteChartHTML renders the interactive variant of a quantile chart.
func (o Output) WriteChartHTML(sub, name string, c render.QuantileChart) (string, error) {
	path, err := utils.ArtifactPath(o.Dir, sub, name)
	if err != nil {
		return "", err
	}
	if err := render.WriteHTML(c, path); err != nil {
		return "", err
	}
	o.announce("✓ Interaktivní graf uložen: %s", path)
	return path, nil
}

// WriteHistogram renders a histogram PNG and prints the confirmation line.
func (o Output) WriteHistogram(sub, name string, h render.Histogram) (string, error) {
	path, err := utils.ArtifactPath(o.Dir, sub, name)
	if err != nil {
		return "", err
	}
	if err := render.WriteHistogramPNG(h, path); err != nil {
		return "", err
	}
	o.announce("✓ Graf uložen: %s", path)
	return path, nil
}

func formatQuantile(q float64) string { return strconv.FormatFloat(q, 'g', -1, 64) }

// newTable returns a light table that keeps header case.
func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Header = text.FormatDefault
	return tbl
}
