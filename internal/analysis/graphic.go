package analysis

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
	"github.com/KaramelBytes/ratiostat-cli/internal/render"
	"github.com/KaramelBytes/ratiostat-cli/internal/utils"
)

// GraphicOutput lists the artifacts of the graphic analysis.
type GraphicOutput struct {
	ProfilePath    string
	HistogramPaths []string
}

// GraphicAnalysis writes the dataset profile and one histogram per selected
// numeric column. An empty selection means every numeric column.
func GraphicAnalysis(ctx context.Context, ds *dataset.Dataset, columns []string, out Output) (*GraphicOutput, error) {
	if len(columns) == 0 {
		columns = ds.NumericColumns()
	}
	for _, c := range columns {
		if _, err := ds.Numeric(c); err != nil {
			return nil, err
		}
	}
	res := &GraphicOutput{}
	var err error
	res.ProfilePath, err = out.WriteText(DirGraphic, "popis_dat.md", dataset.NewProfile(ds, 5).Markdown())
	if err != nil {
		return nil, err
	}
	for _, name := range columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col, _ := ds.Numeric(name)
		h := render.Histogram{
			Title:  fmt.Sprintf("Histogram: %s", name),
			XLabel: name,
			Values: col.Num,
		}
		path, err := out.WriteHistogram(DirGraphic, fmt.Sprintf("histogram_%s.png", utils.FileComponent(name)), h)
		if err != nil {
			out.logger().Warn("histogram skipped", "column", name, "err", err)
			continue
		}
		res.HistogramPaths = append(res.HistogramPaths, path)
	}
	return res, nil
}
