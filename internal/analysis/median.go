package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aclements/go-moremath/stats"
	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
)

// Median-equality test names.
const (
	TestMannWhitney   = "Mann-Whitney U"
	TestKruskalWallis = "Kruskal-Wallis H"
)

// GroupSummary is the sample of one group.
type GroupSummary struct {
	Label  string
	N      int
	Median float64
}

// MedianTestResult is the outcome of a median-equality test.
type MedianTestResult struct {
	Value       string
	Group       string
	Test        string
	Statistic   float64
	DF          int // Kruskal-Wallis only
	P           float64
	Alpha       float64
	Significant bool
	Groups      []GroupSummary
}

// MedianEquality tests whether the value column has equal medians across the
// groups of the group column. Two groups use the two-sided Mann-Whitney U
// test, more groups the tie-corrected Kruskal-Wallis H test.
func MedianEquality(ds *dataset.Dataset, value, group string, alpha float64) (*MedianTestResult, error) {
	if value == "" || group == "" {
		return nil, fmt.Errorf("median equality test needs both a value and a group column")
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	vcol, err := ds.Numeric(value)
	if err != nil {
		return nil, err
	}
	data := ds.Clone()
	if err := data.AsCategorical(group); err != nil {
		return nil, err
	}
	gcol, _ := data.Column(group)

	samples := make([][]float64, len(gcol.Categories))
	for i := 0; i < data.Rows(); i++ {
		if vcol.IsMissing(i) || gcol.Codes[i] < 0 {
			continue
		}
		samples[gcol.Codes[i]] = append(samples[gcol.Codes[i]], vcol.Num[i])
	}
	res := &MedianTestResult{Value: value, Group: group, Alpha: alpha}
	var nonEmpty [][]float64
	for k, s := range samples {
		if len(s) == 0 {
			continue
		}
		sorted := append([]float64(nil), s...)
		sort.Float64s(sorted)
		res.Groups = append(res.Groups, GroupSummary{Label: gcol.Categories[k], N: len(s), Median: dataset.Quantile(sorted, 0.5)})
		nonEmpty = append(nonEmpty, s)
	}
	if len(nonEmpty) < 2 {
		return nil, fmt.Errorf("column %q has %d non-empty groups, need at least 2", group, len(nonEmpty))
	}

	if len(nonEmpty) == 2 {
		res.Test = TestMannWhitney
		mw, err := stats.MannWhitneyUTest(nonEmpty[0], nonEmpty[1], stats.LocationDiffers)
		if err != nil {
			return nil, fmt.Errorf("%s test: %w", TestMannWhitney, err)
		}
		res.Statistic = mw.U
		res.P = mw.P
	} else {
		res.Test = TestKruskalWallis
		res.Statistic, res.DF = kruskalWallis(nonEmpty)
		res.P = distuv.ChiSquared{K: float64(res.DF)}.Survival(res.Statistic)
	}
	res.Significant = res.P < alpha
	return res, nil
}

// kruskalWallis returns the tie-corrected H statistic and its degrees of freedom.
func kruskalWallis(groups [][]float64) (float64, int) {
	type obs struct {
		v float64
		g int
	}
	var all []obs
	for g, s := range groups {
		for _, v := range s {
			all = append(all, obs{v, g})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].v < all[j].v })
	n := float64(len(all))
	rankSum := make([]float64, len(groups))
	var ties float64
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].v == all[i].v {
			j++
		}
		// average rank of the tied run, 1-based
		r := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			rankSum[all[k].g] += r
		}
		if t := float64(j - i); t > 1 {
			ties += t*t*t - t
		}
		i = j
	}
	var h float64
	for g, s := range groups {
		h += rankSum[g] * rankSum[g] / float64(len(s))
	}
	h = 12/(n*(n+1))*h - 3*(n+1)
	if c := 1 - ties/(n*n*n-n); c > 0 {
		h /= c
	} else {
		h = math.NaN()
	}
	return h, len(groups) - 1
}

// Text renders the test as a report.
func (r *MedianTestResult) Text() string {
	var b strings.Builder
	b.WriteString("TEST SHODY MEDIÁNŮ\n")
	b.WriteString("==================\n\n")
	fmt.Fprintf(&b, "Proměnná: %s, skupiny podle: %s\n", r.Value, r.Group)
	fmt.Fprintf(&b, "Test: %s\n\n", r.Test)

	tbl := newTable()
	tbl.AppendHeader(table.Row{"skupina", "n", "medián"})
	for _, g := range r.Groups {
		tbl.AppendRow(table.Row{g.Label, g.N, fmt.Sprintf("%.4f", g.Median)})
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n\n")

	b.WriteString("H0: mediány všech skupin jsou shodné\n")
	if r.Test == TestKruskalWallis {
		fmt.Fprintf(&b, "H = %.4f (stupně volnosti %d)\n", r.Statistic, r.DF)
	} else {
		fmt.Fprintf(&b, "U = %.4f\n", r.Statistic)
	}
	fmt.Fprintf(&b, "p-hodnota: %.4f\n", r.P)
	if r.Significant {
		fmt.Fprintf(&b, "→ H0 zamítáme na hladině %g: mediány se významně liší.\n", r.Alpha)
	} else {
		fmt.Fprintf(&b, "→ H0 nezamítáme na hladině %g: mediány se statisticky neliší.\n", r.Alpha)
	}
	return b.String()
}
