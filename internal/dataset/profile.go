package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/stat"
)

// OutlierThreshold is the robust |z| above which a value counts as an outlier.
const OutlierThreshold = 3.5

// Profile is a markdown-friendly description of a dataset.
type Profile struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Corr     *CorrMatrix
	Warnings []string
}

// ColumnSummary captures the kind and statistics of one column.
type ColumnSummary struct {
	Name    string
	Kind    Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min    float64
	Max    float64
	Mean   float64
	Std    float64
	Median float64
	// Outliers (robust Z via MAD)
	OutliersCount   int
	OutliersMaxAbsZ float64
	// Categorical and text top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64
}

// NewProfile summarizes every column of d and the pairwise correlations of its
// numeric columns. sampleRows limits the head rows shown (default 5).
func NewProfile(d *Dataset, sampleRows int) *Profile {
	if sampleRows <= 0 {
		sampleRows = 5
	}
	p := &Profile{Name: d.Name, Rows: d.Rows(), Warnings: append([]string(nil), d.Warnings...)}
	for _, c := range d.Columns {
		p.Cols = append(p.Cols, summarize(c))
	}
	for i := 0; i < d.Rows() && i < sampleRows; i++ {
		row := make([]string, len(d.Columns))
		for j, c := range d.Columns {
			row[j] = c.Label(i)
		}
		p.Samples = append(p.Samples, row)
	}
	p.Corr = correlations(d)
	return p
}

func summarize(c *Column) ColumnSummary {
	s := ColumnSummary{Name: c.Name, Kind: c.Kind}
	for i := 0; i < c.Len(); i++ {
		if c.Missing[i] {
			s.Missing++
		} else {
			s.NonNull++
		}
	}
	if c.Kind == KindNumeric {
		vals := Present(c)
		if len(vals) == 0 {
			return s
		}
		sort.Float64s(vals)
		s.Min, s.Max = vals[0], vals[len(vals)-1]
		s.Mean, s.Std = stat.MeanStdDev(vals, nil)
		if len(vals) < 2 {
			s.Std = 0
		}
		med, mad := medianMAD(vals)
		s.Median = med
		if mad > 0 {
			for _, v := range vals {
				// 0.6745 scales MAD to sigma for normal data
				z := math.Abs(0.6745 * (v - med) / mad)
				if z > OutlierThreshold {
					s.OutliersCount++
				}
				if z > s.OutliersMaxAbsZ {
					s.OutliersMaxAbsZ = z
				}
			}
		}
		s.Unique = countUnique(vals)
		return s
	}
	counts := map[string]int{}
	for i := 0; i < c.Len(); i++ {
		if !c.Missing[i] {
			counts[c.Label(i)]++
		}
	}
	s.Unique = len(counts)
	for v, n := range counts {
		s.TopValues = append(s.TopValues, CategoryCount{Value: v, Count: n})
	}
	sort.Slice(s.TopValues, func(i, j int) bool {
		if s.TopValues[i].Count == s.TopValues[j].Count {
			return s.TopValues[i].Value < s.TopValues[j].Value
		}
		return s.TopValues[i].Count > s.TopValues[j].Count
	})
	if len(s.TopValues) > 5 {
		s.TopValues = s.TopValues[:5]
	}
	return s
}

// Present returns the non-missing values of a numeric column.
func Present(c *Column) []float64 {
	out := make([]float64, 0, len(c.Num))
	for i, v := range c.Num {
		if !c.Missing[i] {
			out = append(out, v)
		}
	}
	return out
}

func countUnique(sorted []float64) int {
	n := 0
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			n++
		}
	}
	return n
}

// correlations uses pairwise-complete rows for every pair of numeric columns.
func correlations(d *Dataset) *CorrMatrix {
	names := d.NumericColumns()
	if len(names) < 2 {
		return nil
	}
	cols := make([]*Column, len(names))
	for i, n := range names {
		cols[i], _ = d.Column(n)
	}
	m := &CorrMatrix{Columns: names, Values: make([][]float64, len(names))}
	for i := range names {
		m.Values[i] = make([]float64, len(names))
		m.Values[i][i] = 1
	}
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			var x, y []float64
			for k := 0; k < d.Rows(); k++ {
				if cols[i].Missing[k] || cols[j].Missing[k] {
					continue
				}
				x = append(x, cols[i].Num[k])
				y = append(y, cols[j].Num[k])
			}
			r := math.NaN()
			if len(x) >= 2 {
				r = stat.Correlation(x, y, nil)
			}
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

// Markdown renders the profile with bracketed section headers.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %s\n", humanize.Comma(int64(p.Rows))))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(p.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %s, missing %.1f%%)", safeName(c.Name), c.Kind, humanize.Comma(int64(c.NonNull)), missPct))
		switch c.Kind {
		case KindNumeric:
			if c.NonNull > 0 {
				b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, median %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Median, c.Std))
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		default:
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}
	if p.Corr != nil {
		b.WriteString("\n[CORRELATIONS]\n")
		type pair struct {
			A, B string
			R    float64
		}
		var pairs []pair
		n := len(p.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if r := p.Corr.Values[i][j]; !math.IsNaN(r) {
					pairs = append(pairs, pair{A: p.Corr.Columns[i], B: p.Corr.Columns[j], R: r})
				}
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		if len(pairs) > 10 {
			pairs = pairs[:10]
		}
		for _, pr := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", pr.A, pr.B, pr.R))
		}
	}
	if len(p.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		tbl := table.NewWriter()
		header := make(table.Row, len(p.Cols))
		for i, c := range p.Cols {
			header[i] = safeName(c.Name)
		}
		tbl.AppendHeader(header)
		for _, row := range p.Samples {
			r := make(table.Row, len(row))
			for i, val := range row {
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				r[i] = strings.ReplaceAll(val, "\n", " ")
			}
			tbl.AppendRow(r)
		}
		b.WriteString(tbl.RenderMarkdown())
		b.WriteString("\n")
	}
	if len(p.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range p.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of sorted values.
func medianMAD(sorted []float64) (median, mad float64) {
	if len(sorted) == 0 {
		return 0, 0
	}
	median = Quantile(sorted, 0.5)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = Quantile(dev, 0.5)
	return
}

// Quantile returns the q-quantile of sorted values with linear interpolation
// between order statistics.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
