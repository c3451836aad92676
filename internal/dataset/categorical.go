package dataset

import (
	"sort"
	"strconv"
	"time"
)

// AsCategorical converts the named column in place. Categories are the
// distinct non-missing values in natural order: numbers ascending, times
// ascending, text by byte-wise comparison. Converting an already categorical
// column is a no-op.
func (d *Dataset) AsCategorical(name string) error {
	c, ok := d.Column(name)
	if !ok {
		return &MissingColumnError{Column: name, Available: d.Names()}
	}
	c.toCategorical()
	return nil
}

func (c *Column) toCategorical() {
	if c.Kind == KindCategorical {
		return
	}
	n := c.Len()
	labels := make([]string, n)
	var cats []string
	switch c.Kind {
	case KindNumeric:
		seen := map[float64]struct{}{}
		var vals []float64
		for i, v := range c.Num {
			if c.Missing[i] {
				continue
			}
			if v == 0 {
				// -0 and 0 are one category
				v = 0
			}
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				vals = append(vals, v)
			}
			labels[i] = formatNumber(v)
		}
		sort.Float64s(vals)
		for _, v := range vals {
			cats = append(cats, formatNumber(v))
		}
	case KindDatetime:
		seen := map[int64]struct{}{}
		var vals []time.Time
		for i, t := range c.Time {
			if c.Missing[i] {
				continue
			}
			if _, ok := seen[t.UnixNano()]; !ok {
				seen[t.UnixNano()] = struct{}{}
				vals = append(vals, t)
			}
			labels[i] = formatTime(t)
		}
		sort.Slice(vals, func(i, j int) bool { return vals[i].Before(vals[j]) })
		for _, t := range vals {
			cats = append(cats, formatTime(t))
		}
	default:
		seen := map[string]struct{}{}
		for i, s := range c.Str {
			if c.Missing[i] {
				continue
			}
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				cats = append(cats, s)
			}
			labels[i] = s
		}
		sort.Strings(cats)
	}
	pos := make(map[string]int, len(cats))
	for i, s := range cats {
		pos[s] = i
	}
	codes := make([]int, n)
	for i := range codes {
		if c.Missing[i] {
			codes[i] = -1
			continue
		}
		codes[i] = pos[labels[i]]
	}
	c.Kind = KindCategorical
	c.Str = labels
	c.Num = nil
	c.Time = nil
	c.Categories = cats
	c.Codes = codes
}

// Levels returns the category labels of a categorical column, or nil.
func (c *Column) Levels() []string {
	if c.Kind != KindCategorical {
		return nil
	}
	return c.Categories
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
