// Package dataset holds the in-memory table the analyses run on, together with
// the loaders that build it from spreadsheet files.
package dataset

import (
	"fmt"
	"math"
	"time"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindDatetime
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDatetime:
		return "datetime"
	case KindCategorical:
		return "categorical"
	default:
		return "text"
	}
}

// Column is one named, typed column. Exactly one of Num, Time or Str carries
// the values, depending on Kind; Missing marks absent cells for every kind.
type Column struct {
	Name    string
	Kind    Kind
	Num     []float64   // numeric; NaN when missing
	Time    []time.Time // datetime
	Str     []string    // text and categorical labels
	Missing []bool

	// Set once the column is categorical.
	Categories []string
	Codes      []int // index into Categories, -1 when missing
}

// NewNumeric builds a numeric column. NaN values are treated as missing.
func NewNumeric(name string, vals []float64) *Column {
	miss := make([]bool, len(vals))
	for i, v := range vals {
		miss[i] = math.IsNaN(v)
	}
	return &Column{Name: name, Kind: KindNumeric, Num: vals, Missing: miss}
}

// NewText builds a text column. Empty strings are treated as missing.
func NewText(name string, vals []string) *Column {
	miss := make([]bool, len(vals))
	for i, v := range vals {
		miss[i] = v == ""
	}
	return &Column{Name: name, Kind: KindText, Str: vals, Missing: miss}
}

// NewDatetime builds a datetime column. A nil missing slice means no value is missing.
func NewDatetime(name string, vals []time.Time, missing []bool) *Column {
	if missing == nil {
		missing = make([]bool, len(vals))
	}
	return &Column{Name: name, Kind: KindDatetime, Time: vals, Missing: missing}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int { return len(c.Missing) }

// IsMissing reports whether row i has no value.
func (c *Column) IsMissing(i int) bool { return c.Missing[i] }

// Label renders row i as text, the way it is shown in reports.
func (c *Column) Label(i int) string {
	if c.Missing[i] {
		return ""
	}
	switch c.Kind {
	case KindNumeric:
		return formatNumber(c.Num[i])
	case KindDatetime:
		return formatTime(c.Time[i])
	default:
		return c.Str[i]
	}
}

func (c *Column) clone() *Column {
	cp := &Column{Name: c.Name, Kind: c.Kind}
	if c.Num != nil {
		cp.Num = append([]float64(nil), c.Num...)
	}
	if c.Time != nil {
		cp.Time = append([]time.Time(nil), c.Time...)
	}
	if c.Str != nil {
		cp.Str = append([]string(nil), c.Str...)
	}
	cp.Missing = append([]bool(nil), c.Missing...)
	if c.Categories != nil {
		cp.Categories = append([]string(nil), c.Categories...)
	}
	if c.Codes != nil {
		cp.Codes = append([]int(nil), c.Codes...)
	}
	return cp
}

// Dataset is an ordered set of equally long columns.
type Dataset struct {
	Name     string
	Columns  []*Column
	Warnings []string

	index map[string]int
	rows  int
}

// New assembles a dataset and checks that all columns share the same row count.
func New(name string, cols ...*Column) (*Dataset, error) {
	d := &Dataset{Name: name, Columns: cols}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the row-count invariant and rebuilds the name index.
func (d *Dataset) Validate() error {
	d.index = make(map[string]int, len(d.Columns))
	d.rows = 0
	for i, c := range d.Columns {
		if i == 0 {
			d.rows = c.Len()
		} else if c.Len() != d.rows {
			return fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), d.rows)
		}
		if _, dup := d.index[c.Name]; dup {
			return fmt.Errorf("duplicate column name %q", c.Name)
		}
		d.index[c.Name] = i
	}
	return nil
}

// Rows returns the shared row count.
func (d *Dataset) Rows() int { return d.rows }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks a column up by its exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.Columns[i], true
}

// Require returns a *MissingColumnError for the first name that is not present.
func (d *Dataset) Require(names ...string) error {
	for _, n := range names {
		if _, ok := d.index[n]; !ok {
			return &MissingColumnError{Column: n, Available: d.Names()}
		}
	}
	return nil
}

// Numeric returns the named column if it exists and is numeric.
func (d *Dataset) Numeric(name string) (*Column, error) {
	c, ok := d.Column(name)
	if !ok {
		return nil, &MissingColumnError{Column: name, Available: d.Names()}
	}
	if c.Kind != KindNumeric {
		return nil, &ColumnKindError{Column: name, Want: KindNumeric, Got: c.Kind}
	}
	return c, nil
}

// NumericColumns lists the names of all numeric columns in order.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range d.Columns {
		if c.Kind == KindNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Clone returns a deep copy; mutating the copy never affects d.
func (d *Dataset) Clone() *Dataset {
	cp := &Dataset{Name: d.Name, Warnings: append([]string(nil), d.Warnings...)}
	cp.Columns = make([]*Column, len(d.Columns))
	for i, c := range d.Columns {
		cp.Columns[i] = c.clone()
	}
	// columns were valid before the copy
	_ = cp.Validate()
	return cp
}
