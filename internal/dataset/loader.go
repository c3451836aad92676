package dataset

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Input formats understood by Load.
const (
	FormatStructuredCSV = "structured_csv"
	FormatXLSX          = "xlsx"
	FormatCSV           = "csv"
)

// LoadOptions tunes the readers and the type inference.
type LoadOptions struct {
	// XLSX: sheet name, or 1-based index when the name is empty.
	SheetName  string
	SheetIndex int
	// CSV delimiter. If 0, sniffed from the header line.
	Delimiter rune
	Parse     ParseOptions
}

// RowReader reads a tabular file into raw rows of cell text, header first.
type RowReader interface {
	CanRead(path string) bool
	ReadRows(path string, opt LoadOptions) ([][]string, error)
}

var formats = map[string][]RowReader{}

// Register makes readers available under a format name. Readers are tried in
// registration order and the first whose CanRead accepts the path is used.
func Register(format string, readers ...RowReader) {
	formats[format] = append(formats[format], readers...)
}

func init() {
	Register(FormatStructuredCSV, xlsxReader{}, csvReader{})
	Register(FormatXLSX, xlsxReader{})
	Register(FormatCSV, csvReader{})
}

// SupportedFormats lists registered format names, sorted.
func SupportedFormats() []string {
	out := make([]string, 0, len(formats))
	for f := range formats {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Load reads path in the given format and infers column types with the default
// parser chain. Unknown formats yield *UnsupportedFormatError.
func Load(path, format string, opt LoadOptions) (*Dataset, error) {
	readers, ok := formats[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, &UnsupportedFormatError{Format: format, Supported: SupportedFormats()}
	}
	var rr RowReader
	for _, r := range readers {
		if r.CanRead(path) {
			rr = r
			break
		}
	}
	if rr == nil {
		return nil, fmt.Errorf("format %s cannot read %s: unrecognized file extension", format, filepath.Base(path))
	}
	rows, err := rr.ReadRows(path, opt)
	if err != nil {
		return nil, err
	}
	return FromRows(filepath.Base(path), rows, DefaultChain(opt.Parse))
}

// FromRows builds a dataset from raw rows (header first), inferring every
// column with the chain. Short rows are padded with empty cells.
func FromRows(name string, rows [][]string, chain Chain) (*Dataset, error) {
	if len(rows) == 0 {
		return New(name)
	}
	header := uniqueHeader(rows[0])
	ncol := len(header)
	body := rows[1:]
	cols := make([]*Column, 0, ncol)
	var warnings []string
	for j := 0; j < ncol; j++ {
		cells := make([]string, len(body))
		for i, row := range body {
			if j < len(row) {
				cells[i] = row[j]
			}
		}
		col, warn := chain.Infer(header[j], cells)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		cols = append(cols, col)
	}
	for i, row := range body {
		if len(row) > ncol {
			warnings = append(warnings, fmt.Sprintf("row %d has %d cells, header has %d; extra cells ignored", i+2, len(row), ncol))
		}
	}
	ds, err := New(name, cols...)
	if err != nil {
		return nil, err
	}
	ds.Warnings = warnings
	return ds, nil
}

// uniqueHeader trims names, fills blanks with "Unnamed: i" and suffixes
// repeated names with ".1", ".2", ...
func uniqueHeader(raw []string) []string {
	out := make([]string, len(raw))
	seen := map[string]int{}
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		n, dup := seen[name]
		seen[name] = n + 1
		if dup {
			name = fmt.Sprintf("%s.%d", name, n)
		}
		out[i] = name
	}
	return out
}
