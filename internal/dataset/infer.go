package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseOptions controls how raw cells are interpreted.
type ParseOptions struct {
	// DecimalSeparator; if 0, auto-detect per value.
	DecimalSeparator rune
	// ThousandsSeparator; if 0, auto-detect common separators (',' '.' space).
	ThousandsSeparator rune
}

// CellParser turns the raw cells of one column into a typed column. It reports
// false when any non-empty cell does not fit, leaving the column for the next
// parser in the chain.
type CellParser interface {
	Parse(name string, cells []string) (*Column, bool)
}

// Chain is an ordered list of parsers; the first that succeeds wins.
type Chain []CellParser

// DefaultChain tries numeric, then datetime, then percent strings.
func DefaultChain(opt ParseOptions) Chain {
	return Chain{numericParser{opt: opt}, datetimeParser{}, percentParser{opt: opt}}
}

// Infer runs the chain over the cells and falls back to text. The returned
// warning is non-empty when a column looked like percentages but could not be
// converted.
func (ch Chain) Infer(name string, cells []string) (*Column, string) {
	for _, p := range ch {
		if col, ok := p.Parse(name, cells); ok {
			return col, ""
		}
	}
	var warn string
	if hasPercentCell(cells) {
		warn = fmt.Sprintf("column %q contains %% values but not all cells are numeric; kept as text", name)
	}
	vals := make([]string, len(cells))
	for i, s := range cells {
		vals[i] = strings.TrimSpace(s)
	}
	return NewText(name, vals), warn
}

type numericParser struct{ opt ParseOptions }

func (p numericParser) Parse(name string, cells []string) (*Column, bool) {
	vals := make([]float64, len(cells))
	for i, s := range cells {
		s = strings.TrimSpace(s)
		if s == "" {
			vals[i] = math.NaN()
			continue
		}
		x, ok := parseNumeric(s, p.opt)
		if !ok {
			return nil, false
		}
		vals[i] = x
	}
	return NewNumeric(name, vals), true
}

type datetimeParser struct{}

func (datetimeParser) Parse(name string, cells []string) (*Column, bool) {
	vals := make([]time.Time, len(cells))
	miss := make([]bool, len(cells))
	seen := false
	for i, s := range cells {
		s = strings.TrimSpace(s)
		if s == "" {
			miss[i] = true
			continue
		}
		t, ok := parseTimeMaybe(s)
		if !ok {
			return nil, false
		}
		vals[i] = t
		seen = true
	}
	if !seen {
		return nil, false
	}
	return NewDatetime(name, vals, miss), true
}

// percentParser strips '%' and keeps the literal number: "4.53%" becomes 4.53,
// not 0.0453.
type percentParser struct{ opt ParseOptions }

func (p percentParser) Parse(name string, cells []string) (*Column, bool) {
	if !hasPercentCell(cells) {
		return nil, false
	}
	vals := make([]float64, len(cells))
	for i, s := range cells {
		s = strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
		if s == "" {
			vals[i] = math.NaN()
			continue
		}
		x, ok := parseNumeric(s, p.opt)
		if !ok {
			return nil, false
		}
		vals[i] = x
	}
	return NewNumeric(name, vals), true
}

func hasPercentCell(cells []string) bool {
	for _, s := range cells {
		if strings.HasSuffix(strings.TrimSpace(s), "%") {
			return true
		}
	}
	return false
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006", "2.1.2006", "02.01.2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string, opt ParseOptions) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	// strconv accepts "inf", "nan" and hex floats; spreadsheet text does not mean those
	for _, r := range raw {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			if r != 'e' && r != 'E' {
				return 0, false
			}
		}
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
