package dataset

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"math"
	"strconv"
	"strings"
	"time"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".xlsx")
}

// Only the parts of SpreadsheetML the loader needs.
type (
	xlsxWorkbook struct {
		Props struct {
			Date1904 bool `xml:"date1904,attr"`
		} `xml:"workbookPr"`
		Sheets []xlsxSheetRef `xml:"sheets>sheet"`
	}
	xlsxSheetRef struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"id,attr"`
	}
	xlsxRelationships struct {
		Items []struct {
			ID     string `xml:"Id,attr"`
			Type   string `xml:"Type,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	xlsxRichText struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	}
	xlsxSharedStrings struct {
		Items []xlsxRichText `xml:"si"`
	}
	xlsxStyles struct {
		NumFmts []struct {
			ID   int    `xml:"numFmtId,attr"`
			Code string `xml:"formatCode,attr"`
		} `xml:"numFmts>numFmt"`
		CellXfs []struct {
			NumFmtID int `xml:"numFmtId,attr"`
		} `xml:"cellXfs>xf"`
	}
	xlsxWorksheet struct {
		Rows []struct {
			Cells []xlsxCell `xml:"c"`
		} `xml:"sheetData>row"`
	}
	xlsxCell struct {
		Ref    string       `xml:"r,attr"`
		Type   string       `xml:"t,attr"`
		Style  int          `xml:"s,attr"`
		Value  string       `xml:"v"`
		Inline xlsxRichText `xml:"is"`
	}
)

func (rt xlsxRichText) String() string {
	if len(rt.Runs) == 0 {
		return rt.T
	}
	var b strings.Builder
	b.WriteString(rt.T)
	for _, r := range rt.Runs {
		b.WriteString(r.T)
	}
	return b.String()
}

// ReadRows returns the raw cell text of the selected sheet, header row first.
// A sheet name wins over the 1-based SheetIndex; with neither, the first sheet is read.
func (xlsxReader) ReadRows(path string, opt LoadOptions) ([][]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	var wb xlsxWorkbook
	if err := decodePart(&zr.Reader, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels xlsxRelationships
	if err := decodePart(&zr.Reader, "xl/_rels/workbook.xml.rels", &rels); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Items))
	stylesPart := "xl/styles.xml"
	for _, r := range rels.Items {
		targets[r.ID] = normalizeRelPath(r.Target)
		if strings.HasSuffix(r.Type, "/styles") {
			stylesPart = normalizeRelPath(r.Target)
		}
	}

	part, err := sheetPart(wb.Sheets, targets, opt, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	var shared xlsxSharedStrings
	if err := decodePart(&zr.Reader, "xl/sharedStrings.xml", &shared); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	var styles xlsxStyles
	if err := decodePart(&zr.Reader, stylesPart, &styles); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	dates := styles.dateStyles()
	var ws xlsxWorksheet
	if err := decodePart(&zr.Reader, part, &ws); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(ws.Rows))
	for _, r := range ws.Rows {
		var row []string
		for _, c := range r.Cells {
			col := colIndexFromRef(c.Ref)
			if col < 0 {
				col = len(row)
			}
			for len(row) <= col {
				row = append(row, "")
			}
			row[col] = cellText(c, shared.Items)
			if (c.Type == "" || c.Type == "n") && c.Style >= 0 && c.Style < len(dates) && dates[c.Style] {
				row[col] = serialToText(row[col], wb.Props.Date1904)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sheetPart resolves the worksheet entry for the requested sheet.
func sheetPart(sheets []xlsxSheetRef, targets map[string]string, opt LoadOptions, book string) (string, error) {
	if opt.SheetName != "" {
		names := make([]string, len(sheets))
		for i, s := range sheets {
			names[i] = s.Name
			if strings.EqualFold(s.Name, opt.SheetName) {
				if t, ok := targets[s.RID]; ok {
					return t, nil
				}
			}
		}
		return "", fmt.Errorf("sheet '%s' not found in workbook '%s'; available sheets: %s",
			opt.SheetName, book, strings.Join(names, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	// position in the workbook tab order, not the sheetId attribute
	if idx <= len(sheets) {
		if t, ok := targets[sheets[idx-1].RID]; ok {
			return t, nil
		}
	} else if len(sheets) > 0 {
		return "", fmt.Errorf("sheet index %d out of range in workbook '%s'; it has %d sheets", idx, book, len(sheets))
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", idx), nil
}

func cellText(c xlsxCell, shared []xlsxRichText) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i].String()
	case "inlineStr":
		return c.Inline.String()
	case "b":
		if c.Value == "1" {
			return "TRUE"
		}
		return "FALSE"
	case "e":
		// #N/A, #DIV/0! and friends
		return ""
	default:
		return c.Value
	}
}

// dateStyles reports, per cellXfs index, whether the number format shows a
// date or time.
func (st xlsxStyles) dateStyles() []bool {
	custom := make(map[int]string, len(st.NumFmts))
	for _, f := range st.NumFmts {
		custom[f.ID] = f.Code
	}
	out := make([]bool, len(st.CellXfs))
	for i, xf := range st.CellXfs {
		if code, ok := custom[xf.NumFmtID]; ok {
			out[i] = isDateFormatCode(code)
			continue
		}
		id := xf.NumFmtID
		out[i] = (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
	}
	return out
}

// isDateFormatCode looks for date or time tokens outside quoted literals,
// escaped characters and bracketed modifiers such as [Red] or [$-405].
// Elapsed-time brackets like [h] still count.
func isDateFormatCode(code string) bool {
	quoted := false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '\\' || c == '_' || c == '*':
			i++
		case c == '[':
			end := strings.IndexByte(code[i:], ']')
			if end < 0 {
				return false
			}
			inner := strings.ToLower(code[i+1 : i+end])
			if inner != "" && strings.Trim(inner, "hms") == "" {
				return true
			}
			i += end
		default:
			switch c | 0x20 {
			case 'y', 'm', 'd', 'h', 's':
				return true
			}
		}
	}
	return false
}

// serialToText turns a spreadsheet date serial into ISO text the datetime
// parser understands. Values that are not numbers are returned unchanged.
func serialToText(v string, date1904 bool) string {
	x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
		return v
	}
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	switch {
	case date1904:
		base = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	case x < 60:
		// serials before the fictitious 1900-02-29
		base = base.AddDate(0, 0, 1)
	}
	days := math.Floor(x)
	secs := math.Round((x - days) * 86400)
	t := base.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

func decodePart(zr *zip.Reader, name string, v any) error {
	f, err := zr.Open(name)
	if err != nil {
		return fmt.Errorf("open xlsx part %s: %w", name, err)
	}
	defer f.Close()
	if err := xml.NewDecoder(f).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse xlsx part %s: %w", name, err)
	}
	return nil
}

// colIndexFromRef maps refs like "C12" to 2 (0-based); -1 when the ref is empty.
func colIndexFromRef(ref string) int {
	idx := 0
	for _, c := range ref {
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A') + 1
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a') + 1
		default:
			return idx - 1
		}
	}
	return idx - 1
}

// normalizeRelPath converts a relationship target to a ZIP entry name. Targets
// are relative to xl/ unless they start with a slash.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return "xl/" + rel
}
