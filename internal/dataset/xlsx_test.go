package dataset

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeXLSX builds a minimal workbook with one sheet per entry, using inline
// string cells for text and plain <v> cells for anything that parses as a number.
func writeXLSX(t *testing.T, path string, sheets map[string][][]string, order ...string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)

	var wb, rels strings.Builder
	wb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>`)
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for i, name := range order {
		id := i + 1
		fmt.Fprintf(&wb, `<sheet name="%s" sheetId="%d" r:id="rId%d"/>`, name, id, id)
		// leading slash exercises normalizeRelPath
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="worksheet" Target="/xl/worksheets/sheet%d.xml"/>`, id, id)

		var sb strings.Builder
		sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`)
		for r, row := range sheets[name] {
			fmt.Fprintf(&sb, `<row r="%d">`, r+1)
			for c, cell := range row {
				if cell == "" {
					continue
				}
				ref := fmt.Sprintf("%c%d", 'A'+c, r+1)
				if _, ok := parseNumeric(cell, ParseOptions{DecimalSeparator: '.'}); ok && !strings.Contains(cell, ",") {
					fmt.Fprintf(&sb, `<c r="%s"><v>%s</v></c>`, ref, cell)
				} else {
					fmt.Fprintf(&sb, `<c r="%s" t="inlineStr"><is><t>%s</t></is></c>`, ref, cell)
				}
			}
			sb.WriteString(`</row>`)
		}
		sb.WriteString(`</sheetData></worksheet>`)
		w, err := zw.Create(fmt.Sprintf("xl/worksheets/sheet%d.xml", id))
		require.NoError(t, err)
		_, err = w.Write([]byte(sb.String()))
		require.NoError(t, err)
	}
	wb.WriteString(`</sheets></workbook>`)
	rels.WriteString(`</Relationships>`)
	for name, body := range map[string]string{"xl/workbook.xml": wb.String(), "xl/_rels/workbook.xml.rels": rels.String()} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

const (
	xmlHead  = `<?xml version="1.0" encoding="UTF-8"?>`
	nsMain   = `xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"`
	nsRel    = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	nsPkgRel = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
)

// writeXLSXParts zips raw parts as given, for workbooks writeXLSX cannot express.
func writeXLSXParts(t *testing.T, path string, parts map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(xmlHead + body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// styledWorkbook has one sheet whose cells are given as raw <row> elements and
// a styles part with: xf 1 built-in date 14, xf 2 custom date-time, xf 3 custom
// number with a quoted unit, xf 4 thousands grouping.
func styledWorkbook(t *testing.T, path, workbookPr, rows string) {
	t.Helper()
	writeXLSXParts(t, path, map[string]string{
		"xl/workbook.xml": `<workbook ` + nsMain + ` ` + nsRel + `>` + workbookPr +
			`<sheets><sheet name="Data" sheetId="1" r:id="rId1"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<Relationships ` + nsPkgRel + `>` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>` +
			`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
			`</Relationships>`,
		"xl/styles.xml": `<styleSheet ` + nsMain + `>` +
			`<numFmts count="2"><numFmt numFmtId="164" formatCode="d.m.yyyy h:mm"/><numFmt numFmtId="165" formatCode="0.00 &quot;ks&quot;"/></numFmts>` +
			`<cellXfs count="5"><xf numFmtId="0"/><xf numFmtId="14"/><xf numFmtId="164"/><xf numFmtId="165"/><xf numFmtId="3"/></cellXfs>` +
			`</styleSheet>`,
		"xl/worksheets/sheet1.xml": `<worksheet ` + nsMain + `><sheetData>` + rows + `</sheetData></worksheet>`,
	})
}

func TestLoadXLSXPercentColumnKeepsLiteralNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	writeXLSX(t, path, map[string][][]string{
		"Data": {
			{"poměr", "výnos", "věk"},
			{"1.5", "4.53%", "young"},
			{"1.7", "12%", "old"},
			{"", "0.5%", "old"},
		},
	}, "Data")

	ds, err := Load(path, FormatStructuredCSV, LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, ds.Rows())

	c, err := ds.Numeric("výnos")
	require.NoError(t, err)
	assert.Equal(t, []float64{4.53, 12, 0.5}, c.Num)

	ratio, err := ds.Numeric("poměr")
	require.NoError(t, err)
	assert.True(t, ratio.IsMissing(2))

	age, ok := ds.Column("věk")
	require.True(t, ok)
	assert.Equal(t, KindText, age.Kind)
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.xlsx")
	writeXLSX(t, path, map[string][][]string{
		"First":  {{"a"}, {"1"}},
		"Second": {{"b", "c"}, {"2", "x"}, {"3", "y"}},
	}, "First", "Second")

	ds, err := Load(path, FormatXLSX, LoadOptions{SheetName: "second"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ds.Names())
	assert.Equal(t, 2, ds.Rows())

	ds, err = Load(path, FormatXLSX, LoadOptions{SheetIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ds.Names())

	ds, err = Load(path, FormatXLSX, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ds.Names())

	_, err = Load(path, FormatXLSX, LoadOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available sheets: First, Second")
}

func TestXLSXRelationshipPathNormalization(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"styles.xml", "xl/styles.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizeRelPath(tt.input), tt.input)
	}
}

func TestColIndexFromRef(t *testing.T) {
	assert.Equal(t, 0, colIndexFromRef("A1"))
	assert.Equal(t, 2, colIndexFromRef("C12"))
	assert.Equal(t, 26, colIndexFromRef("AA3"))
	assert.Equal(t, -1, colIndexFromRef(""))
}

func TestLoadXLSXDateStyledCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.xlsx")
	styledWorkbook(t, path, "", `<row r="1">`+
		`<c r="A1" t="inlineStr"><is><t>datum</t></is></c>`+
		`<c r="B1" t="inlineStr"><is><t>čas</t></is></c>`+
		`<c r="C1" t="inlineStr"><is><t>počet</t></is></c>`+
		`<c r="D1" t="inlineStr"><is><t>cena</t></is></c>`+
		`</row><row r="2">`+
		`<c r="A2" s="1"><v>45123</v></c><c r="B2" s="2"><v>45123.5</v></c><c r="C2" s="3"><v>12</v></c><c r="D2" s="4"><v>1500</v></c>`+
		`</row><row r="3">`+
		`<c r="A3" s="1"><v>45124</v></c><c r="B3" s="2"><v>45124.25</v></c><c r="C3" s="3"><v>7.5</v></c><c r="D3" s="4"><v>2500</v></c>`+
		`</row>`)

	ds, err := Load(path, FormatXLSX, LoadOptions{})
	require.NoError(t, err)

	day, ok := ds.Column("datum")
	require.True(t, ok)
	require.Equal(t, KindDatetime, day.Kind)
	assert.Equal(t, time.Date(2023, 7, 16, 0, 0, 0, 0, time.UTC), day.Time[0])
	assert.Equal(t, time.Date(2023, 7, 17, 0, 0, 0, 0, time.UTC), day.Time[1])

	stamp, ok := ds.Column("čas")
	require.True(t, ok)
	require.Equal(t, KindDatetime, stamp.Kind)
	assert.Equal(t, time.Date(2023, 7, 16, 12, 0, 0, 0, time.UTC), stamp.Time[0])
	assert.Equal(t, time.Date(2023, 7, 17, 6, 0, 0, 0, time.UTC), stamp.Time[1])

	count, err := ds.Numeric("počet")
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 7.5}, count.Num)

	price, err := ds.Numeric("cena")
	require.NoError(t, err)
	assert.Equal(t, []float64{1500, 2500}, price.Num)
}

func TestLoadXLSXDate1904System(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mac.xlsx")
	styledWorkbook(t, path, `<workbookPr date1904="1"/>`,
		`<row r="1"><c r="A1" t="inlineStr"><is><t>datum</t></is></c></row>`+
			`<row r="2"><c r="A2" s="1"><v>0</v></c></row>`+
			`<row r="3"><c r="A3" s="1"><v>43661</v></c></row>`)

	ds, err := Load(path, FormatXLSX, LoadOptions{})
	require.NoError(t, err)
	day, ok := ds.Column("datum")
	require.True(t, ok)
	require.Equal(t, KindDatetime, day.Kind)
	assert.Equal(t, time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC), day.Time[0])
	assert.Equal(t, time.Date(2023, 7, 16, 0, 0, 0, 0, time.UTC), day.Time[1])
}

func TestIsDateFormatCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"d.m.yyyy", true},
		{"[$-405]d\\.mmmm\\ yyyy", true},
		{"[h]:mm:ss", true},
		{"hh:mm", true},
		{"0.00", false},
		{"#,##0 \"Kč\"", false},
		{"[Red]0.00", false},
		{"0.00E+00", false},
		{"General", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isDateFormatCode(tt.code), tt.code)
	}
}

func TestLoadXLSXSheetIndexFollowsTabOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reordered.xlsx")
	sheet := func(header string) string {
		return `<worksheet ` + nsMain + `><sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>` + header +
			`</t></is></c></row><row r="2"><c r="A2"><v>1</v></c></row></sheetData></worksheet>`
	}
	// the tab listed first carries the larger sheetId, as after moving sheets around
	writeXLSXParts(t, path, map[string]string{
		"xl/workbook.xml": `<workbook ` + nsMain + ` ` + nsRel + `><sheets>` +
			`<sheet name="Vpředu" sheetId="3" r:id="rId3"/>` +
			`<sheet name="Vzadu" sheetId="1" r:id="rId1"/>` +
			`</sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<Relationships ` + nsPkgRel + `>` +
			`<Relationship Id="rId1" Target="worksheets/sheet1.xml"/>` +
			`<Relationship Id="rId3" Target="worksheets/sheet3.xml"/>` +
			`</Relationships>`,
		"xl/worksheets/sheet1.xml": sheet("vzadu"),
		"xl/worksheets/sheet3.xml": sheet("vpředu"),
	})

	ds, err := Load(path, FormatXLSX, LoadOptions{SheetIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"vpředu"}, ds.Names())

	ds, err = Load(path, FormatXLSX, LoadOptions{SheetIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"vzadu"}, ds.Names())

	_, err = Load(path, FormatXLSX, LoadOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}
