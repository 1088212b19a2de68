package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"gscconsolidate/pkg/contracts/domain"
)

// SampleHeaders mirrors a French Search Console performance export
var SampleHeaders = []string{"Page", "Requête", "Clics", "Impressions"}

// SampleTable returns a small export with two pages and a repeated keyword
func SampleTable() domain.Table {
	return domain.Table{
		Headers: append([]string(nil), SampleHeaders...),
		Rows: [][]string{
			{"/a", "kw1", "5", "50"},
			{"/a", "kw2", "10", "80"},
			{"/b", "kw3", "1", "7"},
			{"/a", "kw1", "2", "20"},
		},
	}
}

// WriteFile writes content under dir and returns the full path
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// WriteXLSX writes headers and rows to the first sheet of a new workbook
func WriteXLSX(t *testing.T, dir, name string, headers []string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	writeRow := func(r int, values []string) {
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				t.Fatalf("set cell %s: %v", cell, err)
			}
		}
	}

	writeRow(1, headers)
	for i, row := range rows {
		writeRow(i+2, row)
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook %s: %v", name, err)
	}
	return path
}
