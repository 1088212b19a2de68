package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"gscconsolidate/internal/dataprocessing"
	"gscconsolidate/pkg/contracts/domain"
)

// SheetName is the name of the single worksheet in consolidated workbooks
const SheetName = "Données consolidées"

// DataRowHeight shows about three list entries per row before scrolling
const DataRowHeight = 60.0

// ExcelWriter writes consolidated tables as styled XLSX workbooks
type ExcelWriter struct {
	sheet     string
	rowHeight float64
}

// NewExcelWriter creates a writer with the default sheet name and row height
func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{sheet: SheetName, rowHeight: DataRowHeight}
}

// Format implements Writer
func (w *ExcelWriter) Format() domain.OutputFormat {
	return domain.OutputFormatExcel
}

// WriteConsolidated writes rows to a new workbook. List cells wrap and align
// to the top, data rows get a fixed height, and each column is sized to its
// widest first line.
func (w *ExcelWriter) WriteConsolidated(out io.Writer, rows []domain.OutputRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), w.sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("failed to create wrap style: %w", err)
	}

	columns := make([][]string, len(domain.OutputColumns))
	for c, header := range domain.OutputColumns {
		if err := w.setCell(f, c+1, 1, header); err != nil {
			return err
		}
		columns[c] = append(columns[c], header)
	}

	for i, row := range rows {
		r := i + 2
		record := dataprocessing.Record(row)
		values := []interface{}{
			row.Page,
			row.Keywords,
			row.KeywordCount,
			row.Clicks,
			row.TotalClicks,
			row.Impressions,
			row.TotalImpressions,
		}

		for c, v := range values {
			if err := w.setCell(f, c+1, r, v); err != nil {
				return err
			}
			columns[c] = append(columns[c], record[c])

			if isMultiline(record[c]) {
				cell, _ := excelize.CoordinatesToCellName(c+1, r)
				if err := f.SetCellStyle(w.sheet, cell, cell, wrapStyle); err != nil {
					return fmt.Errorf("failed to style %s: %w", cell, err)
				}
			}
		}

		if err := f.SetRowHeight(w.sheet, r, w.rowHeight); err != nil {
			return fmt.Errorf("failed to set height of row %d: %w", r, err)
		}
	}

	for c, cells := range columns {
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(w.sheet, name, name, columnWidth(cells)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (w *ExcelWriter) setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(w.sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", cell, err)
	}
	return nil
}
