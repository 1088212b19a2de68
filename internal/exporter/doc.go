// Package exporter writes consolidated Search Console tables.
//
// CSVWriter emits UTF-8 CSV with a BOM so spreadsheet applications pick the
// right encoding. ExcelWriter builds a single-sheet workbook named
// "Données consolidées" where multi-line cells wrap, data rows are 60 points
// high and columns are sized to their widest first line.
//
// Example usage:
//
//	w, err := exporter.ForFormat(domain.OutputFormatExcel)
//	if err != nil {
//	    return err
//	}
//	err = w.WriteConsolidated(file, result.Rows)
package exporter
