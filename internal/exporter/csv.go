package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"gscconsolidate/internal/dataprocessing"
	"gscconsolidate/pkg/contracts/domain"
)

// utf8BOM lets spreadsheet applications detect UTF-8 in CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
	Comma     rune
}

// CSVWriter writes consolidated tables as CSV
type CSVWriter struct {
	bom   bool
	comma rune
}

// NewCSVWriter creates a CSV writer that prefixes output with a UTF-8 BOM
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{bom: true, comma: ','}
}

// Format implements Writer
func (w *CSVWriter) Format() domain.OutputFormat {
	return domain.OutputFormatCSV
}

// WriteConsolidated writes the seven output columns followed by one record per row
func (w *CSVWriter) WriteConsolidated(out io.Writer, rows []domain.OutputRow) error {
	return WriteCSV(out, WriteOptions{
		Headers:   domain.OutputColumns,
		Records:   dataprocessing.Records(rows),
		BOMPrefix: w.bom,
		Comma:     w.comma,
	})
}

// WriteCSV writes headers and records to out
func WriteCSV(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if options.Comma != 0 {
		writer.Comma = options.Comma
	}

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
