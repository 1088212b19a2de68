package exporter

import (
	"io"

	apperrors "gscconsolidate/internal/errors"
	"gscconsolidate/pkg/contracts/domain"
)

// Writer serializes consolidated rows in one output format
type Writer interface {
	Format() domain.OutputFormat
	WriteConsolidated(out io.Writer, rows []domain.OutputRow) error
}

// ForFormat returns the writer for format
func ForFormat(format domain.OutputFormat) (Writer, error) {
	switch format {
	case domain.OutputFormatCSV:
		return NewCSVWriter(), nil
	case domain.OutputFormatExcel:
		return NewExcelWriter(), nil
	default:
		return nil, apperrors.NewUnsupportedFormatError(string(format))
	}
}
