package files

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "gscconsolidate/internal/errors"
	"gscconsolidate/pkg/contracts/domain"
)

// InputFormat is a readable export format
type InputFormat string

const (
	InputCSV  InputFormat = "csv"
	InputXLSX InputFormat = "xlsx"
)

const utf8BOM = "\uFEFF"

// DetectFormat returns the input format for a file name by extension.
// Legacy .xls workbooks are rejected along with anything else unknown.
func DetectFormat(name string) (InputFormat, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return InputCSV, nil
	case ".xlsx":
		return InputXLSX, nil
	default:
		return "", apperrors.NewUnsupportedFormatError(ext)
	}
}

// ReadTable opens path and reads it according to its extension
func ReadTable(path string) (domain.Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return domain.Table{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, apperrors.NewStorageError("failed to open input file", err).
			WithContext("path", path)
	}
	defer f.Close()

	return Read(format, f)
}

// Read parses r in the given format
func Read(format InputFormat, r io.Reader) (domain.Table, error) {
	switch format {
	case InputCSV:
		return ReadCSV(r)
	case InputXLSX:
		return ReadXLSX(r)
	default:
		return domain.Table{}, apperrors.NewUnsupportedFormatError(string(format))
	}
}

// ReadUpload parses an uploaded file, choosing the format from its name
func ReadUpload(name string, r io.Reader) (domain.Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return domain.Table{}, err
	}
	return Read(format, r)
}

// ReadCSV parses a UTF-8 CSV export. A leading BOM is dropped. The comma
// delimiter is tried first; the data is re-read with ';' when the comma
// parse fails or yields a single header column containing ';'.
func ReadCSV(r io.Reader) (domain.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Table{}, apperrors.NewStorageError("failed to read csv input", err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	records, err := parseCSV(data, ',')
	if err != nil || needsSemicolon(records) {
		slog.Debug("retrying csv with semicolon delimiter", slog.Any("comma_error", err))
		records, err = parseCSV(data, ';')
	}
	if err != nil {
		return domain.Table{}, apperrors.NewParsingError("failed to parse csv", err)
	}

	return toTable(records)
}

func parseCSV(data []byte, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func needsSemicolon(records [][]string) bool {
	return len(records) > 0 && len(records[0]) == 1 && strings.Contains(records[0][0], ";")
}

// ReadXLSX reads the first sheet of a workbook with raw cell values
func ReadXLSX(r io.Reader) (domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return domain.Table{}, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Table{}, apperrors.NewParsingError("workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.Table{}, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheets[0]), err)
	}

	return toTable(rows)
}

// toTable splits records into header and data rows, dropping blank rows
func toTable(records [][]string) (domain.Table, error) {
	var table domain.Table
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		if table.Headers == nil {
			table.Headers = rec
			continue
		}
		table.Rows = append(table.Rows, rec)
	}

	if table.Headers == nil {
		return domain.Table{}, apperrors.NewParsingError("input has no header row", nil)
	}
	return table, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
