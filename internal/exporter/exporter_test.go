package exporter

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "gscconsolidate/internal/errors"
	"gscconsolidate/pkg/contracts/domain"
)

func sampleRows() []domain.OutputRow {
	return []domain.OutputRow{
		{
			Page:             "https://example.com/a-long-article-path",
			Keywords:         "kw1\nkw2",
			KeywordCount:     2,
			Clicks:           "6\n2",
			TotalClicks:      8,
			Impressions:      "11\n8",
			TotalImpressions: 19,
			ListedKeywords:   2,
		},
		{
			Page:             "/b",
			Keywords:         "solo",
			KeywordCount:     3,
			Clicks:           "4",
			TotalClicks:      4.5,
			Impressions:      "40",
			TotalImpressions: 41,
			ListedKeywords:   1,
		},
	}
}

func TestCSVWriter_WriteConsolidated(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter()

	require.NoError(t, w.WriteConsolidated(&buf, sampleRows()))
	assert.Equal(t, domain.OutputFormatCSV, w.Format())

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM), "missing BOM")

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, domain.OutputColumns, records[0])
	assert.Equal(t, []string{"https://example.com/a-long-article-path", "kw1\nkw2", "2", "6\n2", "8", "11\n8", "19"}, records[1])
	assert.Equal(t, []string{"/b", "solo", "3", "4", "4.5", "40", "41"}, records[2])
}

func TestWriteCSV_Options(t *testing.T) {
	var buf bytes.Buffer

	err := WriteCSV(&buf, WriteOptions{
		Headers: []string{"a", "b"},
		Records: [][]string{{"1", "2"}},
		Comma:   ';',
	})
	require.NoError(t, err)

	assert.Equal(t, "a;b\n1;2\n", buf.String())
}

func TestCSVWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter().WriteConsolidated(&buf, nil))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestExcelWriter_WriteConsolidated(t *testing.T) {
	var buf bytes.Buffer
	w := NewExcelWriter()

	require.NoError(t, w.WriteConsolidated(&buf, sampleRows()))
	assert.Equal(t, domain.OutputFormatExcel, w.Format())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.OutputColumns, rows[0])
	assert.Equal(t, []string{"https://example.com/a-long-article-path", "kw1\nkw2", "2", "6\n2", "8", "11\n8", "19"}, rows[1])
	assert.Equal(t, "4.5", rows[2][4])

	t.Run("multi-line cells wrap", func(t *testing.T) {
		styleID, err := f.GetCellStyle(SheetName, "B2")
		require.NoError(t, err)
		style, err := f.GetStyle(styleID)
		require.NoError(t, err)
		require.NotNil(t, style.Alignment)
		assert.True(t, style.Alignment.WrapText)
		assert.Equal(t, "top", style.Alignment.Vertical)

		plainID, err := f.GetCellStyle(SheetName, "B3")
		require.NoError(t, err)
		assert.NotEqual(t, styleID, plainID)
	})

	t.Run("row heights", func(t *testing.T) {
		for _, r := range []int{2, 3} {
			h, err := f.GetRowHeight(SheetName, r)
			require.NoError(t, err)
			assert.Equal(t, DataRowHeight, h)
		}
	})

	t.Run("column widths", func(t *testing.T) {
		tests := []struct {
			col  string
			want float64
		}{
			{"A", float64(len("https://example.com/a-long-article-path") + 2)},
			{"B", 11},
			{"C", 17},
			{"D", 10},
			{"G", 20},
		}
		for _, tt := range tests {
			width, err := f.GetColWidth(SheetName, tt.col)
			require.NoError(t, err)
			assert.Equal(t, tt.want, width, tt.col)
		}
	})
}

func TestForFormat(t *testing.T) {
	w, err := ForFormat(domain.OutputFormatCSV)
	require.NoError(t, err)
	assert.IsType(t, &CSVWriter{}, w)

	w, err = ForFormat(domain.OutputFormatExcel)
	require.NoError(t, err)
	assert.IsType(t, &ExcelWriter{}, w)

	_, err = ForFormat("ods")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUnsupportedFormat))
}

func TestColumnWidth(t *testing.T) {
	assert.Equal(t, 10.0, columnWidth(nil))
	assert.Equal(t, 10.0, columnWidth([]string{"short"}))
	assert.Equal(t, 14.0, columnWidth([]string{"twelve chars", "a\nvery long second line"}))
	assert.Equal(t, 13.0, columnWidth([]string{"Requ\u00eates  \u00e9"}))
}
