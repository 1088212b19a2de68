package dataprocessing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gscconsolidate/internal/errors"
	"gscconsolidate/pkg/contracts/domain"
)

func scenarioTable() domain.Table {
	return domain.Table{
		Headers: []string{"Page", "Query", "Clicks", "Impressions"},
		Rows: [][]string{
			{"/a", "kw1", "5", "10"},
			{"/a", "kw2", "2", "8"},
			{"/a", "kw1", "1", "1"},
		},
	}
}

func TestConsolidate_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		minClicks int
		want      domain.OutputRow
	}{
		{
			name:      "no threshold",
			minClicks: 0,
			want: domain.OutputRow{
				Page:             "/a",
				Keywords:         "kw1\nkw2",
				KeywordCount:     2,
				Clicks:           "6\n2",
				TotalClicks:      8,
				Impressions:      "11\n8",
				TotalImpressions: 19,
				ListedKeywords:   2,
			},
		},
		{
			name:      "threshold keeps one keyword",
			minClicks: 5,
			want: domain.OutputRow{
				Page:             "/a",
				Keywords:         "kw1",
				KeywordCount:     2,
				Clicks:           "6",
				TotalClicks:      8,
				Impressions:      "11",
				TotalImpressions: 19,
				ListedKeywords:   1,
			},
		},
		{
			name:      "threshold above every keyword",
			minClicks: 100,
			want: domain.OutputRow{
				Page:             "/a",
				KeywordCount:     2,
				TotalClicks:      8,
				TotalImpressions: 19,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Consolidate(scenarioTable(), Options{MinClicks: tt.minClicks})
			require.NoError(t, err)
			require.Len(t, result.Rows, 1)
			assert.Equal(t, tt.want, result.Rows[0])
		})
	}
}

func TestConsolidate_NonNumericClicks(t *testing.T) {
	table := domain.Table{
		Headers: []string{"Page", "Query", "Clicks", "Impressions"},
		Rows: [][]string{
			{"/a", "kw1", "N/A", "10"},
			{"/a", "kw2", "3", "4"},
		},
	}

	result, err := Consolidate(table, Options{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, "kw2\nkw1", row.Keywords)
	assert.Equal(t, "3\n0", row.Clicks)
	assert.Equal(t, 3.0, row.TotalClicks)
	assert.Equal(t, 1, result.CorrectedCells)
}

func TestConsolidate_Idempotent(t *testing.T) {
	first, err := Consolidate(scenarioTable(), Options{MinClicks: 2})
	require.NoError(t, err)
	second, err := Consolidate(scenarioTable(), Options{MinClicks: 2})
	require.NoError(t, err)

	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.Stats, second.Stats)
}

func multiPageTable() domain.Table {
	return domain.Table{
		Headers: []string{"URL", "Mot clé", "Clics", "Affichages"},
		Rows: [][]string{
			{"/x", "alpha", "3", "30"},
			{"/y", "beta", "7", "70"},
			{"/x", "gamma", "3", "9"},
			{"/x", "delta", "12", "40"},
			{"/y", "alpha", "0", "5"},
			{"/x", "epsilon", "1", "1"},
			{"/x", "alpha", "2", "2"},
		},
	}
}

func TestConsolidate_TotalsInvariantUnderThreshold(t *testing.T) {
	base, err := Consolidate(multiPageTable(), Options{})
	require.NoError(t, err)

	for _, minClicks := range []int{1, 3, 5, 12, 1000} {
		got, err := Consolidate(multiPageTable(), Options{MinClicks: minClicks})
		require.NoError(t, err)
		require.Len(t, got.Rows, len(base.Rows))

		for i := range base.Rows {
			assert.Equal(t, base.Rows[i].Page, got.Rows[i].Page)
			assert.Equal(t, base.Rows[i].KeywordCount, got.Rows[i].KeywordCount)
			assert.Equal(t, base.Rows[i].TotalClicks, got.Rows[i].TotalClicks)
			assert.Equal(t, base.Rows[i].TotalImpressions, got.Rows[i].TotalImpressions)
		}
	}
}

func TestConsolidate_FilterMonotonic(t *testing.T) {
	listed := func(r domain.OutputRow) []string {
		if r.Keywords == "" {
			return nil
		}
		return strings.Split(r.Keywords, "\n")
	}

	prev, err := Consolidate(multiPageTable(), Options{MinClicks: 0})
	require.NoError(t, err)

	for _, minClicks := range []int{1, 2, 3, 4, 8, 13} {
		cur, err := Consolidate(multiPageTable(), Options{MinClicks: minClicks})
		require.NoError(t, err)

		for i := range cur.Rows {
			assert.Subset(t, listed(prev.Rows[i]), listed(cur.Rows[i]))
		}
		prev = cur
	}
}

func TestConsolidate_SortAndParallelOrder(t *testing.T) {
	result, err := Consolidate(multiPageTable(), Options{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	x := result.Rows[0]
	assert.Equal(t, "/x", x.Page)
	assert.Equal(t, "delta\nalpha\ngamma\nepsilon", x.Keywords)
	assert.Equal(t, "12\n5\n3\n1", x.Clicks)
	assert.Equal(t, "40\n32\n9\n1", x.Impressions)
	assert.Equal(t, 4, x.KeywordCount)

	y := result.Rows[1]
	assert.Equal(t, "/y", y.Page)
	assert.Equal(t, "beta\nalpha", y.Keywords)
	assert.Equal(t, "7\n0", y.Clicks)
}

func TestConsolidate_TiesKeepFirstSeenOrder(t *testing.T) {
	table := domain.Table{
		Headers: []string{"page", "query", "clicks", "impressions"},
		Rows: [][]string{
			{"/p", "c", "2", "1"},
			{"/p", "a", "2", "1"},
			{"/p", "b", "9", "1"},
			{"/p", "d", "2", "1"},
		},
	}

	result, err := Consolidate(table, Options{})
	require.NoError(t, err)
	assert.Equal(t, "b\nc\na\nd", result.Rows[0].Keywords)
}

func TestConsolidate_Errors(t *testing.T) {
	t.Run("negative threshold", func(t *testing.T) {
		_, err := Consolidate(scenarioTable(), Options{MinClicks: -1})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("unresolvable columns", func(t *testing.T) {
		table := domain.Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}
		result, err := Consolidate(table, Options{})
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, ErrColumnsUnresolved))
	})
}

func TestConsolidate_NoDataRows(t *testing.T) {
	result, err := Consolidate(domain.Table{Headers: []string{"page", "query", "clicks", "impressions"}}, Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Equal(t, domain.Stats{}, result.Stats)
}

func TestConsolidate_Progress(t *testing.T) {
	rows := make([][]string, 250)
	for i := range rows {
		rows[i] = []string{"/p" + string(rune('a'+i%3)), "kw", "1", "1"}
	}
	table := domain.Table{Headers: []string{"page", "query", "clicks", "impressions"}, Rows: rows}

	var fractions []float64
	var messages []string
	_, err := Consolidate(table, Options{Progress: ProgressFunc(func(f float64, msg string) {
		fractions = append(fractions, f)
		messages = append(messages, msg)
	})})
	require.NoError(t, err)

	require.NotEmpty(t, fractions)
	assert.Equal(t, 0.1, fractions[0])
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
	assert.Equal(t, "done", messages[len(messages)-1])
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
	assert.Contains(t, fractions, 0.6)
	assert.Contains(t, fractions, 0.9)
}

func TestShapeRow_DoesNotMutateAggregate(t *testing.T) {
	agg := domain.NewPageAggregate("/a")
	agg.Add("low", 1, 1)
	agg.Add("high", 9, 9)

	_ = ShapeRow(agg, 0)
	_ = ShapeRow(agg, 5)

	assert.Equal(t, []string{"low", "high"}, agg.Keywords)
}

func TestRecord(t *testing.T) {
	row := domain.OutputRow{
		Page:             "/a",
		Keywords:         "kw1\nkw2",
		KeywordCount:     2,
		Clicks:           "6\n2",
		TotalClicks:      8,
		Impressions:      "11\n8",
		TotalImpressions: 19.5,
	}

	assert.Equal(t, []string{"/a", "kw1\nkw2", "2", "6\n2", "8", "11\n8", "19.5"}, Record(row))
	assert.Len(t, Records([]domain.OutputRow{row, row}), 2)
}
