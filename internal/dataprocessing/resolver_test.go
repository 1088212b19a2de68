package dataprocessing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gscconsolidate/internal/errors"
	"gscconsolidate/pkg/contracts/domain"
)

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    ColumnMapping
	}{
		{
			name:    "english export",
			headers: []string{"Top pages", "Query", "Clicks", "Impressions", "CTR", "Position"},
			want:    ColumnMapping{Page: 0, Query: 1, Clicks: 2, Impressions: 3, Strategy: StrategyKeyword},
		},
		{
			name:    "french export reordered",
			headers: []string{"Clics", "Impressions", "URL", "Requête", "Mots clés"},
			want:    ColumnMapping{Page: 2, Query: 4, Clicks: 0, Impressions: 1, Strategy: StrategyKeyword},
		},
		{
			name:    "accented marker",
			headers: []string{"Adresse URL", "Clé de recherche", "Visites", "Affichages"},
			want:    ColumnMapping{Page: 0, Query: 1, Clicks: 2, Impressions: 3, Strategy: StrategyKeyword},
		},
		{
			name:    "decomposed accent is normalized",
			headers: []string{"page", "Cle\u0301", "clics", "impressions"},
			want:    ColumnMapping{Page: 0, Query: 1, Clicks: 2, Impressions: 3, Strategy: StrategyKeyword},
		},
		{
			name:    "surrounding whitespace and case",
			headers: []string{"  PAGE ", "QUERY", " Clicks", "Impressions  "},
			want:    ColumnMapping{Page: 0, Query: 1, Clicks: 2, Impressions: 3, Strategy: StrategyKeyword},
		},
		{
			name:    "first matching header wins",
			headers: []string{"landing page", "page title", "query", "clicks", "impressions"},
			want:    ColumnMapping{Page: 0, Query: 2, Clicks: 3, Impressions: 4, Strategy: StrategyKeyword},
		},
		{
			name:    "overlapping header serves two roles",
			headers: []string{"url", "query", "clicks", "impressions page"},
			want:    ColumnMapping{Page: 0, Query: 1, Clicks: 2, Impressions: 3, Strategy: StrategyKeyword},
		},
		{
			name:    "one unresolved role falls back positionally",
			headers: []string{"Adresse", "Query", "Clicks", "Impressions"},
			want:    ColumnMapping{Page: 0, Query: 1, Clicks: 2, Impressions: 3, Strategy: StrategyPositional},
		},
		{
			name:    "fallback discards keyword matches",
			headers: []string{"Clicks", "Impressions", "Query", "a", "b"},
			want:    ColumnMapping{Page: 0, Query: 1, Clicks: 2, Impressions: 3, Strategy: StrategyPositional},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveColumns(tt.headers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveColumns_Unresolved(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
	}{
		{"empty header", nil},
		{"three unnamed columns", []string{"a", "b", "c"}},
		{"three named columns", []string{"page", "query", "clicks"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveColumns(tt.headers)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrColumnsUnresolved))
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInputShape))
		})
	}
}

func TestResolveColumns_Deterministic(t *testing.T) {
	headers := []string{"Pages", "Requêtes", "Clics", "Impressions"}

	first, err := ResolveColumns(headers)
	require.NoError(t, err)
	second, err := ResolveColumns(headers)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"5", 5, true},
		{" 12 ", 12, true},
		{"3.5", 3.5, true},
		{"-2", -2, true},
		{"1e3", 1000, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"1,5", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-Infinity", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "6", FormatNumber(6))
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "2.5", FormatNumber(2.5))
	assert.Equal(t, "1500000", FormatNumber(1.5e6))
}

func TestColumnMapping_Row(t *testing.T) {
	mapping := ColumnMapping{Page: 2, Query: 0, Clicks: 1, Impressions: 3}

	row, corrected := mapping.Row([]string{"kw", "4", "/p", "40"})
	assert.Equal(t, domain.InputRow{Page: "/p", Query: "kw", Clicks: 4, Impressions: 40}, row)
	assert.Zero(t, corrected)

	row, corrected = mapping.Row([]string{"kw", "N/A"})
	assert.Equal(t, domain.InputRow{Page: "", Query: "kw", Clicks: 0, Impressions: 0}, row)
	assert.Equal(t, 2, corrected)
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "page", RolePage.String())
	assert.Equal(t, "impressions", RoleImpressions.String())
	assert.Equal(t, "role(9)", Role(9).String())
}
