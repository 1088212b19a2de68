package dataprocessing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	apperrors "gscconsolidate/internal/errors"
	"gscconsolidate/pkg/contracts/domain"
)

// Role identifies one of the four columns the consolidation needs
type Role int

const (
	RolePage Role = iota
	RoleQuery
	RoleClicks
	RoleImpressions
)

func (r Role) String() string {
	switch r {
	case RolePage:
		return "page"
	case RoleQuery:
		return "query"
	case RoleClicks:
		return "clicks"
	case RoleImpressions:
		return "impressions"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ColumnRule assigns a role to the first header containing any of its markers
type ColumnRule struct {
	Role    Role
	Markers []string
}

// DefaultRules covers English and French Search Console exports
var DefaultRules = []ColumnRule{
	{Role: RolePage, Markers: []string{"page", "url"}},
	{Role: RoleQuery, Markers: []string{"query", "mot", "clé", "recherche"}},
	{Role: RoleClicks, Markers: []string{"click", "clic", "visite"}},
	{Role: RoleImpressions, Markers: []string{"impress", "affichage"}},
}

// requiredColumns is the minimum width for positional assignment
const requiredColumns = 4

// Strategy records how a ColumnMapping was obtained
type Strategy string

const (
	StrategyKeyword    Strategy = "keyword"
	StrategyPositional Strategy = "positional"
)

// ErrColumnsUnresolved is returned when the header has fewer than four
// columns and at least one role has no matching header.
var ErrColumnsUnresolved = errors.New("cannot identify page, query, clicks and impressions columns")

// ColumnMapping holds the header index of each role
type ColumnMapping struct {
	Page        int
	Query       int
	Clicks      int
	Impressions int
	Strategy    Strategy
}

func (m *ColumnMapping) set(role Role, idx int) {
	switch role {
	case RolePage:
		m.Page = idx
	case RoleQuery:
		m.Query = idx
	case RoleClicks:
		m.Clicks = idx
	case RoleImpressions:
		m.Impressions = idx
	}
}

// NormalizeHeader puts a header in NFC form, lowercases and trims it so that
// precomposed and decomposed accents compare equal.
func NormalizeHeader(h string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(h)))
}

// ResolveColumns maps headers to roles using DefaultRules
func ResolveColumns(headers []string) (ColumnMapping, error) {
	return ResolveColumnsWithRules(headers, DefaultRules)
}

// ResolveColumnsWithRules maps headers to roles. Each rule independently takes
// the first header containing one of its markers. If any rule finds nothing,
// all roles fall back to positions 0..3, which requires at least four columns.
func ResolveColumnsWithRules(headers []string, rules []ColumnRule) (ColumnMapping, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	mapping := ColumnMapping{Strategy: StrategyKeyword}
	var missing []string
	for _, rule := range rules {
		idx := matchRule(normalized, rule)
		if idx < 0 {
			missing = append(missing, rule.Role.String())
			continue
		}
		mapping.set(rule.Role, idx)
	}

	if len(missing) == 0 {
		return mapping, nil
	}

	if len(headers) >= requiredColumns {
		return ColumnMapping{
			Page:        0,
			Query:       1,
			Clicks:      2,
			Impressions: 3,
			Strategy:    StrategyPositional,
		}, nil
	}

	return ColumnMapping{}, apperrors.NewInputShapeError(
		fmt.Sprintf("found %d columns, expected at least %d", len(headers), requiredColumns),
		ErrColumnsUnresolved,
	).WithContext("headers", headers).WithContext("missing", missing)
}

func matchRule(normalized []string, rule ColumnRule) int {
	for i, h := range normalized {
		for _, marker := range rule.Markers {
			if strings.Contains(h, NormalizeHeader(marker)) {
				return i
			}
		}
	}
	return -1
}

// ParseNumber coerces a cell to a number. Empty, unparseable and non-finite
// values yield 0 with ok=false.
func ParseNumber(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatNumber renders a metric without a trailing ".0" for whole values
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Row extracts the four role values from one data row. Missing trailing
// cells read as empty. corrected counts numeric cells that had to be zeroed.
func (m ColumnMapping) Row(cells []string) (row domain.InputRow, corrected int) {
	cell := func(idx int) string {
		if idx < len(cells) {
			return cells[idx]
		}
		return ""
	}

	clicks, ok := ParseNumber(cell(m.Clicks))
	if !ok {
		corrected++
	}
	impressions, ok := ParseNumber(cell(m.Impressions))
	if !ok {
		corrected++
	}

	return domain.InputRow{
		Page:        cell(m.Page),
		Query:       cell(m.Query),
		Clicks:      clicks,
		Impressions: impressions,
	}, corrected
}
