package dataprocessing

import (
	"sort"
	"strings"

	"gscconsolidate/pkg/contracts/domain"
)

// ShapeRow turns one page aggregate into an output row. Keywords with fewer
// than minClicks clicks are dropped from the list cells, the rest are sorted
// by clicks descending with ties kept in first-seen order. KeywordCount and
// both totals always describe the unfiltered page.
func ShapeRow(agg *domain.PageAggregate, minClicks int) domain.OutputRow {
	row := domain.OutputRow{
		Page:             agg.Page,
		KeywordCount:     len(agg.Keywords),
		TotalClicks:      agg.TotalClicks,
		TotalImpressions: agg.TotalImpressions,
	}

	threshold := float64(minClicks)
	kept := make([]string, 0, len(agg.Keywords))
	for _, kw := range agg.Keywords {
		if agg.ClicksByKeyword[kw] >= threshold {
			kept = append(kept, kw)
		}
	}
	if len(kept) == 0 {
		return row
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return agg.ClicksByKeyword[kept[i]] > agg.ClicksByKeyword[kept[j]]
	})

	clicks := make([]string, len(kept))
	impressions := make([]string, len(kept))
	for i, kw := range kept {
		clicks[i] = FormatNumber(agg.ClicksByKeyword[kw])
		impressions[i] = FormatNumber(agg.ImpressionsByKeyword[kw])
	}

	row.Keywords = strings.Join(kept, domain.ListSeparator)
	row.Clicks = strings.Join(clicks, domain.ListSeparator)
	row.Impressions = strings.Join(impressions, domain.ListSeparator)
	row.ListedKeywords = len(kept)
	return row
}

// Records converts output rows to string records in column order
func Records(rows []domain.OutputRow) [][]string {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = Record(r)
	}
	return records
}

// Record converts one output row to its seven cells
func Record(r domain.OutputRow) []string {
	return []string{
		r.Page,
		r.Keywords,
		FormatNumber(float64(r.KeywordCount)),
		r.Clicks,
		FormatNumber(r.TotalClicks),
		r.Impressions,
		FormatNumber(r.TotalImpressions),
	}
}
