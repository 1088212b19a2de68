package dataprocessing

import (
	"gscconsolidate/pkg/contracts/domain"
)

// Aggregation holds per-page keyword metrics in first-seen page order.
// A new Aggregation is built for every consolidation.
type Aggregation struct {
	pages map[string]*domain.PageAggregate
	order []string

	// Rows is the number of input rows scanned
	Rows int
	// CorrectedCells counts numeric cells coerced to 0
	CorrectedCells int
}

// NewAggregation creates an empty aggregation
func NewAggregation() *Aggregation {
	return &Aggregation{pages: make(map[string]*domain.PageAggregate)}
}

// Add folds one input row into its page entry
func (a *Aggregation) Add(row domain.InputRow) {
	agg, ok := a.pages[row.Page]
	if !ok {
		agg = domain.NewPageAggregate(row.Page)
		a.pages[row.Page] = agg
		a.order = append(a.order, row.Page)
	}
	agg.Add(row.Query, row.Clicks, row.Impressions)
	a.Rows++
}

// Len returns the number of distinct pages
func (a *Aggregation) Len() int {
	return len(a.order)
}

// Pages returns the page aggregates in first-seen order
func (a *Aggregation) Pages() []*domain.PageAggregate {
	out := make([]*domain.PageAggregate, len(a.order))
	for i, p := range a.order {
		out[i] = a.pages[p]
	}
	return out
}

// Page returns the aggregate for page, if present
func (a *Aggregation) Page(page string) (*domain.PageAggregate, bool) {
	agg, ok := a.pages[page]
	return agg, ok
}

// Aggregate scans table in order using mapping. onRow, when non-nil, is
// called after each row with the zero-based row index.
func Aggregate(table domain.Table, mapping ColumnMapping, onRow func(i int)) *Aggregation {
	agg := NewAggregation()
	for i, cells := range table.Rows {
		row, corrected := mapping.Row(cells)
		agg.CorrectedCells += corrected
		agg.Add(row)
		if onRow != nil {
			onRow(i)
		}
	}
	return agg
}
