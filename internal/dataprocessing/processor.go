package dataprocessing

import (
	"fmt"

	apperrors "gscconsolidate/internal/errors"
	"gscconsolidate/pkg/contracts/domain"
)

// ProgressReporter receives checkpoints during a consolidation. Fractions are
// non-decreasing within one run and end at 1.
type ProgressReporter interface {
	Report(fraction float64, message string)
}

// ProgressFunc adapts a function to ProgressReporter
type ProgressFunc func(fraction float64, message string)

// Report implements ProgressReporter
func (f ProgressFunc) Report(fraction float64, message string) {
	f(fraction, message)
}

type noopProgress struct{}

func (noopProgress) Report(float64, string) {}

// Options controls a consolidation run
type Options struct {
	// MinClicks is the minimum per-keyword clicks for a keyword to be listed
	MinClicks int
	// Progress is optional
	Progress ProgressReporter
}

// Result is the output of Consolidate
type Result struct {
	Rows    []domain.OutputRow
	Stats   domain.Stats
	Mapping ColumnMapping
	// CorrectedCells counts clicks/impressions cells read as 0
	CorrectedCells int
}

// Consolidate resolves the columns of table, aggregates its rows per page and
// shapes one output row per page in first-seen order.
func Consolidate(table domain.Table, opts Options) (*Result, error) {
	if opts.MinClicks < 0 {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("minimum clicks must be >= 0, got %d", opts.MinClicks),
		).WithContext("min_clicks", opts.MinClicks)
	}

	progress := opts.Progress
	if progress == nil {
		progress = noopProgress{}
	}

	progress.Report(0.1, "identifying columns")
	mapping, err := ResolveColumns(table.Headers)
	if err != nil {
		return nil, err
	}

	progress.Report(0.2, "collecting rows")
	total := len(table.Rows)
	step := max(1, total/100)
	agg := Aggregate(table, mapping, func(i int) {
		if i%step == 0 {
			progress.Report(0.2+0.4*float64(i)/float64(total), fmt.Sprintf("processing rows (%d/%d)", i, total))
		}
	})

	progress.Report(0.6, "filtering and sorting keywords")
	pages := agg.Pages()
	rows := make([]domain.OutputRow, len(pages))
	for i, page := range pages {
		rows[i] = ShapeRow(page, opts.MinClicks)
		progress.Report(0.6+0.3*float64(i)/float64(len(pages)), fmt.Sprintf("shaping pages (%d/%d)", i+1, len(pages)))
	}

	progress.Report(0.9, "finalizing")
	result := &Result{
		Rows:           rows,
		Stats:          ComputeStats(rows, opts.MinClicks),
		Mapping:        mapping,
		CorrectedCells: agg.CorrectedCells,
	}
	progress.Report(1.0, "done")

	return result, nil
}
