// Package dataprocessing consolidates Search Console performance exports.
// It turns a long table of (page, query, clicks, impressions) rows into one
// row per page where the keyword metrics are packed into newline-separated
// list cells.
//
// # Architecture
//
// The package is organized into three stages run by Consolidate:
//
// 1. Column resolution: ResolveColumns maps headers to roles by keyword
// rules and falls back to positions 0..3 on tables with four or more columns
// 2. Aggregation: Aggregate sums clicks and impressions per page and keyword
// in first-seen order
// 3. Shaping: ShapeRow filters keywords by a click threshold, sorts them by
// clicks and joins the three list cells
//
// # Usage
//
//	result, err := dataprocessing.Consolidate(table, dataprocessing.Options{MinClicks: 5})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(dataprocessing.FilterSummary(result.Stats))
//
// # Data Flow
//
//	domain.Table → ColumnMapping → Aggregation → []domain.OutputRow → Stats
//
// # Error Handling
//
// A table whose columns cannot be identified yields an INPUT_SHAPE AppError
// wrapping ErrColumnsUnresolved. Unreadable numeric cells are not errors;
// they are read as 0 and counted in Result.CorrectedCells.
//
// Every call builds its own Aggregation, so concurrent consolidations of
// different tables need no coordination.
package dataprocessing
