// Package shared holds helpers used across the consolidation packages.
//
// The testutil subpackage provides a capturing slog handler for log
// assertions and fixtures that write Search Console style exports as CSV or
// XLSX files into a test's temporary directory.
//
//	logger, logs := testutil.NewTestLogger(t)
//	path := testutil.WriteXLSX(t, t.TempDir(), "export.xlsx", testutil.SampleHeaders, rows)
//
// Nothing in this package carries business logic.
package shared
