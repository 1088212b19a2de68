// Package services implements the business logic layer of the consolidation
// tool. Handlers and the CLI call into it; it coordinates file reading, the
// consolidation core, output writing and telemetry.
//
// # Services
//
//	- ConsolidationService: runs a consolidation for a local file, an
//	  uploaded export or a Search Console query, and previews uploads
//	- HealthService: liveness, readiness and version information
//
// # Consolidation pipeline
//
// Every run goes through the same steps:
//
//	1. Validate the input name and format
//	2. Load the raw table (file, upload stream or Search Console API)
//	3. Consolidate with a progress tracker attached
//	4. Write the CSV or Excel output, atomically when it is a file
//
// Nothing is written when loading or consolidating fails. Each run is wrapped
// in an OpenTelemetry span and recorded in the consolidation metrics.
//
// # Testing
//
// Remote sources are mocked with testify:
//
//	src := new(mockTableSource)
//	src.On("FetchTable", mock.Anything, query).Return(table, nil)
//	outcome, err := service.ConsolidateSearchConsole(ctx, src, query, dir, req)
package services
