// Package operations tracks consolidation runs.
//
// ProgressTracker receives the fractional checkpoints emitted while a table
// is consolidated, logs each named step and estimates the remaining time.
// OperationState records the lifecycle of a single run (pending, running,
// then completed, failed or cancelled) under a UUID so that log lines of
// concurrent runs can be told apart.
package operations
