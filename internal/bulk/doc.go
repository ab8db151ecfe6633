// Package bulk registers and refreshes many portal accounts at once.
//
// An Orchestrator takes a list of ADSL lines, drops duplicates and lines
// that are already registered, and processes the rest on a bounded worker
// pool. Every input line ends up either in BulkJobResult.Succeeded or in
// BulkJobResult.Failed with a reason; errors and panics of a single line
// never abort the job.
package bulk
