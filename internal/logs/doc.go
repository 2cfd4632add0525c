// Package logs reads the agriref run log for the CLI.
//
// It returns the last N lines with bounded memory, resumes from a byte offset
// so follow mode only reports appended lines, and can narrow output to the
// lines of one ingest run. Callers supply context deadlines so polling stops
// when the CLI exits.
package logs
