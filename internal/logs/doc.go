// Package logs reads the worker and per-job log files for the CLI.
//
// Last returns the trailing lines of a file; Follow keeps emitting lines as
// the worker appends them. Missing files are treated as empty so the CLI can
// be pointed at a job that has not started yet.
package logs
