// Package worker runs the poll loop: fetch a job from a source, dispatch it
// to its handler, and report the outcome. A file lock keeps a second worker
// from starting against the same data directory.
package worker
