// Package align locates user-authored sentences inside a word-level speech
// transcript.
//
// The Aligner walks sentences in order with a single forward-only cursor.
// For each sentence it searches a bounded grid of candidate windows just
// past the cursor, scores each window with greedy one-to-one fuzzy word
// matching, and keeps the best. A sentence that cannot be placed gets a
// zero-confidence Timing instead of an error. Slicing treats confidence 0 as
// "emit a placeholder clip".
//
// Score thresholds are tuned against the bounded window grid.
package align
