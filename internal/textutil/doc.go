// Package textutil provides the token normalization and fuzzy word similarity
// used to line sentences up against transcripts, plus filesystem-safe token
// sanitization.
//
// The primary use cases are:
//   - Normalizing words for comparison (lowercase, punctuation stripped)
//   - Tokenizing sentences and transcripts for alignment
//   - Scoring word similarity as a normalized Levenshtein ratio
//   - Sanitizing identifiers before they become path segments
//
// All functions are pure and safe for concurrent use.
package textutil
