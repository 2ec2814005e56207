// Package services defines shared utilities consumed by the job handlers and
// their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, job kinds, lesson IDs, stage names,
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent queue statuses (failed vs review).
//
// Use these helpers when wiring new handler logic so error handling and
// observability stay uniform across job kinds.
package services
