// Package logging builds the slog loggers used by the CLI and worker.
//
// It offers a console handler that renders "[component] Job <id> (stage) - msg"
// lines for humans, a JSON handler for machines, and per-job JSON log files
// teed from the worker logger. Attribute helpers and standardized field keys
// keep job, lesson, and stage identifiers consistent across packages, and
// WarnWithContext / ErrorWithContext enforce event_type and error_hint fields.
package logging
