// Package queue persists lesson jobs in SQLite for workers that run without
// the lesson server.
//
// The Store manages database connections, schema initialization, atomic job
// claims, completion and failure bookkeeping, stats queries, and stuck-job
// recovery. Each job row carries its kind, the JSON payload in the same wire
// shape the lesson server uses, and the JSON result written on completion.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
