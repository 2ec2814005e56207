// Package preflight provides readiness checks for the binaries, directories,
// and services the worker depends on.
//
// The worker runs RunAll once at startup and logs every failed check; the
// "readrepeat deps" command renders the same results as status lines.
package preflight
