// Package transcribe produces word-level transcripts with timings.
//
// The whisperx backend runs WhisperX through uvx as a subprocess and parses
// its JSON output. Cached replays a transcript stored alongside an uploaded
// audio file so lessons can be reprocessed without re-running recognition.
// Cache keeps one backend per model name for the life of the process, and
// Registry maps the configured backend name to its constructor.
package transcribe
