// Package lesson runs the read-and-repeat pipeline for one lesson.
//
// Process segments the foreign text and its translation into parallel
// sentences, normalizes the recording, transcribes it (or reuses a stored
// transcript), aligns each sentence to a span of the transcript, cuts one
// clip per sentence and returns the sentence records the lesson API stores.
// Reslice recuts clips from timings a user adjusted by hand, Transcribe runs
// recognition alone, and GenerateTTS synthesizes the recording before
// processing it.
//
// Collaborators are interfaces so tests can substitute fakes for ffmpeg,
// WhisperX and the speech providers.
package lesson
