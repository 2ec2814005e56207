// Package ffmpeg wraps the ffmpeg invocations the lesson pipeline needs.
//
// Normalize converts an uploaded recording into the 16 kHz mono s16le WAV
// that transcription and slicing expect. Slicer cuts one clip per aligned
// sentence, running cuts in parallel and falling back to a silent
// placeholder clip when a sentence has no usable timing or ffmpeg fails.
// Command execution is injectable so tests never spawn ffmpeg.
package ffmpeg
