// Package wavfile reads and writes PCM WAV files with github.com/go-audio/wav.
//
// It writes the silent placeholder clips used when a sentence could not be
// aligned, wraps raw PCM returned by speech synthesis services (described by
// an "audio/L16;rate=24000" style MIME type) in a WAV container, and joins
// per-line dialog recordings with silent gaps.
package wavfile
