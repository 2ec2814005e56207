// Package language normalizes language tags and carries the per-language
// rules used by sentence segmentation.
//
// Tags arrive from lesson payloads, CLI flags, and WhisperX output in many
// shapes ("en", "en-US", "eng", "English"). Base reduces all of them to the
// ISO 639-1 base subtag, which is the only part segmentation, transcription,
// and display care about.
package language
