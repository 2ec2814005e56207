// Package tts synthesizes lesson audio from text.
//
// Two providers are implemented: Gemini (REST generateContent returning raw
// PCM that is wrapped into WAV) and Chatterbox (an OpenAI-compatible speech
// endpoint returning WAV). Dialog texts use "Speaker 1:" / "Speaker 2:"
// tags; Gemini renders both voices in one request while Chatterbox
// synthesizes line by line and joins the recordings with short pauses.
//
// Registry picks a provider by id or falls back to the first available one.
package tts
