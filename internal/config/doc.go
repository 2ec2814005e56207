// Package config loads, normalizes, and validates readrepeat configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides
// (API_BASE_URL, POLL_INTERVAL, WHISPER_MODEL, DATA_DIR, GEMINI_API_KEY, ...). The Config type centralizes every knob the
// worker and CLI need so that data directories, transcription settings, and
// TTS credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
