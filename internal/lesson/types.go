package lesson

import (
	"readrepeat/internal/transcribe"
)

// Lesson is the input to Process.
type Lesson struct {
	ID              string
	ForeignText     string
	TranslationText string
	AudioPath       string
	ForeignLang     string
	TranslationLang string
	WhisperModel    string
	// Cached, when non-empty, replaces running speech recognition.
	Cached *transcribe.Cached
}

// SentenceRecord is one processed sentence as stored by the lesson API.
type SentenceRecord struct {
	ID              string  `json:"id"`
	Idx             int     `json:"idx"`
	ForeignText     string  `json:"foreignText"`
	TranslationText string  `json:"translationText"`
	StartMS         int     `json:"startMs"`
	EndMS           int     `json:"endMs"`
	ClipPath        string  `json:"clipPath"`
	Confidence      float64 `json:"confidence"`
}

// SentenceTiming is a stored sentence whose boundaries may have been edited.
// A nil Confidence is treated as 1.
type SentenceTiming struct {
	ID         string   `json:"id"`
	Idx        int      `json:"idx"`
	StartMS    int      `json:"startMs"`
	EndMS      int      `json:"endMs"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ClipUpdate points a sentence at its new clip.
type ClipUpdate struct {
	ID       string `json:"id"`
	ClipPath string `json:"clipPath"`
}

// TranscribeRequest describes a standalone transcription.
type TranscribeRequest struct {
	AudioFileID string
	AudioPath   string
	Language    string
	Model       string
}

// TranscriptionReport is the outcome of a standalone transcription.
type TranscriptionReport struct {
	AudioFileID   string            `json:"audioFileId"`
	Transcription transcribe.Result `json:"transcription"`
	DurationMS    int               `json:"durationMs"`
	Language      string            `json:"language"`
}

// SpeakerMode selects single-voice or two-voice synthesis.
type SpeakerMode string

const (
	SpeakerModeArticle SpeakerMode = "article"
	SpeakerModeDialog  SpeakerMode = "dialog"
)

// TTSRequest describes a lesson whose recording is synthesized.
type TTSRequest struct {
	Lesson   Lesson
	Provider string
	Voice    string
	Voice2   string
	Model    string
	Mode     SpeakerMode
}
