package align

import "errors"

// TranscriptWord is one recognized word with times in seconds.
type TranscriptWord struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// Timing is the located span of one sentence in milliseconds. Confidence 0
// means the sentence could not be aligned.
type Timing struct {
	StartMS    int     `json:"start_ms"`
	EndMS      int     `json:"end_ms"`
	Confidence float64 `json:"confidence"`
}

// Aligned reports whether the timing came from a successful window match.
func (t Timing) Aligned() bool {
	return t.Confidence > 0
}

// Window is a candidate transcript span [Start, End] (inclusive word indexes)
// and its score.
type Window struct {
	Start int
	End   int
	Score float64
}

// Status classifies the outcome for one sentence.
type Status string

const (
	// StatusMatched means a window scored at or above the acceptance threshold.
	StatusMatched Status = "matched"
	// StatusFailed means no window qualified; the cursor stays put.
	StatusFailed Status = "failed"
	// StatusEmpty means the sentence had no alignable tokens.
	StatusEmpty Status = "empty"
	// StatusNoTranscript means the transcript had no words at all.
	StatusNoTranscript Status = "no_transcript"
)

// Outcome describes how one sentence was aligned.
type Outcome struct {
	Index  int
	Status Status
	Window Window
	Timing Timing
}

// ErrInvalidTranscript marks transcripts that violate ordering or timing
// preconditions.
var ErrInvalidTranscript = errors.New("invalid transcript")
