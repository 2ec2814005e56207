package align

import (
	"fmt"
	"log/slog"
	"math"

	"readrepeat/internal/logging"
	"readrepeat/internal/textutil"
)

// Aligner maps sentences onto transcript time spans. The zero value is not
// usable; construct with New. An Aligner holds no per-call state and may be
// shared across goroutines.
type Aligner struct {
	logger  *slog.Logger
	observe func(Outcome)
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithLogger attaches a logger for per-sentence debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aligner) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithObserver registers a callback invoked once per sentence, in order.
func WithObserver(fn func(Outcome)) Option {
	return func(a *Aligner) {
		a.observe = fn
	}
}

// New constructs an Aligner.
func New(opts ...Option) *Aligner {
	a := &Aligner{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Align returns one Timing per sentence using the default Aligner.
func Align(sentences []string, words []TranscriptWord) []Timing {
	return New().Align(sentences, words)
}

// Align returns exactly one Timing per sentence, in order.
//
// An empty transcript yields all-zero timings. A sentence with no tokens
// yields a zero timing and leaves the cursor alone. A matched sentence
// advances the cursor past its window. A sentence with no acceptable window
// repeats the previous sentence's end time with confidence 0 and leaves the
// cursor where it was.
func (a *Aligner) Align(sentences []string, words []TranscriptWord) []Timing {
	timings := make([]Timing, len(sentences))
	if len(sentences) == 0 {
		return timings
	}
	if len(words) == 0 {
		logging.WarnWithContext(a.logger, "transcript has no words; all sentences left unaligned", "alignment_no_transcript",
			logging.Int("sentence_count", len(sentences)),
			logging.String(logging.FieldErrorHint, "check that the audio contains speech in the lesson language"),
			logging.String(logging.FieldImpact, "clips will be silent placeholders"),
		)
		for i := range sentences {
			a.emit(Outcome{Index: i, Status: StatusNoTranscript})
		}
		return timings
	}

	transcript := make([]string, len(words))
	for i, w := range words {
		transcript[i] = textutil.NormalizeToken(w.Word)
	}

	cursor := 0
	for i, sentence := range sentences {
		tokens := normalizeAll(textutil.AlignmentTokens(sentence))
		if len(tokens) == 0 {
			a.emit(Outcome{Index: i, Status: StatusEmpty})
			continue
		}

		window, ok := bestWindow(tokens, transcript, cursor)
		if !ok {
			prevEnd := 0
			if i > 0 {
				prevEnd = timings[i-1].EndMS
			}
			timings[i] = Timing{StartMS: prevEnd, EndMS: prevEnd}
			a.logger.Debug("sentence not aligned",
				logging.Int("sentence_index", i),
				logging.Int("cursor", cursor),
				logging.Int("token_count", len(tokens)),
			)
			a.emit(Outcome{Index: i, Status: StatusFailed, Timing: timings[i]})
			continue
		}

		timings[i] = Timing{
			StartMS:    toMillis(words[window.Start].Start),
			EndMS:      toMillis(words[window.End].End),
			Confidence: window.Score,
		}
		a.logger.Debug("sentence aligned",
			logging.Int("sentence_index", i),
			logging.Int("window_start", window.Start),
			logging.Int("window_end", window.End),
			logging.Float64("confidence", window.Score),
		)
		a.emit(Outcome{Index: i, Status: StatusMatched, Window: window, Timing: timings[i]})
		cursor = window.End + 1
	}
	return timings
}

// AlignChecked validates words before aligning.
func (a *Aligner) AlignChecked(sentences []string, words []TranscriptWord) ([]Timing, error) {
	if err := Validate(words); err != nil {
		return nil, err
	}
	return a.Align(sentences, words), nil
}

// Validate checks transcript preconditions: finite non-negative times,
// start <= end for every word, and non-decreasing start times.
func Validate(words []TranscriptWord) error {
	for i, w := range words {
		if math.IsNaN(w.Start) || math.IsNaN(w.End) || math.IsInf(w.Start, 0) || math.IsInf(w.End, 0) {
			return fmt.Errorf("%w: word %d (%q) has a non-finite time", ErrInvalidTranscript, i, w.Word)
		}
		if w.Start < 0 {
			return fmt.Errorf("%w: word %d (%q) starts before zero", ErrInvalidTranscript, i, w.Word)
		}
		if w.End < w.Start {
			return fmt.Errorf("%w: word %d (%q) ends at %.3fs before it starts at %.3fs", ErrInvalidTranscript, i, w.Word, w.End, w.Start)
		}
		if i > 0 && w.Start < words[i-1].Start {
			return fmt.Errorf("%w: word %d (%q) starts at %.3fs, before word %d at %.3fs", ErrInvalidTranscript, i, w.Word, w.Start, i-1, words[i-1].Start)
		}
	}
	return nil
}

func (a *Aligner) emit(o Outcome) {
	if a.observe != nil {
		a.observe(o)
	}
}

func toMillis(seconds float64) int {
	return int(math.Floor(seconds * 1000))
}
