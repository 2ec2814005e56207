package align

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
)

func greetingTranscript() []TranscriptWord {
	words := []struct {
		word       string
		start, end float64
	}{
		{"Hello", 0.0, 0.5},
		{"how", 0.6, 0.8},
		{"are", 0.9, 1.0},
		{"you", 1.1, 1.3},
		{"today", 1.4, 1.8},
		{"I", 2.0, 2.1},
		{"am", 2.2, 2.3},
		{"doing", 2.4, 2.7},
		{"well", 2.8, 3.0},
		{"thank", 3.1, 3.3},
		{"you", 3.4, 3.5},
		{"The", 4.0, 4.2},
		{"weather", 4.3, 4.7},
		{"is", 4.8, 4.9},
		{"nice", 5.0, 5.3},
	}
	out := make([]TranscriptWord, len(words))
	for i, w := range words {
		out[i] = TranscriptWord{Word: w.word, Start: w.start, End: w.end, Probability: 0.9}
	}
	return out
}

func TestAlignEmptyTranscript(t *testing.T) {
	var outcomes []Outcome
	aligner := New(WithObserver(func(o Outcome) { outcomes = append(outcomes, o) }))

	got := aligner.Align([]string{"One.", "Two.", "Three."}, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 timings, got %d", len(got))
	}
	for i, timing := range got {
		if timing != (Timing{}) {
			t.Fatalf("timing %d: got %+v want zero", i, timing)
		}
	}
	if len(outcomes) != 3 || outcomes[0].Status != StatusNoTranscript {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
}

func TestAlignEmptySentences(t *testing.T) {
	if got := Align(nil, greetingTranscript()); len(got) != 0 {
		t.Fatalf("expected no timings, got %+v", got)
	}
}

func TestAlignExactTranscript(t *testing.T) {
	sentences := []string{"Hello how are you today", "I am doing well thank you", "The weather is nice"}
	got := Align(sentences, greetingTranscript())

	want := []struct{ start, end int }{{0, 1800}, {2000, 3500}, {4000, 5300}}
	if len(got) != len(want) {
		t.Fatalf("expected %d timings, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].StartMS != w.start || got[i].EndMS != w.end {
			t.Fatalf("sentence %d: got %d-%d want %d-%d", i, got[i].StartMS, got[i].EndMS, w.start, w.end)
		}
		if got[i].Confidence <= 0.6 {
			t.Fatalf("sentence %d: confidence %v too low", i, got[i].Confidence)
		}
		if i > 0 && got[i-1].EndMS > got[i].StartMS {
			t.Fatalf("sentence %d overlaps previous: %+v then %+v", i, got[i-1], got[i])
		}
	}
}

func TestAlignPunctuatedSentences(t *testing.T) {
	sentences := []string{"Hello, how are you today?", "I am doing well, thank you.", "The weather is nice."}
	got := Align(sentences, greetingTranscript())
	for i, timing := range got {
		if !timing.Aligned() {
			t.Fatalf("sentence %d was not aligned: %+v", i, timing)
		}
	}
}

func TestAlignFailedSentenceKeepsCursor(t *testing.T) {
	sentences := []string{
		"Hello how are you today",
		"Xyzzy plugh frobozz quux",
		"I am doing well thank you",
	}
	got := Align(sentences, greetingTranscript())

	if got[1] != (Timing{StartMS: 1800, EndMS: 1800}) {
		t.Fatalf("failed sentence should repeat previous end, got %+v", got[1])
	}
	if got[2].StartMS != 2000 || got[2].EndMS != 3500 || !got[2].Aligned() {
		t.Fatalf("sentence after failure should align from the unconsumed cursor, got %+v", got[2])
	}
}

func TestAlignFirstSentenceFailureStartsAtZero(t *testing.T) {
	got := Align([]string{"Xyzzy plugh frobozz"}, greetingTranscript())
	if got[0] != (Timing{}) {
		t.Fatalf("expected zero timing, got %+v", got[0])
	}
}

func TestAlignTokenlessSentence(t *testing.T) {
	var statuses []Status
	aligner := New(WithObserver(func(o Outcome) { statuses = append(statuses, o.Status) }))
	got := aligner.Align([]string{"Hello how are you today", "...", "I am doing well thank you"}, greetingTranscript())

	if got[1] != (Timing{}) {
		t.Fatalf("tokenless sentence should get a zero timing, got %+v", got[1])
	}
	if got[2].StartMS != 2000 {
		t.Fatalf("tokenless sentence must not move the cursor, got %+v", got[2])
	}
	want := []Status{StatusMatched, StatusEmpty, StatusMatched}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("status %d: got %s want %s", i, statuses[i], want[i])
		}
	}
}

func TestAlignToleratesRecognitionNoise(t *testing.T) {
	words := greetingTranscript()
	words[1].Word = "hw"
	words[4].Word = "todey"
	got := Align([]string{"Hello how are you today"}, words)
	if !got[0].Aligned() || got[0].StartMS != 0 || got[0].EndMS != 1800 {
		t.Fatalf("expected noisy sentence to align to 0-1800, got %+v", got[0])
	}
}

func TestAlignLengthAndCursorProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	vocabulary := strings.Fields("the a cat dog sat on mat ran fast slow red blue big small house tree")

	for trial := range 40 {
		var words []TranscriptWord
		clock := 0.0
		for range rng.IntN(60) {
			words = append(words, TranscriptWord{
				Word:        vocabulary[rng.IntN(len(vocabulary))],
				Start:       clock,
				End:         clock + 0.2,
				Probability: 0.8,
			})
			clock += 0.3
		}
		sentences := make([]string, rng.IntN(8))
		for i := range sentences {
			parts := make([]string, 1+rng.IntN(6))
			for j := range parts {
				parts[j] = vocabulary[rng.IntN(len(vocabulary))]
			}
			sentences[i] = strings.Join(parts, " ")
		}

		lastEnd := -1
		aligner := New(WithObserver(func(o Outcome) {
			if o.Status != StatusMatched {
				return
			}
			if o.Window.Start < lastEnd+1 {
				t.Fatalf("trial %d: window %+v reuses words before %d", trial, o.Window, lastEnd+1)
			}
			lastEnd = o.Window.End
		}))
		got := aligner.Align(sentences, words)
		if len(got) != len(sentences) {
			t.Fatalf("trial %d: got %d timings for %d sentences", trial, len(got), len(sentences))
		}
		for i, timing := range got {
			if timing.StartMS < 0 || timing.EndMS < timing.StartMS {
				t.Fatalf("trial %d sentence %d: bad timing %+v", trial, i, timing)
			}
			if timing.Confidence < 0 || timing.Confidence > 1 {
				t.Fatalf("trial %d sentence %d: confidence out of range %+v", trial, i, timing)
			}
		}
	}
}

func TestAlignChecked(t *testing.T) {
	words := greetingTranscript()
	words[3].End = words[3].Start - 0.1
	if _, err := New().AlignChecked([]string{"Hello"}, words); !errors.Is(err, ErrInvalidTranscript) {
		t.Fatalf("expected ErrInvalidTranscript, got %v", err)
	}

	got, err := New().AlignChecked([]string{"Hello how are you today"}, greetingTranscript())
	if err != nil {
		t.Fatalf("AlignChecked: %v", err)
	}
	if len(got) != 1 || !got[0].Aligned() {
		t.Fatalf("unexpected timings: %+v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		words   []TranscriptWord
		wantErr bool
	}{
		{"empty", nil, false},
		{"ordered", []TranscriptWord{{Word: "a", Start: 0, End: 1}, {Word: "b", Start: 1, End: 1}}, false},
		{"end before start", []TranscriptWord{{Word: "a", Start: 1, End: 0.5}}, true},
		{"unsorted", []TranscriptWord{{Word: "a", Start: 2, End: 3}, {Word: "b", Start: 1, End: 4}}, true},
		{"negative", []TranscriptWord{{Word: "a", Start: -1, End: 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.words)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTranscript) {
				t.Fatalf("expected ErrInvalidTranscript, got %v", err)
			}
		})
	}
}

func BenchmarkAlignLongSentence(b *testing.B) {
	var words []TranscriptWord
	var sentence []string
	for i := range 40 {
		w := fmt.Sprintf("word%d", i)
		sentence = append(sentence, w)
		words = append(words, TranscriptWord{Word: w, Start: float64(i), End: float64(i) + 0.5})
	}
	sentences := []string{strings.Join(sentence, " ")}
	b.ResetTimer()
	for range b.N {
		Align(sentences, words)
	}
}
