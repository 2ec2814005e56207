package textutil

import (
	"math"
	"testing"
)

func TestWordSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical after normalization", "Hello,", "hello", 1},
		{"one substitution", "cat", "bat", 1 - 1.0/3},
		{"insertion", "color", "colour", 1 - 1.0/6},
		{"completely different", "abc", "xyz", 0},
		{"empty left", "", "word", 0},
		{"empty right", "word", "", 0},
		{"punctuation only", "!!", "!!", 0},
		{"multibyte runes", "naïve", "naive", 1 - 1.0/5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WordSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("WordSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestWordSimilaritySymmetricAndBounded(t *testing.T) {
	words := []string{"hello", "hallo", "world", "word", "Thank", "thanks", "you're", "your", "", "a"}
	for _, a := range words {
		for _, b := range words {
			ab := WordSimilarity(a, b)
			ba := WordSimilarity(b, a)
			if ab != ba {
				t.Fatalf("similarity not symmetric for %q/%q: %v vs %v", a, b, ab, ba)
			}
			if ab < 0 || ab > 1 {
				t.Fatalf("similarity out of range for %q/%q: %v", a, b, ab)
			}
		}
	}
}

func TestWordSimilarityDissimilarWords(t *testing.T) {
	if got := WordSimilarity("cat", "dog"); got >= 0.5 {
		t.Fatalf("WordSimilarity(cat, dog) = %v, want < 0.5", got)
	}
	if got := WordSimilarity("Hello!", "hello"); got != 1 {
		t.Fatalf("WordSimilarity of equal normalized forms = %v, want 1", got)
	}
}
