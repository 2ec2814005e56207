package textutil

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// WordSimilarity scores two words in [0, 1] after normalizing both with
// NormalizeToken. Identical normalized forms score 1; if either side
// normalizes to empty the score is 0. Otherwise the score is
// 1 - levenshtein(a, b) / max(len(a), len(b)) counted in runes.
func WordSimilarity(a, b string) float64 {
	return CompareNormalized(NormalizeToken(a), NormalizeToken(b))
}

// CompareNormalized is WordSimilarity for inputs that are already normalized.
// Callers comparing the same tokens repeatedly normalize once and use this.
func CompareNormalized(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	distance := matchr.Levenshtein(a, b)
	return 1 - float64(distance)/float64(longest)
}
