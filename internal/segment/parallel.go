package segment

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinWords is the word count below which a sentence is merged into
// its successor while balancing parallel texts.
const DefaultMinWords = 2

type parallelOptions struct {
	minWords int
}

// Option configures AlignParallel.
type Option func(*parallelOptions)

// WithMinWords sets the short-sentence threshold used when balancing.
// Values below 1 are ignored.
func WithMinWords(n int) Option {
	return func(o *parallelOptions) {
		if n >= 1 {
			o.minWords = n
		}
	}
}

// AlignParallel segments two line-parallel texts and returns sentence lists
// of equal length. Line k of textA pairs with line k of textB; a missing line
// counts as empty. Both sides empty contributes nothing. One side empty pairs
// each sentence of the other side with an empty string. Otherwise the side
// with more sentences has its short sentences merged forward, and if the
// counts still differ the shortest sentences on the longer side are merged
// into their successors until both sides match.
func AlignParallel(textA, textB, langA, langB string, opts ...Option) ([]string, []string) {
	o := parallelOptions{minWords: DefaultMinWords}
	for _, opt := range opts {
		opt(&o)
	}

	linesA := strings.Split(textA, "\n")
	linesB := strings.Split(textB, "\n")
	total := max(len(linesA), len(linesB))

	var outA, outB []string
	for k := range total {
		lineA := lineAt(linesA, k)
		lineB := lineAt(linesB, k)
		emptyA := strings.TrimSpace(lineA) == ""
		emptyB := strings.TrimSpace(lineB) == ""

		switch {
		case emptyA && emptyB:
			continue
		case emptyA:
			for _, s := range Split(lineB, langB) {
				outA = append(outA, "")
				outB = append(outB, s)
			}
			continue
		case emptyB:
			for _, s := range Split(lineA, langA) {
				outA = append(outA, s)
				outB = append(outB, "")
			}
			continue
		}

		a, b := balance(Split(lineA, langA), Split(lineB, langB), o.minWords)
		outA = append(outA, a...)
		outB = append(outB, b...)
	}
	return outA, outB
}

func lineAt(lines []string, k int) string {
	if k < len(lines) {
		return lines[k]
	}
	return ""
}

// balance equalizes the sentence counts of one line pair.
func balance(a, b []string, minWords int) ([]string, []string) {
	for len(a) > len(b) && len(a) > 1 {
		next := mergeShort(a, minWords)
		if len(next) == len(a) {
			break
		}
		a = next
	}
	for len(b) > len(a) && len(b) > 1 {
		next := mergeShort(b, minWords)
		if len(next) == len(b) {
			break
		}
		b = next
	}
	if len(a) == len(b) {
		return a, b
	}

	if len(a) == 0 || len(b) == 0 {
		// Segmentation produced nothing on one side; pad it.
		target := max(len(a), len(b))
		return pad(a, target), pad(b, target)
	}
	target := min(len(a), len(b))
	return forceMerge(a, target), forceMerge(b, target)
}

// mergeShort makes one left-to-right pass, folding every sentence with fewer
// than minWords words into the sentence that follows it. The final sentence
// has no successor and is never folded.
func mergeShort(sentences []string, minWords int) []string {
	out := make([]string, 0, len(sentences))
	carry := ""
	for i, s := range sentences {
		if carry != "" {
			s = carry + " " + s
			carry = ""
		}
		if i < len(sentences)-1 && wordCount(s) < minWords {
			carry = s
			continue
		}
		out = append(out, s)
	}
	return out
}

// forceMerge repeatedly merges the shortest non-final sentence, by character
// count, into its successor until len(sentences) == target.
func forceMerge(sentences []string, target int) []string {
	out := append([]string(nil), sentences...)
	for len(out) > target && len(out) > 1 {
		shortest := 0
		for i := 1; i < len(out)-1; i++ {
			if utf8.RuneCountInString(out[i]) < utf8.RuneCountInString(out[shortest]) {
				shortest = i
			}
		}
		merged := out[shortest] + " " + out[shortest+1]
		out = append(out[:shortest], out[shortest+1:]...)
		out[shortest] = merged
	}
	return out
}

func pad(sentences []string, target int) []string {
	for len(sentences) < target {
		sentences = append(sentences, "")
	}
	return sentences
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
