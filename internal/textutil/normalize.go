package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// lower returns the Unicode lowercase form of s in NFC. Casers are not safe
// for concurrent use, so one is built per call.
func lower(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

// NormalizeToken lowercases s, removes every rune that is neither a word
// character nor whitespace, collapses whitespace runs to a single space and
// trims the result. "Hello," and "hello" normalize to the same token.
func NormalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range lower(s) {
		switch {
		case isWordRune(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// AlignmentTokens lowercases s, turns every rune that is not a word
// character, whitespace, or apostrophe into a space, and splits on
// whitespace. Apostrophes survive so "don't" stays a single token.
func AlignmentTokens(s string) []string {
	mapped := strings.Map(func(r rune) rune {
		if isWordRune(r) || r == '\'' || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, lower(s))
	return strings.Fields(mapped)
}

// Tokenize splits text into display tokens for the given base language.
// Chinese, Japanese, and Korean text is split into individual Han, kana, or
// Hangul characters with everything else dropped; other languages use
// AlignmentTokens.
func Tokenize(text, base string) []string {
	switch base {
	case "zh", "ja", "ko":
		var tokens []string
		for _, r := range lower(text) {
			if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
				tokens = append(tokens, string(r))
			}
		}
		return tokens
	default:
		return AlignmentTokens(text)
	}
}
