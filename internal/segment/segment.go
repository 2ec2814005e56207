package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"readrepeat/internal/language"
	"readrepeat/internal/textutil"
)

// Sentence is one segmented sentence with its word and token views.
type Sentence struct {
	Text   string   `json:"text"`
	Words  []string `json:"words"`
	Tokens []string `json:"tokens"`
}

// Segment splits text into sentences and attaches whitespace words and
// language-aware tokens to each.
func Segment(text, lang string) []Sentence {
	base := language.Base(lang)
	parts := Split(text, lang)
	out := make([]Sentence, 0, len(parts))
	for _, part := range parts {
		out = append(out, Sentence{
			Text:   part,
			Words:  strings.Fields(part),
			Tokens: textutil.Tokenize(part, base),
		})
	}
	return out
}

// Split breaks text into trimmed, non-empty sentences, in order.
//
// All whitespace runs (newlines included) collapse to a single space first.
// Chinese and Japanese end a sentence after every terminator run. Every other
// language ends a sentence after a terminator run unless the word before it
// is a known abbreviation or a single letter, or the text after it starts
// with a lowercase letter. Text after the last terminator becomes a final
// sentence.
func Split(text, lang string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	rules := language.RulesFor(lang)
	parts := splitRuns(text, rules.Terminators)
	if rules.SplitOnTerminators {
		return splitEveryTerminator(parts)
	}
	return splitWestern(parts, rules)
}

// run is a maximal stretch of text that is either all terminators or has none.
type run struct {
	text       string
	terminator bool
}

func splitRuns(text, terminators string) []run {
	var runs []run
	start := 0
	inTerm := false
	for i, r := range text {
		isTerm := strings.ContainsRune(terminators, r)
		if i > 0 && isTerm != inTerm {
			runs = append(runs, run{text: text[start:i], terminator: inTerm})
			start = i
		}
		inTerm = isTerm
	}
	runs = append(runs, run{text: text[start:], terminator: inTerm})
	return runs
}

func splitEveryTerminator(parts []run) []string {
	var sentences []string
	var current strings.Builder
	for _, part := range parts {
		current.WriteString(part.text)
		if part.terminator {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func splitWestern(parts []run, rules language.Rules) []string {
	var sentences []string
	var current strings.Builder
	for i, part := range parts {
		current.WriteString(part.text)
		if !part.terminator {
			continue
		}
		if endsWithAbbreviation(current.String(), rules) {
			continue
		}
		if i+1 < len(parts) && startsLower(parts[i+1].text) {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func endsWithAbbreviation(current string, rules language.Rules) bool {
	words := strings.Fields(strings.ToLower(current))
	if len(words) == 0 {
		return false
	}
	last := strings.TrimRight(words[len(words)-1], rules.Terminators)
	if rules.IsAbbreviation(last) {
		return true
	}
	if utf8.RuneCountInString(last) == 1 {
		r, _ := utf8.DecodeRuneInString(last)
		return unicode.IsLetter(r)
	}
	return false
}

func startsLower(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text)
	return unicode.IsLower(r)
}
