package segment

import (
	"regexp"
	"strings"
)

// MapTranslations pairs each source sentence with a translation sentence by
// relative position: source i of n maps to translation floor(i/n * m),
// clamped to the last translation. The result always has len(source)
// entries; with no translations every entry is empty.
func MapTranslations(source, translation []string) []string {
	out := make([]string, len(source))
	n := len(source)
	m := len(translation)
	if m == 0 {
		return out
	}
	for i := range source {
		idx := int(float64(i) / float64(n) * float64(m))
		out[i] = translation[min(idx, m-1)]
	}
	return out
}

var speakerTag = regexp.MustCompile(`(?im)^\s*speaker\s*\d+\s*:\s*`)

// StripSpeakerTags removes leading "Speaker N:" labels from every line so
// dialog scripts segment like plain prose.
func StripSpeakerTags(text string) string {
	return strings.TrimSpace(speakerTag.ReplaceAllString(text, ""))
}
