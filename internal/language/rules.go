package language

const (
	latinTerminators = ".!?"
	cjkTerminators   = "。！？"
)

// Rules holds the sentence boundary conventions for one language.
type Rules struct {
	// Terminators lists every rune that can end a sentence.
	Terminators string
	// Abbreviations are lowercase words (without trailing terminators) that
	// never end a sentence even when followed by a terminator.
	Abbreviations map[string]struct{}
	// SplitOnTerminators means every terminator run ends a sentence, with no
	// abbreviation or capitalization heuristics.
	SplitOnTerminators bool
}

var englishAbbreviations = set(
	"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "vs", "etc", "e.g", "i.e", "no", "vol",
)

var rulesByBase = map[string]Rules{
	"en": {Terminators: latinTerminators, Abbreviations: englishAbbreviations},
	"fr": {Terminators: latinTerminators, Abbreviations: set("m", "mme", "mlle", "dr", "etc")},
	"de": {Terminators: latinTerminators, Abbreviations: set("dr", "hr", "fr", "bzw", "usw", "z.b", "etc")},
	// Inverted marks are terminators too, so a leading "¿" or "¡" splits off
	// as its own sentence: "¿Cómo estás?" yields "¿", "Cómo estás?".
	"es": {Terminators: latinTerminators + "¡¿", Abbreviations: set("sr", "sra", "srta", "dr", "dra", "ud", "uds", "etc")},
	"zh": {Terminators: cjkTerminators, SplitOnTerminators: true},
	"ja": {Terminators: cjkTerminators, SplitOnTerminators: true},
	"ko": {Terminators: cjkTerminators + latinTerminators},
}

var defaultRules = Rules{Terminators: latinTerminators + cjkTerminators}

// RulesFor returns the segmentation rules for a language tag. Only the base
// subtag is consulted; unknown languages get a combined Latin and CJK
// terminator class with no abbreviations.
func RulesFor(tag string) Rules {
	if rules, ok := rulesByBase[Base(tag)]; ok {
		return rules
	}
	return defaultRules
}

// IsAbbreviation reports whether word is a known abbreviation for these rules.
func (r Rules) IsAbbreviation(word string) bool {
	_, ok := r.Abbreviations[word]
	return ok
}

func set(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}
