package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// names holds display names for the languages lessons are usually written
// in, keyed by ISO 639-1 code.
var names = map[string]string{
	"ar": "Arabic", "da": "Danish", "de": "German", "en": "English",
	"es": "Spanish", "fi": "Finnish", "fr": "French", "hi": "Hindi",
	"it": "Italian", "ja": "Japanese", "ko": "Korean", "nl": "Dutch",
	"no": "Norwegian", "pl": "Polish", "pt": "Portuguese", "ru": "Russian",
	"sv": "Swedish", "zh": "Chinese",
}

// aliases maps ISO 639-2 codes (both B and T forms) and English words that
// show up in lesson payloads and WhisperX output onto ISO 639-1.
var aliases = map[string]string{
	"ara": "ar", "dan": "da", "deu": "de", "ger": "de", "eng": "en",
	"spa": "es", "fin": "fi", "fra": "fr", "fre": "fr", "hin": "hi",
	"ita": "it", "jpn": "ja", "kor": "ko", "nld": "nl", "dut": "nl",
	"nor": "no", "pol": "pl", "por": "pt", "rus": "ru", "swe": "sv",
	"zho": "zh", "chi": "zh",
	"arabic": "ar", "danish": "da", "german": "de", "english": "en",
	"spanish": "es", "finnish": "fi", "french": "fr", "hindi": "hi",
	"italian": "it", "japanese": "ja", "korean": "ko", "dutch": "nl",
	"norwegian": "no", "polish": "pl", "portuguese": "pt", "russian": "ru",
	"swedish": "sv", "chinese": "zh", "mandarin": "zh",
}

func known(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, ok := names[code]; ok {
		return code, true
	}
	iso2, ok := aliases[code]
	return iso2, ok
}

// Base reduces a language tag to its lowercase base subtag.
// "en-US", "eng", and "English" all become "en". Tags x/text cannot parse
// fall back to everything before the first '-' or '_'. Empty input yields "".
func Base(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if code, ok := known(tag); ok {
		return code
	}
	if parsed, err := xlanguage.Parse(tag); err == nil {
		base, _ := parsed.Base()
		if code := base.String(); code != "" && code != "und" {
			return code
		}
	}
	head, _, _ := strings.Cut(strings.ReplaceAll(tag, "_", "-"), "-")
	return strings.ToLower(head)
}

// DisplayName returns the English name of a language tag. Languages outside
// the built-in table are named by x/text; anything still unrecognized is
// echoed uppercased, and empty input yields "Unknown".
func DisplayName(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "Unknown"
	}
	code := Base(tag)
	if name, ok := names[code]; ok {
		return name
	}
	if parsed, err := xlanguage.Parse(code); err == nil {
		if name := display.English.Languages().Name(parsed); name != "" {
			return name
		}
	}
	return strings.ToUpper(tag)
}
