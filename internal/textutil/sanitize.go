package textutil

import "strings"

// SanitizeToken turns an identifier such as a job or lesson ID into a
// lowercase path segment. ASCII letters, digits, '-' and '_' survive; any
// other rune becomes '_'. Leading and trailing separators are trimmed, and
// an input with nothing left yields "unknown".
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case 'A' <= r && r <= 'Z':
			return r + 'a' - 'A'
		case 'a' <= r && r <= 'z', '0' <= r && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(value))
	if token = strings.Trim(token, "_-"); token == "" {
		return "unknown"
	}
	return token
}
