package statement

import (
	"regexp"
	"strings"
)

// ExtractField returns the trimmed first capture group of pattern in text, or
// "" when the pattern does not match. A miss is not an error.
func ExtractField(pattern *regexp.Regexp, text string) string {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
