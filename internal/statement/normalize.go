package statement

import (
	"math"
	"strconv"
	"strings"
)

// ToAmount converts a statement amount such as "1,234.56" to a float.
// Anything that does not parse (empty, malformed, NaN, overflow) yields 0.
func ToAmount(text string) float64 {
	s := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ToCount converts an integer count, yielding 0 when it does not parse.
func ToCount(text string) int {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0
	}
	return v
}
