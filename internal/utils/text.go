package utils

import "strings"

// Normalize lower-cases text, collapses whitespace runs to single spaces and trims the ends
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// ContainsAny reports whether normalized haystack contains any normalized needle
func ContainsAny(haystack string, needles []string) bool {
	h := Normalize(haystack)
	for _, n := range needles {
		n = Normalize(n)
		if n != "" && strings.Contains(h, n) {
			return true
		}
	}
	return false
}

// ContainsPhrase reports whether phrase occurs in text on token boundaries.
// Both arguments are expected to be normalized.
func ContainsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+tokenize(text)+" ", " "+tokenize(phrase)+" ")
}

// tokenize replaces everything that is not a letter or digit with a space
func tokenize(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !isWordRune(r)
	}), " ")
}

func isWordRune(r rune) bool {
	return r == '+' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127
}
