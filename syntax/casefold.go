package syntax

import (
	"unicode"
)

// DefaultCulture holds the special casing rules of the "current culture" that
// Parse stamps onto new trees. nil means the culture has no special casing
// (which folds the same way as culture-invariant matching).
var DefaultCulture unicode.SpecialCase

// lowercaseVariants returns the characters that ch can lowercase to.
// A nil culture folds culture-invariantly: besides the simple lowercase
// mapping, other lowercase members of ch's fold orbit are included
// (e.g. 'S' yields 's' and U+017F LATIN SMALL LETTER LONG S).
func lowercaseVariants(ch rune, culture unicode.SpecialCase) []rune {
	if culture != nil {
		if lower := culture.ToLower(ch); lower != ch {
			return []rune{lower}
		}
		return nil
	}

	var out []rune
	if lower := unicode.ToLower(ch); lower != ch {
		out = append(out, lower)
	}
	if unicode.IsLower(ch) {
		return out
	}

	for f := unicode.SimpleFold(ch); f != ch; f = unicode.SimpleFold(f) {
		if unicode.IsLower(f) && !containsRune(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func containsRune(rs []rune, r rune) bool {
	for _, v := range rs {
		if v == r {
			return true
		}
	}
	return false
}
