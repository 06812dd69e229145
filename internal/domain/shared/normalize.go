package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes to NFD, drops combining marks, and recomposes.
// "María" → "Maria", "Núñez" → "Nunez".
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics removes combining marks from a string.
func StripDiacritics(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		// Transform only fails on invalid UTF-8; fall back to the input.
		return s
	}
	return out
}

// Fold normalizes a string for comparison: trims whitespace, strips
// diacritics, and lower-cases. Group labels and student group fields may
// have been entered with inconsistent encoding and case, so every
// group-to-student comparison must go through this single function on
// both sides.
func Fold(s string) string {
	return strings.ToLower(StripDiacritics(strings.TrimSpace(s)))
}

// HandleToken reduces a name token to the characters allowed in a login
// handle: diacritics stripped, lower-cased, everything but ASCII letters
// and digits removed.
func HandleToken(s string) string {
	folded := Fold(s)
	var b strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
