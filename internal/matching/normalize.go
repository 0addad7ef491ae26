package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// "500 mg", "5 ml", "0.5 g" etc. written with a space before the unit
	spacedStrengthRe = regexp.MustCompile(`(\d)\s+(mg|mcg|µg|g|ml|iu)\b`)
	decimalCommaRe   = regexp.MustCompile(`(\d),(\d)`)
)

// RemoveDiacritics strips combining marks after NFD decomposition,
// so "Paracetamól" becomes "Paracetamol".
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// NormalizeStrength joins a dose with its unit and uses a decimal point,
// "0,5 ml" -> "0.5ml". Input is expected to be lowercase.
func NormalizeStrength(s string) string {
	s = decimalCommaRe.ReplaceAllString(s, "$1.$2")
	return spacedStrengthRe.ReplaceAllString(s, "$1$2")
}

// NormalizeName prepares a medicine name for substring comparison.
// Includes diacritic removal, lowercasing, whitespace cleanup and strength joining.
func NormalizeName(name string) string {
	text := strings.ToLower(RemoveDiacritics(name))
	text = strings.Join(strings.Fields(text), " ")
	return NormalizeStrength(text)
}
