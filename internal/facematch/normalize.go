package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeIdentifier canonicalizes an enrollment identifier: surrounding
// whitespace is trimmed and the string is put in Unicode NFC form so that
// "Jiří" typed with combining marks and precomposed runes is the same key.
// Case and diacritics are preserved.
func NormalizeIdentifier(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// IdentifierSlug returns a lowercase, diacritic-free form of an identifier,
// used for file names of exported samples.
func IdentifierSlug(id string) string {
	s := strings.ToLower(RemoveDiacritics(NormalizeIdentifier(id)))
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		default:
			return '-'
		}
	}, s)
	return strings.Trim(s, "-")
}
