package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var lowerPT = cases.Lower(language.BrazilianPortuguese)

// fold lowercases s and strips diacritics so "ÁRVORE" matches "arvore".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return lowerPT.String(strings.TrimSpace(out))
}

func matches(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(fold(haystack), fold(needle))
}
