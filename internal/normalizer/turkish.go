package normalizer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var asciiFolder = strings.NewReplacer(
	"ı", "i",
	"ş", "s",
	"ğ", "g",
	"ü", "u",
	"ö", "o",
	"ç", "c",
	"â", "a",
	"î", "i",
	"û", "u",
	"_", " ",
	" ", " ",
)

// Lower lowercases s with Turkish casing rules (I -> ı, İ -> i).
func Lower(s string) string {
	// cases.Caser is stateful; build one per call so Lower is goroutine safe.
	return cases.Lower(language.Turkish).String(s)
}

// Fold lowercases s the Turkish way, strips Turkish diacritics and
// collapses whitespace, so "SATIŞ MİKTARI" and "Satis miktari" compare equal.
func Fold(s string) string {
	folded := asciiFolder.Replace(Lower(strings.TrimSpace(s)))
	return strings.Join(strings.Fields(folded), " ")
}

// ContainsAny reports whether the folded text contains any keyword.
func ContainsAny(folded string, keywords ...string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(folded, k) {
			return true
		}
	}
	return false
}
