package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "am": {},
	"are": {}, "to": {}, "and": {}, "of": {}, "in": {},
}

var folder = cases.Fold()

// Fold lowercases s and strips combining marks so "Café" and "cafe" share a key.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return folder.String(stripped)
}

// Words folds text, drops punctuation, and removes stopwords. The result
// preserves input order and may be empty.
func Words(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, Fold(text))

	fields := strings.Fields(cleaned)
	words := fields[:0]
	for _, w := range fields {
		if _, skip := stopwords[w]; skip {
			continue
		}
		words = append(words, w)
	}
	return words
}

// IsStopword reports whether a folded word is dropped before lookup.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
