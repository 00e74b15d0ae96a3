package normalize

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks decomposes accented letters and drops the combining marks,
// so "é" becomes "e" before transliteration sees it.
func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// ASCII returns the closest plain-ASCII rendering of text.
// Latin diacritics are stripped and other scripts are transliterated.
func ASCII(text string) string {
	folded, _, err := transform.String(foldMarks(), text)
	if err != nil {
		folded = text
	}
	return unidecode.Unidecode(folded)
}

// Key converts free-form text into the canonical matching key used by the
// catalog index and by tag lookups: ASCII-folded, lower-cased, stripped of
// everything but [a-z0-9], with one trailing "s" removed.
//
// A double "ss" ending is left alone so that Key(Key(x)) == Key(x).
func Key(text string) string {
	lower := strings.ToLower(ASCII(text))

	var b strings.Builder
	b.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}

	key := b.String()
	if strings.HasSuffix(key, "ss") {
		return key
	}
	return strings.TrimSuffix(key, "s")
}
