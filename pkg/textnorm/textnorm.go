// Package textnorm holds the small set of string-normalisation helpers
// shared by the metadata parsers, the scanner and the query layer:
// stripping decorative punctuation from titles, deriving the alphabet
// bucket a string belongs to, and turning a typed author name into the
// library's canonical "last-name-first" form.
package textnorm

import (
	"strings"
	"unicode"
)

// Alphabet buckets used by the /authors/, /series/ and /books/ prefix
// drill-down and by Book.lang_code / Author.lang_code / Series.lang_code.
const (
	LangCyrillic = 1
	LangLatin    = 2
	LangDigit    = 3
	LangOther    = 9
)

// metaCutset is the set of characters StripMeta trims from both ends of
// a string before looking at enclosing quote pairs.
const metaCutset = " \t\r\n&'-.;#\\`"

var quotePairs = []struct {
	open, close rune
}{
	{'\'', '\''},
	{'"', '"'},
	{'«', '»'},
}

// StripMeta trims whitespace and decorative punctuation from a raw
// title/author/series string, then removes one level of enclosing
// matched quote marks ('…', "…", «…»).
func StripMeta(s string) string {
	s = strings.Trim(s, metaCutset)
	for _, qp := range quotePairs {
		runes := []rune(s)
		if len(runes) >= 2 && runes[0] == qp.open && runes[len(runes)-1] == qp.close {
			s = strings.TrimSpace(string(runes[1 : len(runes)-1]))
		}
	}
	return s
}

// DetectLangCode inspects the first significant (non-space) character
// of s and buckets it per spec.md §8.8: Latin letters -> 2, digits -> 3,
// Cyrillic (U+0400..U+052F) -> 1, everything else (including the empty
// string) -> 9.
func DetectLangCode(s string) int {
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		switch {
		case r >= 0x0400 && r <= 0x052F:
			return LangCyrillic
		case unicode.IsDigit(r):
			return LangDigit
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			return LangLatin
		default:
			return LangOther
		}
	}
	return LangOther
}

// NormalizeAuthorName collapses internal whitespace and reorders a typed
// author name into "last-name-first" form: if the input already
// contains a comma ("Doe, John") the comma is simply replaced by a
// space; otherwise the last space-separated token is moved to the
// front ("John Doe" -> "Doe John").
func NormalizeAuthorName(s string) string {
	s = collapseSpace(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	if idx := strings.Index(s, ","); idx >= 0 {
		return collapseSpace(strings.Replace(s, ",", " ", 1))
	}
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return s
	}
	last := parts[len(parts)-1]
	rest := parts[:len(parts)-1]
	return last + " " + strings.Join(rest, " ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SearchKey is the uppercase form stored in search_title/search_full_name
// columns, matching the invariants in spec.md §3.2.
func SearchKey(s string) string {
	return strings.ToUpper(s)
}
