package catalog

import (
	"regexp"
	"strings"
)

var (
	isbnJunk    = regexp.MustCompile(`[^0-9Xx]`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// canonicalISBNLengths are the only identifier lengths accepted after
// cleanup and zero-padding.
var canonicalISBNLengths = map[int]bool{10: true, 13: true}

// NormalizeISBN strips every character outside the ISBN alphabet and
// validates the result. The check character X is only legal in the final
// position. Numeric identifiers shorter than ten digits are zero-padded on
// the left (spreadsheet exports drop leading zeros). Returns ok=false when
// no valid identifier can be recovered.
func NormalizeISBN(raw string) (string, bool) {
	cleaned := strings.ToUpper(isbnJunk.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return "", false
	}
	if i := strings.IndexByte(cleaned, 'X'); i >= 0 && i != len(cleaned)-1 {
		return "", false
	}
	if len(cleaned) < 10 {
		cleaned = strings.Repeat("0", 10-len(cleaned)) + cleaned
	}
	if !canonicalISBNLengths[len(cleaned)] {
		return "", false
	}
	return cleaned, true
}

// NormalizeText lowercases, replaces punctuation with spaces, and collapses
// runs of whitespace. Used both for display cleanup and as a match key when
// cross-referencing catalogs without reliable identifiers.
func NormalizeText(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = punctuation.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
