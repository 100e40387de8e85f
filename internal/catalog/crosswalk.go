package catalog

import (
	"strconv"
	"strings"
)

// matchKey builds the exact-tuple key used to cross-reference two catalog
// exports when identifiers are unreliable. Exact match only; fuzzy matching
// is deliberately out of scope because duplicate titles would silently
// mismatch.
func matchKey(r Record) string {
	parts := []string{
		NormalizeText(r.Title),
		NormalizeText(r.Author),
		NormalizeText(r.Edition),
		NormalizeText(r.Publisher),
		strconv.Itoa(r.Year),
	}
	return strings.Join(parts, "\x1f")
}

// BackfillISBNs copies identifiers from an authoritative catalog into
// records whose tuple of (title, author, edition, publisher, year) matches
// exactly. Records without a match keep their existing ISBN. Returns the
// number of records updated.
func BackfillISBNs(authoritative, records []Record) int {
	byKey := make(map[string]string, len(authoritative))
	for _, a := range authoritative {
		byKey[matchKey(a)] = a.ISBN
	}
	updated := 0
	for i := range records {
		isbn, ok := byKey[matchKey(records[i])]
		if !ok || isbn == "" || isbn == records[i].ISBN {
			continue
		}
		records[i].ISBN = isbn
		updated++
	}
	return updated
}
