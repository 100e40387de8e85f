package catalog

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTags     = regexp.MustCompile(`<[^>]+>`)
	htmlEntities = regexp.MustCompile(`&[a-zA-Z]+;`)
	bracketed    = regexp.MustCompile(`\(.*?\)`)
	digits       = regexp.MustCompile(`\d+`)
	nonLetters   = regexp.MustCompile(`[^a-z ]`)
)

// CleanDescription strips HTML markup and entities left behind by scraped
// sources and collapses whitespace. Third-party descriptions routinely
// arrive with embedded tags.
func CleanDescription(raw string) string {
	if raw == "" {
		return ""
	}
	s := html.UnescapeString(raw)
	s = htmlTags.ReplaceAllString(s, " ")
	s = htmlEntities.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanAuthor normalizes an author/editor field: lowercase, bracketed
// qualifiers and digits removed, punctuation flattened to spaces.
func CleanAuthor(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToLower(raw)
	s = bracketed.ReplaceAllString(s, "")
	s = digits.ReplaceAllString(s, "")
	s = nonLetters.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
