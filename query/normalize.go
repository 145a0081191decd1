// Package query prepares free-text drug names for embedding in reference
// service search expressions.
package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var quoteStripper = strings.NewReplacer(`"`, "", "'", "")

// Normalize trims raw, drops single and double quotes, lower-cases it with
// only the first character in title case, and turns every space into '+'.
// Casing applies to the whole string, not per word.
func Normalize(raw string) string {
	s := quoteStripper.Replace(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	first, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToTitle(first)) + s[size:]

	return strings.ReplaceAll(s, " ", "+")
}
