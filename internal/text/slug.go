package text

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Go's \w and \s are ASCII only; letters and numbers are matched by Unicode
// class so Cyrillic titles keep their words.
var (
	unsafeSlugChars = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Zs}-]`)
	dashesAndSpaces = regexp.MustCompile(`[-\s\p{Zs}]+`)
)

// MakeSlug derives a lowercase, hyphen-delimited identifier from s, safe for
// filenames and URL paths. MakeSlug(MakeSlug(s)) == MakeSlug(s).
func MakeSlug(s string) string {
	// Composed form first, otherwise a decomposed й loses its breve below.
	s = strings.ToLower(norm.NFC.String(s))
	s = unsafeSlugChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return dashesAndSpaces.ReplaceAllString(s, "-")
}
