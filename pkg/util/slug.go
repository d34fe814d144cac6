package util

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Slugify lowercases s and collapses every run of non-alphanumeric
// characters into a single hyphen, trimming hyphens at both ends.
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(slug, "-")
}
