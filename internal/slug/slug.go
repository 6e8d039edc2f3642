// Package slug derives URL slugs for public form routes.
package slug

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxLength bounds the length of a generated slug.
const MaxLength = 50

// Fallback is used when a title has no usable characters.
const Fallback = "form"

var (
	nonWord    = regexp.MustCompile(`[^a-z0-9_\s-]+`)
	separators = regexp.MustCompile(`[\s_-]+`)
)

// Generate lowercases title, drops everything outside the word and space
// classes and joins the remaining words with single hyphens.
func Generate(title string) string {
	s := strings.ToLower(title)
	s = nonWord.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = separators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// Unique returns base, or base with the smallest numeric suffix not reported
// as taken. An empty base becomes Fallback.
func Unique(base string, taken func(string) bool) string {
	if base == "" {
		base = Fallback
	}
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		suffix := "-" + strconv.Itoa(n)
		stem := base
		if len(stem)+len(suffix) > MaxLength {
			stem = strings.TrimRight(stem[:MaxLength-len(suffix)], "-")
		}
		if candidate := stem + suffix; !taken(candidate) {
			return candidate
		}
	}
}
