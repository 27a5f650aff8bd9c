package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	deaccent    = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	nonSlugRuns = regexp.MustCompile(`[^a-z0-9]+`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// Slugify lowercases, strips accents, and collapses everything else to
// single hyphens. "Deutsche Börse AG" becomes "deutsche-borse-ag".
func Slugify(s string) string {
	folded, _, err := transform.String(deaccent, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = nonSlugRuns.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-")
}

// NormalizeName produces the dedup key for organization names: accent-free
// lowercase with whitespace collapsed to single spaces.
func NormalizeName(s string) string {
	folded, _, err := transform.String(deaccent, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	return spaceRuns.ReplaceAllString(folded, " ")
}
