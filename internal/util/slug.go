package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parenthesizedPattern = regexp.MustCompile(`\([^)]*\)`)
	hangulPattern        = regexp.MustCompile(`[가-힣]`)
	nonSlugCharPattern   = regexp.MustCompile(`[^a-z0-9_\s-]`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
	dashRunPattern       = regexp.MustCompile(`-+`)
	nonLetterPattern     = regexp.MustCompile(`[^a-z]`)

	stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// StripAccents removes combining marks (Café -> Cafe).
func StripAccents(s string) string {
	result, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return result
}

// GenerateRestaurantSlug builds the SEO slug "{region}-{name}". Parenthesized
// parts and Hangul are dropped from the name, so "밍글스 (Mingles)" style names
// reduce to their romanized remainder. regionName contributes its first word,
// letters only ("GANGNAM 123" -> "gangnam").
func GenerateRestaurantSlug(name, regionName string) string {
	slug := parenthesizedPattern.ReplaceAllString(name, "")
	slug = hangulPattern.ReplaceAllString(slug, "")
	slug = strings.ToLower(StripAccents(strings.TrimSpace(slug)))
	slug = nonSlugCharPattern.ReplaceAllString(slug, "")
	slug = whitespacePattern.ReplaceAllString(slug, "-")
	slug = dashRunPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if regionName == "" {
		return slug
	}

	region := strings.Split(regionName, " ")[0]
	region = nonLetterPattern.ReplaceAllString(strings.ToLower(region), "")
	return region + "-" + slug
}

// ParseRestaurantSlug splits a slug back into its region prefix and name part.
func ParseRestaurantSlug(slug string) (region, name string) {
	parts := strings.Split(slug, "-")
	return parts[0], strings.Join(parts[1:], "-")
}

// NormalizeSlugName reduces a restaurant name (or the name part of a slug) to
// lowercase ASCII letters for slug lookups.
func NormalizeSlugName(name string) string {
	name = parenthesizedPattern.ReplaceAllString(name, "")
	name = hangulPattern.ReplaceAllString(name, "")
	name = strings.ToLower(StripAccents(name))
	return nonLetterPattern.ReplaceAllString(name, "")
}
