// Package normalize implements the title and artist normalization rules
// used to reconcile provider payloads against existing catalog rows.
// The normalization tables it builds (apostrophe/dash variants, ensemble
// suffixes, leading articles) are immutable and initialized once at
// package load, mirroring how the matching engine this was grounded on
// treats its configuration as process-wide constants.
package normalize

import (
	"regexp"
	"strings"
)

// apostropheVariants maps every apostrophe-like rune to the canonical
// U+2019 RIGHT SINGLE QUOTATION MARK.
var apostropheVariants = map[rune]rune{
	'\'': '’', // APOSTROPHE
	'`':  '’', // GRAVE ACCENT
	'´':  '’', // ACUTE ACCENT
	'‘':  '’', // LEFT SINGLE QUOTATION MARK
	'‛':  '’', // SINGLE HIGH-REVERSED-9 QUOTATION MARK
}

// dashVariants maps en-dash, em-dash, and minus sign to hyphen-minus.
var dashVariants = map[rune]rune{
	'–': '-', // EN DASH
	'—': '-', // EM DASH
	'−': '-', // MINUS SIGN
}

var leadingArticle = regexp.MustCompile(`^(the|a|an)\s+`)

var whitespaceRun = regexp.MustCompile(`\s+`)

var parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)

// Title applies the canonical title normalization algorithm: lowercase,
// apostrophe/dash unification, leading-article stripping, whitespace
// collapse. It is idempotent: Title(Title(x)) == Title(x).
func Title(s string) string {
	s = strings.ToLower(s)
	s = mapRunes(s, apostropheVariants)
	s = mapRunes(s, dashVariants)
	s = leadingArticle.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Variants returns the four matching variants generated from a raw title:
// v1 full normalized, v2 with parenthetical content removed, v3 the
// substring before the first comma, v4 spaces removed.
func Variants(raw string) []string {
	v1 := Title(raw)
	v2 := Title(parenthetical.ReplaceAllString(raw, ""))

	beforeComma := raw
	if idx := strings.IndexByte(raw, ','); idx >= 0 {
		beforeComma = raw[:idx]
	}
	v3 := Title(beforeComma)

	v4 := strings.ReplaceAll(v1, " ", "")

	variants := []string{v1}
	for _, v := range []string{v2, v3, v4} {
		if v != "" && !contains(variants, v) {
			variants = append(variants, v)
		}
	}
	return variants
}

func mapRunes(s string, table map[rune]rune) string {
	return strings.Map(func(r rune) rune {
		if repl, ok := table[r]; ok {
			return repl
		}
		return r
	}, s)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
