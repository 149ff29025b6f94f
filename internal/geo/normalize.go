//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package geo resolves raw city names against the city reference table.
package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nameReplacer = strings.NewReplacer(
	"'", "",
	`"`, "",
	"-", " ",
	"_", " ",
)

// Normalize folds a city name for comparison: diacritics are removed, the
// name is lower-cased, quotes are dropped, hyphens and underscores become
// spaces and runs of whitespace collapse to one space.
func Normalize(name string) string {
	// transform chains keep state, so each call builds its own
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = nameReplacer.Replace(strings.ToLower(folded))
	return strings.Join(strings.Fields(folded), " ")
}

// NormalizeState trims and upper-cases a state code.
func NormalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

// Similarity returns 1 - lev(a, b) / max(len(a), len(b)) measured in runes.
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes the edit distance with two rolling rows.
func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
