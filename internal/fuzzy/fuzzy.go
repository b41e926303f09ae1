// Package fuzzy implements the cheap text matcher used by event search.
package fuzzy

import (
	"strings"
	"unicode"
)

// Match reports whether needle occurs in haystack, ignoring case, either as a
// contiguous substring or as an ordered, not necessarily contiguous,
// subsequence. There is no backtracking and no scoring: a single left to
// right pass over haystack.
func Match(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	if haystack == "" {
		return false
	}

	h := strings.ToLower(haystack)
	n := []rune(strings.ToLower(needle))
	if strings.Contains(h, string(n)) {
		return true
	}

	i := 0
	for _, r := range h {
		if unicode.ToLower(r) == n[i] {
			i++
			if i == len(n) {
				return true
			}
		}
	}
	return false
}

// MatchAny returns true when needle matches at least one of the fields.
func MatchAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if Match(f, needle) {
			return true
		}
	}
	return false
}
