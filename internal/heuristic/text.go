package heuristic

import (
	"strings"

	"github.com/roach88/sqlheur/internal/queryir"
)

// MaxCharDistance is the distance charged for each character one string has
// beyond the length of the other. It exceeds the difference between any two
// characters of the Basic Multilingual Plane, so for such text a length
// mismatch outweighs a character difference.
const MaxCharDistance = 65536

// textDistance implements the branch distance of a text comparison.
// Ordering follows byte-wise comparison, as SQLite's BINARY collation does.
func textDistance(v string, op queryir.Op, k string) float64 {
	cmp := strings.Compare(v, k)
	gap := StringDistance(v, k)
	if cmp != 0 && gap == 0 {
		// distinct byte sequences that decode to the same runes
		gap = 1
	}
	return branchDistance(op, cmp, gap)
}

// StringDistance is a left-alignment distance between two strings: the sum
// of code point differences over the common prefix length plus
// MaxCharDistance for every extra character of the longer string.
//
// It is zero exactly for equal strings and decreases as a string gains the
// target's length first and its characters second:
//
//	"a" > "ab" > "xxx123x" > "xxx123" > "axx123" > "abc234" > "abc123" = 0
//
// relative to "abc123".
func StringDistance(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}

	var d float64
	for i := 0; i < n; i++ {
		diff := int64(ra[i]) - int64(rb[i])
		if diff < 0 {
			diff = -diff
		}
		d += float64(diff)
	}

	extra := len(ra) - len(rb)
	if extra < 0 {
		extra = -extra
	}
	return d + float64(extra)*MaxCharDistance
}
