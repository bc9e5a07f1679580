package order

import (
	"strings"

	"golang.org/x/text/cases"
)

// NaturalCompare compares strings treating embedded digit runs as integers,
// so "item2" sorts before "item10". Comparison is case-insensitive; strings
// equal under folding are ordered by their raw bytes to keep the order total.
func NaturalCompare(a, b string) int {
	folder := cases.Fold()
	fa, fb := folder.String(a), folder.String(b)
	i, j := 0, 0
	for i < len(fa) && j < len(fb) {
		ra, na := nextRun(fa, i)
		rb, nb := nextRun(fb, j)
		i, j = na, nb

		da, db := isDigit(ra[0]), isDigit(rb[0])
		var c int
		switch {
		case da && db:
			c = compareNumeric(ra, rb)
		case da:
			c = -1
		case db:
			c = 1
		default:
			c = strings.Compare(ra, rb)
		}
		if c != 0 {
			return c
		}
	}

	switch {
	case i < len(fa):
		return 1
	case j < len(fb):
		return -1
	}
	return strings.Compare(a, b)
}

// nextRun returns the maximal run of digits or non-digits starting at i.
func nextRun(s string, i int) (string, int) {
	digit := isDigit(s[i])
	j := i + 1
	for j < len(s) && isDigit(s[j]) == digit {
		j++
	}
	return s[i:j], j
}

// compareNumeric compares digit strings by value without overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
