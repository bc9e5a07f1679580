// Package gauge assigns letter variants (A..Z) to work masters that share a
// code.
package gauge

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hnanmal/B-note/internal/order"
)

var (
	ErrExhausted = errors.New("all gauge letters A-Z are in use")
	ErrInvalid   = errors.New("gauge must be a single letter A-Z")
)

// Normalize trims and upper-cases a gauge. The empty string means
// "no gauge".
func Normalize(g string) string {
	return strings.ToUpper(strings.TrimSpace(g))
}

// Validate checks that g is empty or a single letter A-Z.
func Validate(g string) error {
	g = Normalize(g)
	if g == "" || (len(g) == 1 && g[0] >= 'A' && g[0] <= 'Z') {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalid, g)
}

// Next returns the first letter A..Z not present in used.
func Next(used []string) (string, error) {
	taken := make(map[string]bool, len(used))
	for _, g := range used {
		taken[Normalize(g)] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		if !taken[string(c)] {
			return string(c), nil
		}
	}
	return "", ErrExhausted
}

// Compact relabels the remaining gauges so they run contiguously from A in
// their current order. It returns only the gauges whose letter changes,
// old -> new.
func Compact(remaining []string) map[string]string {
	var letters []string
	seen := map[string]bool{}
	for _, g := range remaining {
		g = Normalize(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		letters = append(letters, g)
	}
	sort.Strings(letters)
	renames := map[string]string{}
	for i, g := range letters {
		want := string(rune('A' + i))
		if g != want {
			renames[g] = want
		}
	}
	return renames
}

// Label renders a code with its gauge, e.g. "C-101(B)".
func Label(code, gauge string) string {
	g := Normalize(gauge)
	if g == "" {
		return code
	}
	return code + "(" + g + ")"
}

// Compare orders by code, then gauge with the ungauged variant first.
func Compare(codeA, gaugeA, codeB, gaugeB string) int {
	if c := order.NaturalCompare(codeA, codeB); c != 0 {
		return c
	}
	ga, gb := Normalize(gaugeA), Normalize(gaugeB)
	switch {
	case ga == gb:
		return 0
	case ga == "":
		return -1
	case gb == "":
		return 1
	}
	return strings.Compare(ga, gb)
}
