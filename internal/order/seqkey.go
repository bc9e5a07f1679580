package order

import (
	"strconv"
	"strings"
)

// SequenceKey is a parsed ordering token such as "12.3a": numeric segments
// [12, 3] followed by the alphabetic suffix "a".
type SequenceKey struct {
	Segments []int64
	Suffix   string
}

// ParseSequenceKey parses the leading digits(.digits)*[a-z]* prefix of token.
// Case is folded and surrounding whitespace ignored. Text after the prefix,
// like the ".Beam" in "10.1.Beam", is not part of the key.
// Returns false when the token does not start with a digit.
func ParseSequenceKey(token string) (SequenceKey, bool) {
	s := strings.ToLower(strings.TrimSpace(token))
	if s == "" || !isDigit(s[0]) {
		return SequenceKey{}, false
	}

	var key SequenceKey
	i := 0
	for {
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		seg, err := strconv.ParseInt(s[start:i], 10, 64)
		if err != nil {
			// Out of range segments saturate rather than reject the token.
			seg = 1<<63 - 1
		}
		key.Segments = append(key.Segments, seg)

		// Another segment only if a dot is followed by a digit.
		if i+1 < len(s) && s[i] == '.' && isDigit(s[i+1]) {
			i++
			continue
		}
		break
	}

	start := i
	for i < len(s) && s[i] >= 'a' && s[i] <= 'z' {
		i++
	}
	key.Suffix = s[start:i]
	return key, true
}

// Compare orders keys segment by segment, padding the shorter list with
// zeros. With equal segments an empty suffix sorts first, then suffixes
// compare lexicographically.
func (k SequenceKey) Compare(other SequenceKey) int {
	n := len(k.Segments)
	if len(other.Segments) > n {
		n = len(other.Segments)
	}
	for i := 0; i < n; i++ {
		a, b := segmentAt(k.Segments, i), segmentAt(other.Segments, i)
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
	}

	switch {
	case k.Suffix == other.Suffix:
		return 0
	case k.Suffix == "":
		return -1
	case other.Suffix == "":
		return 1
	}
	return strings.Compare(k.Suffix, other.Suffix)
}

// String renders the key back in canonical form ("1.10a").
func (k SequenceKey) String() string {
	parts := make([]string, len(k.Segments))
	for i, seg := range k.Segments {
		parts[i] = strconv.FormatInt(seg, 10)
	}
	return strings.Join(parts, ".") + k.Suffix
}

// CompareTokens compares two raw tokens. Tokens without a key sort after
// tokens with one; two keyless tokens fall back to NaturalCompare.
func CompareTokens(a, b string) int {
	ka, okA := ParseSequenceKey(a)
	kb, okB := ParseSequenceKey(b)
	switch {
	case okA && okB:
		return ka.Compare(kb)
	case okA:
		return -1
	case okB:
		return 1
	}
	return NaturalCompare(a, b)
}

func segmentAt(segs []int64, i int) int64 {
	if i < len(segs) {
		return segs[i]
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
