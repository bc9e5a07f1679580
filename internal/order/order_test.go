package order

import (
	"reflect"
	"sort"
	"testing"
)

func TestParseSequenceKey(t *testing.T) {
	tests := []struct {
		token    string
		ok       bool
		segments []int64
		suffix   string
	}{
		{"12.3a", true, []int64{12, 3}, "a"},
		{"1", true, []int64{1}, ""},
		{" 3B ", true, []int64{3}, "b"},
		{"10.1.Beam", true, []int64{10, 1}, ""},
		{"14.manual_input", true, []int64{14}, ""},
		{"1.", true, []int64{1}, ""},
		{"2.10.4", true, []int64{2, 10, 4}, ""},
		{"abc", false, nil, ""},
		{"", false, nil, ""},
		{".5", false, nil, ""},
		{"-1", false, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			key, ok := ParseSequenceKey(tt.token)
			if ok != tt.ok {
				t.Fatalf("ParseSequenceKey(%q) ok = %v, want %v", tt.token, ok, tt.ok)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(key.Segments, tt.segments) {
				t.Errorf("segments = %v, want %v", key.Segments, tt.segments)
			}
			if key.Suffix != tt.suffix {
				t.Errorf("suffix = %q, want %q", key.Suffix, tt.suffix)
			}
		})
	}
}

func mustKey(t *testing.T, token string) SequenceKey {
	t.Helper()
	k, ok := ParseSequenceKey(token)
	if !ok {
		t.Fatalf("token %q did not parse", token)
	}
	return k
}

func TestSequenceKey_Compare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2", "1.10", -1},
		{"1.10", "2", -1},
		{"1.2", "2", -1},
		{"3", "3a", -1},
		{"3a", "3b", -1},
		{"1", "1.0", 0},
		{"1", "1.1", -1},
		{"1a", "1.1", -1},
		{"2", "1.99", 1},
		{"10", "9", 1},
		{"4a", "4A", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := mustKey(t, tt.a).Compare(mustKey(t, tt.b))
			if got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if back := mustKey(t, tt.b).Compare(mustKey(t, tt.a)); back != -tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.b, tt.a, back, -tt.want)
			}
		})
	}
}

func TestSequenceKey_SortOrder(t *testing.T) {
	tokens := []string{"2", "1.10", "1a", "1", "1.2", "1.1", "3a", "3"}
	sort.SliceStable(tokens, func(i, j int) bool {
		return mustKey(t, tokens[i]).Compare(mustKey(t, tokens[j])) < 0
	})
	want := []string{"1", "1a", "1.1", "1.2", "1.10", "2", "3", "3a"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("sorted = %v, want %v", tokens, want)
	}
}

func TestSequenceKey_String(t *testing.T) {
	if got := mustKey(t, "01.10A").String(); got != "1.10a" {
		t.Errorf("String() = %q, want %q", got, "1.10a")
	}
}

func TestNaturalCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"item2", "item10", -1},
		{"item10", "item2", 1},
		{"apple", "banana", -1},
		{"Apple", "apple", -1},
		{"apple", "Banana", -1},
		{"beam", "beam", 0},
		{"a", "ab", -1},
		{"x1y", "x1z", -1},
		{"007", "7", -1},
		{"1abc", "abc", -1},
		{"slab 99999999999999999999", "slab 100000000000000000000", -1},
		{"", "a", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := NaturalCompare(tt.a, tt.b); got != tt.want {
				t.Errorf("NaturalCompare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNaturalCompare_NoDigitsIsLexicographic(t *testing.T) {
	words := []string{"wall", "beam", "column", "slab", "footing", "roof"}
	for _, a := range words {
		for _, b := range words {
			want := 0
			if a < b {
				want = -1
			} else if a > b {
				want = 1
			}
			if got := NaturalCompare(a, b); got != want {
				t.Errorf("NaturalCompare(%q, %q) = %d, want %d", a, b, got, want)
			}
		}
	}
}

func TestCompareTokens(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2", "1.10", -1},
		{"1", "misc", -1},
		{"misc", "1", 1},
		{"misc2", "misc10", -1},
	}
	for _, tt := range tests {
		if got := CompareTokens(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareTokens(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
