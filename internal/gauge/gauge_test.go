package gauge

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name string
		used []string
		want string
	}{
		{"none", nil, "A"},
		{"gap", []string{"A", "c"}, "B"},
		{"ungauged ignored", []string{"", "A"}, "B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.used)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Next(%v) = %q, want %q", tt.used, got, tt.want)
			}
		})
	}

	var all []string
	for c := 'A'; c <= 'Z'; c++ {
		all = append(all, string(c))
	}
	if _, err := Next(all); !errors.Is(err, ErrExhausted) {
		t.Errorf("Next(A-Z) error = %v, want ErrExhausted", err)
	}
}

func TestCompact(t *testing.T) {
	got := Compact([]string{"A", "C", "D", ""})
	want := map[string]string{"C": "B", "D": "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compact = %v, want %v", got, want)
	}
	if got := Compact([]string{"b", "A"}); len(got) != 0 {
		t.Errorf("Compact(contiguous) = %v, want none", got)
	}
}

func TestValidate(t *testing.T) {
	for _, g := range []string{"", "a", " Z "} {
		if err := Validate(g); err != nil {
			t.Errorf("Validate(%q) = %v", g, err)
		}
	}
	for _, g := range []string{"AB", "1", "가"} {
		if err := Validate(g); !errors.Is(err, ErrInvalid) {
			t.Errorf("Validate(%q) = %v, want ErrInvalid", g, err)
		}
	}
}

func TestCompareAndLabel(t *testing.T) {
	type wm struct{ code, gauge string }
	list := []wm{{"C-10", "B"}, {"C-2", ""}, {"C-10", ""}, {"C-10", "A"}, {"C-2", "a"}}
	sort.SliceStable(list, func(i, j int) bool {
		return Compare(list[i].code, list[i].gauge, list[j].code, list[j].gauge) < 0
	})
	var got []string
	for _, w := range list {
		got = append(got, Label(w.code, w.gauge))
	}
	want := []string{"C-2", "C-2(A)", "C-10", "C-10(A)", "C-10(B)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
