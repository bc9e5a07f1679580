package audit

import (
	"testing"

	"github.com/hnanmal/B-note/internal/symbols"
	"github.com/hnanmal/B-note/internal/tree"
)

func strPtr(s string) *string { return &s }
func i64(v int64) *int64      { return &v }

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind([]int64{1, 2, 3, 4, 5})
	if !uf.Union(1, 2) {
		t.Error("first union should merge")
	}
	uf.Union(2, 3)
	if uf.Union(1, 3) {
		t.Error("1 and 3 already share a component")
	}
	uf.Union(4, 5)
	sizes := uf.Components()
	if len(sizes) != 2 {
		t.Fatalf("components = %d, want 2", len(sizes))
	}
	if sizes[uf.Find(1)] != 3 || sizes[uf.Find(5)] != 2 {
		t.Errorf("sizes = %v", sizes)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	r := Analyze(tree.Input{}, nil)
	if r.HealthScore != 0 || r.Structure.TotalNodes != 0 {
		t.Errorf("empty catalog: %+v", r)
	}
	if len(r.Structure.DepthHistogram) != 5 {
		t.Errorf("histogram buckets = %d, want 5", len(r.Structure.DepthHistogram))
	}
}

func TestAnalyzeHealthyCatalog(t *testing.T) {
	in := tree.Input{
		Nodes: []tree.Node{
			{ID: 1, Name: "Structure", OrderToken: strPtr("10")},
			{ID: 2, ParentID: i64(1), Name: "Beam", OrderToken: strPtr("10.1")},
		},
		Items:       []tree.Item{{ID: 10, Name: "Concrete", Kind: tree.ItemGWM}},
		Assignments: []tree.Assignment{{ID: 100, OwningNodeID: 2, TargetItemID: 10, Formula: strPtr("L * W")}},
	}
	entries := []symbols.Entry{
		{ID: 1, ScopeNodeID: 1, Key: "L", Value: "3"},
		{ID: 2, ScopeNodeID: 2, Key: "W", Value: "2"},
	}
	r := Analyze(in, entries)
	if r.HealthScore != 1 {
		t.Errorf("health = %v, want 1 (%+v)", r.HealthScore, r.HealthBreakdown)
	}
	if r.Structure.MaxDepth != 1 || r.Structure.DepthHistogram[1].Count != 1 {
		t.Errorf("depth: max=%d histogram=%v", r.Structure.MaxDepth, r.Structure.DepthHistogram)
	}
	if len(r.Structure.Roots) != 1 || r.Structure.Roots[0] != 1 {
		t.Errorf("roots = %v", r.Structure.Roots)
	}
}

func TestAnalyzeFindsProblems(t *testing.T) {
	in := tree.Input{
		Nodes: []tree.Node{
			{ID: 1, ParentID: i64(3), Name: "A", OrderToken: strPtr("1")},
			{ID: 2, ParentID: i64(1), Name: "B", OrderToken: strPtr("1.1")},
			{ID: 3, ParentID: i64(2), Name: "C", OrderToken: strPtr("1.1")},
			{ID: 4, ParentID: i64(99), Name: "Dangling"},
			{ID: 5, ParentID: i64(1), Name: "D", OrderToken: strPtr("1.1")},
			{ID: 6, Name: "Manual", OrderToken: strPtr("2"), ManualInput: true},
		},
		Items: []tree.Item{
			{ID: 10, Name: "Concrete", Kind: tree.ItemGWM},
			{ID: 11, Name: "Rebar", Kind: tree.ItemGWM},
			{ID: 12, Name: "Paint", Kind: tree.ItemGWM},
		},
		Assignments: []tree.Assignment{
			{ID: 100, OwningNodeID: 2, TargetItemID: 10},
			{ID: 101, OwningNodeID: 2, TargetItemID: 11, Formula: strPtr("L *")},
			{ID: 102, OwningNodeID: 5, TargetItemID: 10, Formula: strPtr("L * Q")},
			{ID: 103, OwningNodeID: 5, TargetItemID: 11, Formula: strPtr("L / Z")},
			{ID: 104, OwningNodeID: 6, TargetItemID: 12, Formula: strPtr("L")},
		},
	}
	entries := []symbols.Entry{
		{ID: 1, ScopeNodeID: 1, Key: "L", Value: "3"},
		{ID: 2, ScopeNodeID: 5, Key: "Z", Value: "0"},
	}
	r := Analyze(in, entries)

	s := r.Structure
	if len(s.Diagnostics.Rerooted) != 1 {
		t.Errorf("rerooted = %v, want one broken cycle", s.Diagnostics.Rerooted)
	}
	if len(s.Diagnostics.DanglingParents) != 1 {
		t.Errorf("dangling = %v", s.Diagnostics.DanglingParents)
	}
	if len(s.MissingTokens) != 1 || s.MissingTokens[0] != 4 {
		t.Errorf("missing tokens = %v, want [4]", s.MissingTokens)
	}
	if len(s.DuplicateTokens) != 1 || len(s.DuplicateTokens[0].NodeIDs) != 2 {
		t.Fatalf("duplicate tokens = %+v", s.DuplicateTokens)
	}
	if s.DuplicateTokens[0].NodeIDs[0] != 2 || s.DuplicateTokens[0].NodeIDs[1] != 5 {
		t.Errorf("duplicate ids = %v, want [2 5]", s.DuplicateTokens[0].NodeIDs)
	}
	if s.NumComponents != 3 {
		t.Errorf("components = %d, want 3", s.NumComponents)
	}

	kinds := map[int64]string{}
	for _, p := range r.Formulas.Problems {
		kinds[p.AssignmentID] = p.Kind
	}
	want := map[int64]string{
		100: ProblemEmpty,
		101: ProblemSyntax,
		102: ProblemUndefined,
		103: "division_by_zero",
		104: ProblemUndefined,
	}
	for id, k := range want {
		if kinds[id] != k {
			t.Errorf("assignment %d kind = %q, want %q", id, kinds[id], k)
		}
	}
	if r.Formulas.Valid != 0 || r.HealthScore >= 1 {
		t.Errorf("valid=%d health=%v", r.Formulas.Valid, r.HealthScore)
	}
}
