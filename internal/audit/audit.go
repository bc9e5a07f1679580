// Package audit inspects a catalog for structural and formula problems and
// summarizes them in a health score.
package audit

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/hnanmal/B-note/internal/formula"
	"github.com/hnanmal/B-note/internal/order"
	"github.com/hnanmal/B-note/internal/symbols"
	"github.com/hnanmal/B-note/internal/tree"
)

// DepthBucket is one bucket in the depth histogram
type DepthBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DuplicateToken lists siblings sharing a sequence token.
type DuplicateToken struct {
	ParentID *int64  `json:"parent_id"`
	Token    string  `json:"token"`
	NodeIDs  []int64 `json:"node_ids"`
}

// Problem kinds reported for assignments.
const (
	ProblemEmpty     = "empty"
	ProblemSyntax    = "syntax"
	ProblemUndefined = "undefined"
)

// FormulaProblem is an assignment whose formula cannot produce a value.
type FormulaProblem struct {
	AssignmentID int64    `json:"assignment_id"`
	NodeID       int64    `json:"node_id"`
	Kind         string   `json:"kind"`
	Formula      string   `json:"formula,omitempty"`
	Detail       string   `json:"detail,omitempty"`
	Missing      []string `json:"missing,omitempty"`
}

// StructureReport describes the shape of the family tree.
type StructureReport struct {
	TotalNodes       int              `json:"total_nodes"`
	TotalItems       int              `json:"total_items"`
	Roots            []int64          `json:"roots"`
	NumComponents    int              `json:"num_components"`
	LargestComponent int              `json:"largest_component"`
	MaxDepth         int              `json:"max_depth"`
	DepthHistogram   []DepthBucket    `json:"depth_histogram"`
	Diagnostics      tree.Diagnostics `json:"diagnostics"`
	MissingTokens    []int64          `json:"missing_tokens"`
	DuplicateTokens  []DuplicateToken `json:"duplicate_tokens"`
}

// FormulaReport summarizes assignment formulas.
type FormulaReport struct {
	TotalAssignments int              `json:"total_assignments"`
	Valid            int              `json:"valid"`
	Problems         []FormulaProblem `json:"problems"`
}

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Structure float64 `json:"structure"`
	Ordering  float64 `json:"ordering"`
	Formulas  float64 `json:"formulas"`
}

// Report is the full audit result
type Report struct {
	HealthScore     float64          `json:"health_score"`
	HealthBreakdown HealthBreakdown  `json:"health_breakdown"`
	Structure       *StructureReport `json:"structure"`
	Formulas        *FormulaReport   `json:"formulas"`
}

// Analyze audits in and the symbol table and computes a composite health
// score in [0, 1].
func Analyze(in tree.Input, entries []symbols.Entry) *Report {
	forest := tree.Build(in)
	structure := ComputeStructure(in, forest)
	formulas := ComputeFormulas(forest, entries)

	var structureScore, ordering, formulaScore float64
	total := float64(structure.TotalNodes)
	if total > 0 {
		d := structure.Diagnostics
		broken := float64(len(d.DanglingParents) + len(d.Rerooted) + d.SkippedRows)
		structureScore = clamp(1.0-math.Min(broken/total, 0.2)*5.0, 0, 1)
		unordered := float64(len(structure.MissingTokens) + len(structure.DuplicateTokens))
		ordering = clamp(1.0-unordered/total, 0, 1)
	}
	if formulas.TotalAssignments > 0 {
		formulaScore = float64(formulas.Valid) / float64(formulas.TotalAssignments)
	} else if total > 0 {
		formulaScore = 1
	}

	return &Report{
		HealthScore: 0.40*structureScore + 0.20*ordering + 0.40*formulaScore,
		HealthBreakdown: HealthBreakdown{
			Structure: structureScore,
			Ordering:  ordering,
			Formulas:  formulaScore,
		},
		Structure: structure,
		Formulas:  formulas,
	}
}

// ComputeStructure reports roots, components, depth and ordering problems.
func ComputeStructure(in tree.Input, forest *tree.Forest) *StructureReport {
	r := &StructureReport{
		TotalNodes:      forest.Len(),
		TotalItems:      len(in.Items),
		Roots:           []int64{},
		DepthHistogram:  defaultHistogram(),
		Diagnostics:     forest.Diagnostics(),
		MissingTokens:   []int64{},
		DuplicateTokens: []DuplicateToken{},
	}
	if r.TotalNodes == 0 {
		return r
	}

	ancestry := forest.Ancestry()
	ids := make([]int64, 0, len(ancestry))
	for _, row := range forest.Rows() {
		if !row.IsItem() {
			ids = append(ids, row.ID)
		}
	}

	// Components over the raw parent links, cycles included.
	uf := NewUnionFind(ids)
	for _, n := range in.Nodes {
		if n.ParentID == nil {
			continue
		}
		if _, ok := forest.Node(*n.ParentID); ok {
			if _, ok := forest.Node(n.ID); ok {
				uf.Union(n.ID, *n.ParentID)
			}
		}
	}
	sizes := uf.Components()
	r.NumComponents = len(sizes)
	for _, s := range sizes {
		if s > r.LargestComponent {
			r.LargestComponent = s
		}
	}

	type sibling struct {
		parent int64
		token  string
	}
	groups := map[sibling][]int64{}
	for _, id := range ids {
		tn, _ := forest.Node(id)
		if tn.Depth > r.MaxDepth {
			r.MaxDepth = tn.Depth
		}
		r.DepthHistogram[depthBucket(tn.Depth)].Count++
		parent, hasParent := ancestry[id]
		if !hasParent {
			r.Roots = append(r.Roots, id)
		}

		token := ""
		if tn.OrderToken != nil {
			token = strings.TrimSpace(*tn.OrderToken)
		}
		if _, ok := order.ParseSequenceKey(token); !ok {
			r.MissingTokens = append(r.MissingTokens, id)
			continue
		}
		key := sibling{parent: parent, token: strings.ToLower(token)}
		groups[key] = append(groups[key], id)
	}
	for key, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		d := DuplicateToken{Token: key.token, NodeIDs: members}
		if _, ok := ancestry[members[0]]; ok {
			p := key.parent
			d.ParentID = &p
		}
		r.DuplicateTokens = append(r.DuplicateTokens, d)
	}
	sort.Slice(r.DuplicateTokens, func(i, j int) bool {
		return r.DuplicateTokens[i].NodeIDs[0] < r.DuplicateTokens[j].NodeIDs[0]
	})
	sort.Slice(r.Roots, func(i, j int) bool { return r.Roots[i] < r.Roots[j] })
	sort.Slice(r.MissingTokens, func(i, j int) bool { return r.MissingTokens[i] < r.MissingTokens[j] })
	return r
}

// ComputeFormulas checks every attached assignment's formula against the
// namespace its node resolves.
func ComputeFormulas(forest *tree.Forest, entries []symbols.Entry) *FormulaReport {
	r := &FormulaReport{Problems: []FormulaProblem{}}
	ancestry := forest.Ancestry()
	for _, a := range forest.Assignments() {
		r.TotalAssignments++
		src := ""
		if a.Formula != nil {
			src = strings.TrimSpace(*a.Formula)
		}
		p := FormulaProblem{AssignmentID: a.ID, NodeID: a.OwningNodeID, Formula: src}
		if formula.Normalize(src) == "" {
			p.Kind = ProblemEmpty
			r.Problems = append(r.Problems, p)
			continue
		}
		vars, err := formula.Variables(src)
		if err != nil {
			p.Kind = ProblemSyntax
			p.Detail = err.Error()
			r.Problems = append(r.Problems, p)
			continue
		}

		ns := symbols.Namespace{}
		if tn, ok := forest.Node(a.OwningNodeID); ok && !tn.ManualInput {
			ns = symbols.Resolve(a.OwningNodeID, entries, ancestry)
		}
		for _, v := range vars {
			if _, ok := ns[v]; !ok {
				p.Missing = append(p.Missing, v)
			}
		}
		if len(p.Missing) > 0 {
			p.Kind = ProblemUndefined
			r.Problems = append(r.Problems, p)
			continue
		}
		if _, err := formula.Diagnose(src, ns); err != nil {
			p.Kind = problemKind(err)
			p.Detail = err.Error()
			r.Problems = append(r.Problems, p)
			continue
		}
		r.Valid++
	}
	return r
}

func problemKind(err error) string {
	switch {
	case errors.Is(err, formula.ErrNotNumeric):
		return "not_numeric"
	case errors.Is(err, formula.ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, formula.ErrNonFinite):
		return "non_finite"
	case errors.Is(err, formula.ErrTooDeep):
		return "too_deep"
	}
	return ProblemSyntax
}

func defaultHistogram() []DepthBucket {
	return []DepthBucket{{Label: "0"}, {Label: "1"}, {Label: "2"}, {Label: "3"}, {Label: "4+"}}
}

func depthBucket(depth int) int {
	if depth >= 4 {
		return 4
	}
	return depth
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
