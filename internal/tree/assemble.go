package tree

import (
	"cmp"
	"sort"
	"strings"

	"github.com/hnanmal/B-note/internal/order"
)

// TreeNode is a family node linked into the forest.
type TreeNode struct {
	Node
	Depth    int
	Children []*TreeNode
	Attached []*AttachedItem // roots of the attached item hierarchy
}

// AttachedItem is a standard item rendered under a family node. Assignment
// is nil for ancestors pulled in only to keep the item hierarchy intact.
type AttachedItem struct {
	Item
	Assignment *Assignment
	Children   []*AttachedItem
}

// Forest is the ordered result of Build.
type Forest struct {
	Roots []*TreeNode

	nodes     map[int64]*TreeNode
	items     map[int64]Item
	parents   Ancestry
	itemPars  Ancestry
	rerooted  []int64
	skipped   int
	dangling  []int64
	orphanAsg []int64
	dupAsg    []int64
}

// Build links flat rows into an ordered forest. Malformed ids (<= 0) and
// duplicate ids are skipped, dangling parents become roots, and a parent
// cycle is broken by re-rooting its lowest id. The result does not depend
// on the order of the input rows.
func Build(in Input) *Forest {
	f := &Forest{
		nodes:    make(map[int64]*TreeNode, len(in.Nodes)),
		items:    make(map[int64]Item, len(in.Items)),
		parents:  make(Ancestry),
		itemPars: make(Ancestry),
	}

	for _, n := range canonicalNodes(in.Nodes) {
		if n.ID <= 0 {
			f.skipped++
			continue
		}
		if _, dup := f.nodes[n.ID]; dup {
			f.skipped++
			continue
		}
		f.nodes[n.ID] = &TreeNode{Node: n}
	}

	for id, tn := range f.nodes {
		if tn.ParentID == nil {
			continue
		}
		pid := *tn.ParentID
		if _, ok := f.nodes[pid]; !ok || pid == id {
			f.dangling = append(f.dangling, id)
			continue
		}
		f.parents[id] = pid
	}
	sort.Slice(f.dangling, func(i, j int) bool { return f.dangling[i] < f.dangling[j] })
	f.rerooted = breakCycles(f.parents)

	for _, id := range f.sortedNodeIDs() {
		tn := f.nodes[id]
		if pid, ok := f.parents[id]; ok {
			parent := f.nodes[pid]
			parent.Children = append(parent.Children, tn)
		} else {
			f.Roots = append(f.Roots, tn)
		}
	}

	f.indexItems(in.Items)
	f.attach(in.Assignments)

	sortNodes(f.Roots)
	for _, root := range f.Roots {
		setDepth(root, 0)
	}
	return f
}

func (f *Forest) indexItems(items []Item) {
	sorted := append([]Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		return cmp.Or(
			cmp.Compare(a.ID, b.ID),
			strings.Compare(a.Name, b.Name),
			compareOptionalID(a.ParentID, b.ParentID),
			strings.Compare(string(a.Kind), string(b.Kind)),
		) < 0
	})
	for _, it := range sorted {
		if it.ID <= 0 {
			f.skipped++
			continue
		}
		if _, dup := f.items[it.ID]; dup {
			f.skipped++
			continue
		}
		f.items[it.ID] = it
	}
	for id, it := range f.items {
		if it.ParentID == nil {
			continue
		}
		if _, ok := f.items[*it.ParentID]; ok && *it.ParentID != id {
			f.itemPars[id] = *it.ParentID
		}
	}
	breakCycles(f.itemPars)
}

// attach builds, for every node, the sub-hierarchy of its assigned items
// plus all of their ancestors.
func (f *Forest) attach(assignments []Assignment) {
	sorted := append([]Assignment(nil), assignments...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byNode := make(map[int64][]Assignment)
	for _, a := range sorted {
		if _, ok := f.nodes[a.OwningNodeID]; !ok {
			f.orphanAsg = append(f.orphanAsg, a.ID)
			continue
		}
		if _, ok := f.items[a.TargetItemID]; !ok {
			f.orphanAsg = append(f.orphanAsg, a.ID)
			continue
		}
		byNode[a.OwningNodeID] = append(byNode[a.OwningNodeID], a)
	}

	for nodeID, list := range byNode {
		included := make(map[int64]*AttachedItem)
		for i := range list {
			a := list[i]
			if _, ok := included[a.TargetItemID]; ok {
				// same item assigned twice to one node: the lowest id wins
				f.dupAsg = append(f.dupAsg, a.ID)
				continue
			}
			included[a.TargetItemID] = &AttachedItem{Item: f.items[a.TargetItemID], Assignment: &a}
		}

		for _, a := range list {
			for _, anc := range f.itemPars.Chain(a.TargetItemID)[1:] {
				if _, ok := included[anc]; !ok {
					included[anc] = &AttachedItem{Item: f.items[anc]}
				}
			}
		}

		tn := f.nodes[nodeID]
		for id, ai := range included {
			if pid, ok := f.itemPars[id]; ok {
				if parent, in := included[pid]; in {
					parent.Children = append(parent.Children, ai)
					continue
				}
			}
			tn.Attached = append(tn.Attached, ai)
		}
		sortItems(tn.Attached)
	}
	sort.Slice(f.dupAsg, func(i, j int) bool { return f.dupAsg[i] < f.dupAsg[j] })
}

func (f *Forest) sortedNodeIDs() []int64 {
	ids := make([]int64, 0, len(f.nodes))
	for id := range f.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// canonicalNodes returns a copy sorted so duplicate ids resolve the same
// way whatever the input order.
func canonicalNodes(nodes []Node) []Node {
	out := append([]Node(nil), nodes...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		return cmp.Or(
			cmp.Compare(a.ID, b.ID),
			strings.Compare(a.Name, b.Name),
			compareOptionalString(a.OrderToken, b.OrderToken),
			compareOptionalID(a.ParentID, b.ParentID),
			strings.Compare(string(a.Kind), string(b.Kind)),
			compareBool(a.ManualInput, b.ManualInput),
		) < 0
	})
	return out
}

// compareOptionalID orders nil before any value.
func compareOptionalID(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

func compareOptionalString(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(*a, *b)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// CompareNodes orders siblings: sequence keys first, then natural name
// order, then id.
func CompareNodes(a, b *Node) int {
	ka, okA := order.ParseSequenceKey(deref(a.OrderToken))
	kb, okB := order.ParseSequenceKey(deref(b.OrderToken))
	switch {
	case okA && okB:
		if c := ka.Compare(kb); c != 0 {
			return c
		}
	case okA:
		return -1
	case okB:
		return 1
	}
	if c := order.NaturalCompare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// CompareItems orders attached items by kind tier, natural name, then id.
func CompareItems(a, b *Item) int {
	if c := cmp.Compare(a.Kind.tier(), b.Kind.tier()); c != 0 {
		return c
	}
	if c := order.NaturalCompare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func sortNodes(list []*TreeNode) {
	sort.Slice(list, func(i, j int) bool { return CompareNodes(&list[i].Node, &list[j].Node) < 0 })
	for _, tn := range list {
		sortNodes(tn.Children)
	}
}

func sortItems(list []*AttachedItem) {
	sort.Slice(list, func(i, j int) bool { return CompareItems(&list[i].Item, &list[j].Item) < 0 })
	for _, ai := range list {
		sortItems(ai.Children)
	}
}

func setDepth(tn *TreeNode, depth int) {
	tn.Depth = depth
	for _, c := range tn.Children {
		setDepth(c, depth+1)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
