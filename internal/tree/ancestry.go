package tree

import "sort"

// Ancestry maps a child id to its parent id. Roots have no entry.
type Ancestry map[int64]int64

// Chain returns id followed by its ancestors, closest first. The walk stops
// at a root, at an id missing from the map, or before revisiting an id.
func (a Ancestry) Chain(id int64) []int64 {
	chain := []int64{id}
	visited := map[int64]bool{id: true}
	cur := id
	for {
		parent, ok := a[cur]
		if !ok || visited[parent] {
			return chain
		}
		visited[parent] = true
		chain = append(chain, parent)
		cur = parent
	}
}

// Depth returns the number of ancestors above id.
func (a Ancestry) Depth(id int64) int {
	return len(a.Chain(id)) - 1
}

// breakCycles removes the parent link of the first id, in ascending order,
// whose parent chain leads back to itself. It returns the re-rooted ids.
func breakCycles(parents Ancestry) []int64 {
	ids := make([]int64, 0, len(parents))
	for id := range parents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var rerooted []int64
	for _, id := range ids {
		if returnsTo(parents, id) {
			delete(parents, id)
			rerooted = append(rerooted, id)
		}
	}
	return rerooted
}

func returnsTo(parents Ancestry, id int64) bool {
	seen := map[int64]bool{id: true}
	cur := id
	for {
		parent, ok := parents[cur]
		if !ok {
			return false
		}
		if parent == id {
			return true
		}
		if seen[parent] {
			return false // a cycle that does not include id
		}
		seen[parent] = true
		cur = parent
	}
}

// ItemAncestry derives the item_ancestry map from item rows.
func ItemAncestry(items []Item) Ancestry {
	known := make(map[int64]bool, len(items))
	for _, it := range items {
		known[it.ID] = true
	}
	anc := make(Ancestry)
	for _, it := range items {
		if it.ParentID != nil && known[*it.ParentID] && *it.ParentID != it.ID {
			anc[it.ID] = *it.ParentID
		}
	}
	return anc
}
