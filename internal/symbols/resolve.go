// Package symbols builds the variable namespace a formula is evaluated
// against by merging calc dictionary entries along a node's ancestry.
package symbols

import (
	"sort"
	"strings"

	"github.com/hnanmal/B-note/internal/tree"
)

// Entry is one calc dictionary row: a named value defined at a tree node.
type Entry struct {
	ID          int64   `json:"id"`
	ScopeNodeID int64   `json:"scope_node_id"`
	Key         string  `json:"key"`
	Value       string  `json:"value"`
	CalcCode    *string `json:"calc_code,omitempty"`
}

// Namespace maps symbol keys to raw, unparsed values.
type Namespace map[string]string

// Binding records which scope supplied a key.
type Binding struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	ScopeID int64  `json:"scope_id"`
	EntryID int64  `json:"entry_id"`
	Depth   int    `json:"depth"` // 0 = the node itself, 1 = its parent, ...
}

// Resolve merges the entries visible from nodeID. Scopes are visited from
// nodeID up to the root and the first definition of a key wins, so the
// scope closest to the node overrides its ancestors. Within one scope the
// entry with the lowest id wins.
func Resolve(nodeID int64, entries []Entry, ancestry tree.Ancestry) Namespace {
	ns := make(Namespace)
	for _, b := range Trace(nodeID, entries, ancestry) {
		ns[b.Key] = b.Value
	}
	return ns
}

// Trace is Resolve with provenance, sorted by key.
func Trace(nodeID int64, entries []Entry, ancestry tree.Ancestry) []Binding {
	chain := ancestry.Chain(nodeID)
	depth := make(map[int64]int, len(chain))
	for i, id := range chain {
		depth[id] = i
	}

	visible := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := depth[e.ScopeNodeID]; ok && strings.TrimSpace(e.Key) != "" {
			visible = append(visible, e)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		di, dj := depth[visible[i].ScopeNodeID], depth[visible[j].ScopeNodeID]
		if di != dj {
			return di < dj
		}
		return visible[i].ID < visible[j].ID
	})

	seen := make(map[string]bool)
	var out []Binding
	for _, e := range visible {
		key := strings.TrimSpace(e.Key)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Binding{
			Key:     key,
			Value:   e.Value,
			ScopeID: e.ScopeNodeID,
			EntryID: e.ID,
			Depth:   depth[e.ScopeNodeID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Keys returns the namespace keys in sorted order.
func (ns Namespace) Keys() []string {
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the raw value for key.
func (ns Namespace) Lookup(key string) (string, bool) {
	v, ok := ns[key]
	return v, ok
}
