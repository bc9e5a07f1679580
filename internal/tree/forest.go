package tree

// Rows flattens the whole forest into display order.
func (f *Forest) Rows() []Row {
	var rows []Row
	for _, root := range f.Roots {
		rows = appendNodeRows(rows, root, 0)
	}
	return rows
}

// RowsFrom flattens the subtree rooted at id, with levels relative to it.
// Returns nil if id is not in the forest.
func (f *Forest) RowsFrom(id int64) []Row {
	tn, ok := f.nodes[id]
	if !ok {
		return nil
	}
	return appendNodeRows(nil, tn, 0)
}

func appendNodeRows(rows []Row, tn *TreeNode, level int) []Row {
	var parentID *int64
	if tn.ParentID != nil && level > 0 {
		p := *tn.ParentID
		parentID = &p
	}
	rows = append(rows, Row{
		Level:         level,
		SequenceToken: deref(tn.OrderToken),
		Name:          tn.Name,
		Kind:          string(KindFamily),
		ID:            tn.ID,
		ParentID:      parentID,
	})
	for _, ai := range tn.Attached {
		rows = appendItemRows(rows, ai, tn.ID, level+1)
	}
	for _, c := range tn.Children {
		rows = appendNodeRows(rows, c, level+1)
	}
	return rows
}

func appendItemRows(rows []Row, ai *AttachedItem, parentID int64, level int) []Row {
	row := Row{
		Level:    level,
		Name:     ai.Name,
		Kind:     string(ai.Kind),
		ID:       ai.ID,
		ParentID: &parentID,
	}
	if ai.Assignment != nil {
		aid := ai.Assignment.ID
		row.AssignmentID = &aid
		row.Formula = ai.Assignment.Formula
		row.Note = ai.Assignment.Note
	}
	rows = append(rows, row)
	for _, c := range ai.Children {
		rows = appendItemRows(rows, c, ai.ID, level+1)
	}
	return rows
}

// Node returns the linked node for id.
func (f *Forest) Node(id int64) (*TreeNode, bool) {
	tn, ok := f.nodes[id]
	return tn, ok
}

// Item returns the indexed standard item for id.
func (f *Forest) Item(id int64) (Item, bool) {
	it, ok := f.items[id]
	return it, ok
}

// Len returns the number of linked family nodes.
func (f *Forest) Len() int { return len(f.nodes) }

// Ancestry returns a copy of the node -> parent map after cycle breaking.
func (f *Forest) Ancestry() Ancestry {
	out := make(Ancestry, len(f.parents))
	for k, v := range f.parents {
		out[k] = v
	}
	return out
}

// ItemAncestry returns a copy of the item -> parent map after cycle breaking.
func (f *Forest) ItemAncestry() Ancestry {
	out := make(Ancestry, len(f.itemPars))
	for k, v := range f.itemPars {
		out[k] = v
	}
	return out
}

// Path returns node names from the root down to id.
func (f *Forest) Path(id int64) []string {
	chain := f.parents.Chain(id)
	names := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		if tn, ok := f.nodes[chain[i]]; ok {
			names = append(names, tn.Name)
		}
	}
	return names
}

// ItemPath returns item names from the top of the item hierarchy down to id.
func (f *Forest) ItemPath(id int64) []string {
	chain := f.itemPars.Chain(id)
	names := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		if it, ok := f.items[chain[i]]; ok {
			names = append(names, it.Name)
		}
	}
	return names
}

// Assignments returns every attached assignment in display order.
func (f *Forest) Assignments() []Assignment {
	var out []Assignment
	var walkItems func(list []*AttachedItem)
	walkItems = func(list []*AttachedItem) {
		for _, ai := range list {
			if ai.Assignment != nil {
				out = append(out, *ai.Assignment)
			}
			walkItems(ai.Children)
		}
	}
	var walk func(list []*TreeNode)
	walk = func(list []*TreeNode) {
		for _, tn := range list {
			walkItems(tn.Attached)
			walk(tn.Children)
		}
	}
	walk(f.Roots)
	return out
}

// Descendants returns id and every node below it.
func (f *Forest) Descendants(id int64) map[int64]bool {
	out := make(map[int64]bool)
	tn, ok := f.nodes[id]
	if !ok {
		return out
	}
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		out[n.ID] = true
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tn)
	return out
}

// Diagnostics summarizes structural problems recovered during Build.
// DuplicateAssignments lost to a lower id assigning the same item to the
// same node.
type Diagnostics struct {
	SkippedRows          int     `json:"skipped_rows"`
	DanglingParents      []int64 `json:"dangling_parents"`
	Rerooted             []int64 `json:"rerooted"`
	OrphanAssignments    []int64 `json:"orphan_assignments"`
	DuplicateAssignments []int64 `json:"duplicate_assignments"`
}

// Diagnostics reports what Build skipped or re-rooted.
func (f *Forest) Diagnostics() Diagnostics {
	return Diagnostics{
		SkippedRows:          f.skipped,
		DanglingParents:      append([]int64(nil), f.dangling...),
		Rerooted:             append([]int64(nil), f.rerooted...),
		OrphanAssignments:    append([]int64(nil), f.orphanAsg...),
		DuplicateAssignments: append([]int64(nil), f.dupAsg...),
	}
}
