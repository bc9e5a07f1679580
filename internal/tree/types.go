package tree

// NodeKind labels a classification node.
type NodeKind string

const (
	KindFamily NodeKind = "FAMILY"
)

// ItemKind labels a standard item. GWM items render before SWM items.
type ItemKind string

const (
	ItemGWM ItemKind = "GWM"
	ItemSWM ItemKind = "SWM"
)

// tier returns the fixed precedence of an item kind; unknown kinds sort last.
func (k ItemKind) tier() int {
	switch k {
	case ItemGWM:
		return 0
	case ItemSWM:
		return 1
	default:
		return 2
	}
}

// Node is a family classification row, decoupled from DB types.
type Node struct {
	ID          int64
	ParentID    *int64
	Name        string
	OrderToken  *string
	Kind        NodeKind
	ManualInput bool // quantities under this node are typed, not computed
}

// Item is a standard item row. Items form their own hierarchy.
type Item struct {
	ID       int64
	ParentID *int64
	Name     string
	Kind     ItemKind
}

// Assignment attaches a standard item to a family node, optionally with a
// quantity formula.
type Assignment struct {
	ID           int64
	OwningNodeID int64
	TargetItemID int64
	Formula      *string
	Note         *string
}

// Input holds the raw rows for Build.
type Input struct {
	Nodes       []Node
	Items       []Item
	Assignments []Assignment
}

// Row is one line of the flattened display tree.
type Row struct {
	Level         int     `json:"level"`
	SequenceToken string  `json:"sequence_token"`
	Name          string  `json:"name"`
	Kind          string  `json:"kind"`
	ID            int64   `json:"id"`
	ParentID      *int64  `json:"parent_id"`
	AssignmentID  *int64  `json:"assignment_id,omitempty"`
	Formula       *string `json:"formula"`
	Note          *string `json:"note"`
}

// IsItem reports whether the row is an attached standard item.
func (r Row) IsItem() bool {
	return r.Kind != string(KindFamily)
}
