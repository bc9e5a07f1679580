package db

import (
	"github.com/shopspring/decimal"

	"github.com/hnanmal/B-note/internal/symbols"
	"github.com/hnanmal/B-note/internal/tree"
)

// familyRow represents a row in the family_nodes table
type familyRow struct {
	ID             int64   `db:"id"`
	ParentID       *int64  `db:"parent_id"`
	Name           string  `db:"name"`
	SequenceNumber *string `db:"sequence_number"`
	ItemType       string  `db:"item_type"`
	ManualInput    bool    `db:"manual_input"`
}

func (r familyRow) node() tree.Node {
	return tree.Node{
		ID:          r.ID,
		ParentID:    r.ParentID,
		Name:        r.Name,
		OrderToken:  r.SequenceNumber,
		Kind:        tree.NodeKind(r.ItemType),
		ManualInput: r.ManualInput,
	}
}

func familyRowOf(n tree.Node) familyRow {
	kind := string(n.Kind)
	if kind == "" {
		kind = string(tree.KindFamily)
	}
	return familyRow{
		ID:             n.ID,
		ParentID:       n.ParentID,
		Name:           n.Name,
		SequenceNumber: n.OrderToken,
		ItemType:       kind,
		ManualInput:    n.ManualInput,
	}
}

// itemRow represents a row in the standard_items table
type itemRow struct {
	ID       int64  `db:"id"`
	ParentID *int64 `db:"parent_id"`
	Name     string `db:"name"`
	Type     string `db:"type"`
}

// assignmentRow represents a row in the assignments table
type assignmentRow struct {
	ID             int64   `db:"id"`
	FamilyID       int64   `db:"family_id"`
	StandardItemID int64   `db:"standard_item_id"`
	Formula        *string `db:"formula"`
	Description    *string `db:"description"`
}

// symbolRow represents a row in the calc_dictionary table
type symbolRow struct {
	ID          int64   `db:"id"`
	FamilyID    int64   `db:"family_id"`
	CalcCode    *string `db:"calc_code"`
	SymbolKey   string  `db:"symbol_key"`
	SymbolValue string  `db:"symbol_value"`
}

func (r symbolRow) entry() symbols.Entry {
	return symbols.Entry{ID: r.ID, ScopeNodeID: r.FamilyID, Key: r.SymbolKey, Value: r.SymbolValue, CalcCode: r.CalcCode}
}

// WorkMaster is a priced catalog record from the work_masters table.
type WorkMaster struct {
	ID            int64           `json:"id" db:"id"`
	Discipline    string          `json:"discipline" db:"discipline"`
	CatLargeCode  string          `json:"cat_large_code" db:"cat_large_code"`
	CatLargeDesc  string          `json:"cat_large_desc" db:"cat_large_desc"`
	CatMidCode    string          `json:"cat_mid_code" db:"cat_mid_code"`
	CatMidDesc    string          `json:"cat_mid_desc" db:"cat_mid_desc"`
	CatSmallCode  string          `json:"cat_small_code" db:"cat_small_code"`
	CatSmallDesc  string          `json:"cat_small_desc" db:"cat_small_desc"`
	Attr1Code     string          `json:"attr1_code" db:"attr1_code"`
	Attr1Spec     string          `json:"attr1_spec" db:"attr1_spec"`
	Attr2Code     string          `json:"attr2_code" db:"attr2_code"`
	Attr2Spec     string          `json:"attr2_spec" db:"attr2_spec"`
	Attr3Code     string          `json:"attr3_code" db:"attr3_code"`
	Attr3Spec     string          `json:"attr3_spec" db:"attr3_spec"`
	Attr4Code     string          `json:"attr4_code" db:"attr4_code"`
	Attr4Spec     string          `json:"attr4_spec" db:"attr4_spec"`
	Attr5Code     string          `json:"attr5_code" db:"attr5_code"`
	Attr5Spec     string          `json:"attr5_spec" db:"attr5_spec"`
	Attr6Code     string          `json:"attr6_code" db:"attr6_code"`
	Attr6Spec     string          `json:"attr6_spec" db:"attr6_spec"`
	UOM1          string          `json:"uom1" db:"uom1"`
	UOM2          string          `json:"uom2" db:"uom2"`
	WorkGroupCode string          `json:"work_group_code" db:"work_group_code"`
	Code          string          `json:"work_master_code" db:"work_master_code" validate:"required"`
	NewOldCode    string          `json:"new_old_code" db:"new_old_code"`
	AddSpec       string          `json:"add_spec" db:"add_spec"`
	Gauge         string          `json:"gauge" db:"gauge"`
	UnitPrice     decimal.Decimal `json:"unit_price" db:"unit_price"`
}

// WorkMasterColumns lists work master fields in spreadsheet column order.
var WorkMasterColumns = []string{
	"discipline",
	"cat_large_code", "cat_large_desc",
	"cat_mid_code", "cat_mid_desc",
	"cat_small_code", "cat_small_desc",
	"attr1_code", "attr1_spec",
	"attr2_code", "attr2_spec",
	"attr3_code", "attr3_spec",
	"attr4_code", "attr4_spec",
	"attr5_code", "attr5_spec",
	"attr6_code", "attr6_spec",
	"uom1", "uom2",
	"work_group_code", "work_master_code", "new_old_code",
	"add_spec", "gauge", "unit_price",
}

// Set assigns the field named by a WorkMasterColumns entry. Unknown
// columns and unparsable prices are reported as false.
func (w *WorkMaster) Set(column, value string) bool {
	if column == "unit_price" {
		if value == "" {
			w.UnitPrice = decimal.Zero
			return true
		}
		p, err := decimal.NewFromString(value)
		if err != nil {
			return false
		}
		w.UnitPrice = p
		return true
	}
	f := w.field(column)
	if f == nil {
		return false
	}
	*f = value
	return true
}

// Get returns the field named by a WorkMasterColumns entry.
func (w *WorkMaster) Get(column string) string {
	if column == "unit_price" {
		return w.UnitPrice.String()
	}
	if f := w.field(column); f != nil {
		return *f
	}
	return ""
}

func (w *WorkMaster) field(column string) *string {
	switch column {
	case "discipline":
		return &w.Discipline
	case "cat_large_code":
		return &w.CatLargeCode
	case "cat_large_desc":
		return &w.CatLargeDesc
	case "cat_mid_code":
		return &w.CatMidCode
	case "cat_mid_desc":
		return &w.CatMidDesc
	case "cat_small_code":
		return &w.CatSmallCode
	case "cat_small_desc":
		return &w.CatSmallDesc
	case "attr1_code":
		return &w.Attr1Code
	case "attr1_spec":
		return &w.Attr1Spec
	case "attr2_code":
		return &w.Attr2Code
	case "attr2_spec":
		return &w.Attr2Spec
	case "attr3_code":
		return &w.Attr3Code
	case "attr3_spec":
		return &w.Attr3Spec
	case "attr4_code":
		return &w.Attr4Code
	case "attr4_spec":
		return &w.Attr4Spec
	case "attr5_code":
		return &w.Attr5Code
	case "attr5_spec":
		return &w.Attr5Spec
	case "attr6_code":
		return &w.Attr6Code
	case "attr6_spec":
		return &w.Attr6Spec
	case "uom1":
		return &w.UOM1
	case "uom2":
		return &w.UOM2
	case "work_group_code":
		return &w.WorkGroupCode
	case "work_master_code":
		return &w.Code
	case "new_old_code":
		return &w.NewOldCode
	case "add_spec":
		return &w.AddSpec
	case "gauge":
		return &w.Gauge
	}
	return nil
}

// Selection links a standard item to its chosen work master.
type Selection struct {
	StandardItemID int64 `json:"standard_item_id" db:"standard_item_id"`
	WorkMasterID   int64 `json:"work_master_id" db:"work_master_id"`
}

// resultRow represents a row in the results table
type resultRow struct {
	IdentityKey        string   `db:"identity_key"`
	RevisionKey        string   `db:"revision_key"`
	BuildingName       string   `db:"building_name"`
	CategoryPath       string   `db:"category_path"`
	Formula            string   `db:"formula"`
	SubstitutedFormula string   `db:"substituted_formula"`
	Value              *float64 `db:"value"`
	ComputedNote       string   `db:"computed_note"`
	AssignmentID       *int64   `db:"assignment_id"`
	TargetItemID       *int64   `db:"target_item_id"`
	BatchID            string   `db:"batch_id"`
	CreatedAt          string   `db:"created_at"`
}
