// Package seed reads and writes whole catalogs as YAML documents.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/hnanmal/B-note/internal/db"
	"github.com/hnanmal/B-note/internal/gauge"
	"github.com/hnanmal/B-note/internal/symbols"
	"github.com/hnanmal/B-note/internal/tree"
)

// Document is the YAML layout of a catalog.
type Document struct {
	Families    []Family     `yaml:"families" validate:"dive"`
	Items       []Item       `yaml:"items" validate:"dive"`
	Assignments []Assignment `yaml:"assignments" validate:"dive"`
	Symbols     []Symbol     `yaml:"symbols" validate:"dive"`
	WorkMasters []WorkMaster `yaml:"work_masters" validate:"dive"`
}

type Family struct {
	ID          int64   `yaml:"id" validate:"gt=0"`
	Parent      *int64  `yaml:"parent,omitempty" validate:"omitempty,gt=0"`
	Name        string  `yaml:"name" validate:"required"`
	Sequence    *string `yaml:"sequence,omitempty"`
	ManualInput bool    `yaml:"manual_input,omitempty"`
}

type Item struct {
	ID     int64  `yaml:"id" validate:"gt=0"`
	Parent *int64 `yaml:"parent,omitempty" validate:"omitempty,gt=0"`
	Name   string `yaml:"name" validate:"required"`
	Type   string `yaml:"type" validate:"oneof=GWM SWM"`
}

type Assignment struct {
	ID      int64   `yaml:"id" validate:"gt=0"`
	Family  int64   `yaml:"family" validate:"gt=0"`
	Item    int64   `yaml:"item" validate:"gt=0"`
	Formula *string `yaml:"formula,omitempty"`
	Note    *string `yaml:"note,omitempty"`
}

type Symbol struct {
	ID       int64   `yaml:"id" validate:"gt=0"`
	Family   int64   `yaml:"family" validate:"gt=0"`
	Key      string  `yaml:"key" validate:"required"`
	Value    string  `yaml:"value"`
	CalcCode *string `yaml:"calc_code,omitempty"`
}

type WorkMaster struct {
	Code        string `yaml:"code" validate:"required"`
	Gauge       string `yaml:"gauge,omitempty"`
	Discipline  string `yaml:"discipline,omitempty"`
	Description string `yaml:"description,omitempty"`
	Spec        string `yaml:"spec,omitempty"`
	UOM         string `yaml:"uom,omitempty"`
	UnitPrice   string `yaml:"unit_price,omitempty" validate:"omitempty,numeric"`
}

// ErrDuplicateID is returned when two rows of one section share an id.
var ErrDuplicateID = errors.New("duplicate id")

// Decode parses and validates a YAML catalog. Unknown fields are errors.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := validator.New().Struct(&doc); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	if err := checkUnique(&doc); err != nil {
		return nil, err
	}
	for _, wm := range doc.WorkMasters {
		if err := gauge.Validate(wm.Gauge); err != nil {
			return nil, fmt.Errorf("work master %s: %w", wm.Code, err)
		}
	}
	return &doc, nil
}

func checkUnique(doc *Document) error {
	check := func(section string, ids []int64) error {
		seen := map[int64]bool{}
		for _, id := range ids {
			if seen[id] {
				return fmt.Errorf("%w: %s %d", ErrDuplicateID, section, id)
			}
			seen[id] = true
		}
		return nil
	}
	var ids []int64
	for _, f := range doc.Families {
		ids = append(ids, f.ID)
	}
	if err := check("family", ids); err != nil {
		return err
	}
	ids = ids[:0]
	for _, it := range doc.Items {
		ids = append(ids, it.ID)
	}
	if err := check("item", ids); err != nil {
		return err
	}
	ids = ids[:0]
	for _, a := range doc.Assignments {
		ids = append(ids, a.ID)
	}
	if err := check("assignment", ids); err != nil {
		return err
	}
	ids = ids[:0]
	for _, s := range doc.Symbols {
		ids = append(ids, s.ID)
	}
	return check("symbol", ids)
}

// Catalog converts the document into store rows.
func (doc *Document) Catalog() db.Catalog {
	var c db.Catalog
	for _, f := range doc.Families {
		c.Nodes = append(c.Nodes, tree.Node{
			ID: f.ID, ParentID: f.Parent, Name: f.Name, OrderToken: f.Sequence,
			Kind: tree.KindFamily, ManualInput: f.ManualInput,
		})
	}
	for _, it := range doc.Items {
		c.Items = append(c.Items, tree.Item{ID: it.ID, ParentID: it.Parent, Name: it.Name, Kind: tree.ItemKind(it.Type)})
	}
	for _, a := range doc.Assignments {
		c.Assignments = append(c.Assignments, tree.Assignment{
			ID: a.ID, OwningNodeID: a.Family, TargetItemID: a.Item, Formula: a.Formula, Note: a.Note,
		})
	}
	for _, s := range doc.Symbols {
		c.Symbols = append(c.Symbols, symbols.Entry{
			ID: s.ID, ScopeNodeID: s.Family, Key: s.Key, Value: s.Value, CalcCode: s.CalcCode,
		})
	}
	return c
}

// WorkMasterRows converts the document's work masters into store rows.
func (doc *Document) WorkMasterRows() []db.WorkMaster {
	out := make([]db.WorkMaster, 0, len(doc.WorkMasters))
	for _, w := range doc.WorkMasters {
		price, err := decimal.NewFromString(w.UnitPrice)
		if err != nil {
			price = decimal.Zero
		}
		out = append(out, db.WorkMaster{
			Code: w.Code, Gauge: w.Gauge, Discipline: w.Discipline,
			CatSmallDesc: w.Description, AddSpec: w.Spec, UOM1: w.UOM, UnitPrice: price,
		})
	}
	return out
}

// FromCatalog builds a document from store rows.
func FromCatalog(c db.Catalog, wms []db.WorkMaster) *Document {
	doc := &Document{}
	for _, n := range c.Nodes {
		doc.Families = append(doc.Families, Family{
			ID: n.ID, Parent: n.ParentID, Name: n.Name, Sequence: n.OrderToken, ManualInput: n.ManualInput,
		})
	}
	for _, it := range c.Items {
		doc.Items = append(doc.Items, Item{ID: it.ID, Parent: it.ParentID, Name: it.Name, Type: string(it.Kind)})
	}
	for _, a := range c.Assignments {
		doc.Assignments = append(doc.Assignments, Assignment{
			ID: a.ID, Family: a.OwningNodeID, Item: a.TargetItemID, Formula: a.Formula, Note: a.Note,
		})
	}
	for _, s := range c.Symbols {
		doc.Symbols = append(doc.Symbols, Symbol{ID: s.ID, Family: s.ScopeNodeID, Key: s.Key, Value: s.Value, CalcCode: s.CalcCode})
	}
	for _, w := range wms {
		doc.WorkMasters = append(doc.WorkMasters, WorkMaster{
			Code: w.Code, Gauge: w.Gauge, Discipline: w.Discipline, Description: w.CatSmallDesc,
			Spec: w.AddSpec, UOM: w.UOM1, UnitPrice: w.UnitPrice.String(),
		})
	}
	return doc
}

// Encode writes doc as YAML.
func Encode(w io.Writer, doc *Document) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
