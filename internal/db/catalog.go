package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hnanmal/B-note/internal/symbols"
	"github.com/hnanmal/B-note/internal/tree"
)

// FamilyNodes returns every family node row.
func (d *DB) FamilyNodes(ctx context.Context) ([]tree.Node, error) {
	var rows []familyRow
	err := d.conn.SelectContext(ctx, &rows, `
		SELECT id, parent_id, name, sequence_number, item_type, manual_input
		FROM family_nodes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying family nodes: %w", err)
	}
	nodes := make([]tree.Node, 0, len(rows))
	for _, r := range rows {
		nodes = append(nodes, r.node())
	}
	return nodes, nil
}

// StandardItems returns every standard item row.
func (d *DB) StandardItems(ctx context.Context) ([]tree.Item, error) {
	var rows []itemRow
	if err := d.conn.SelectContext(ctx, &rows, `SELECT id, parent_id, name, type FROM standard_items ORDER BY id`); err != nil {
		return nil, fmt.Errorf("querying standard items: %w", err)
	}
	items := make([]tree.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, tree.Item{ID: r.ID, ParentID: r.ParentID, Name: r.Name, Kind: tree.ItemKind(r.Type)})
	}
	return items, nil
}

// Assignments returns every family -> standard item assignment.
func (d *DB) Assignments(ctx context.Context) ([]tree.Assignment, error) {
	var rows []assignmentRow
	err := d.conn.SelectContext(ctx, &rows, `
		SELECT id, family_id, standard_item_id, formula, description
		FROM assignments ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	out := make([]tree.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, tree.Assignment{
			ID:           r.ID,
			OwningNodeID: r.FamilyID,
			TargetItemID: r.StandardItemID,
			Formula:      r.Formula,
			Note:         r.Description,
		})
	}
	return out, nil
}

// SymbolEntries returns every calc dictionary entry.
func (d *DB) SymbolEntries(ctx context.Context) ([]symbols.Entry, error) {
	var rows []symbolRow
	err := d.conn.SelectContext(ctx, &rows, `
		SELECT id, family_id, calc_code, symbol_key, symbol_value
		FROM calc_dictionary ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying calc dictionary: %w", err)
	}
	out := make([]symbols.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

// CatalogInput loads everything the tree assembler needs.
func (d *DB) CatalogInput(ctx context.Context) (tree.Input, error) {
	nodes, err := d.FamilyNodes(ctx)
	if err != nil {
		return tree.Input{}, err
	}
	items, err := d.StandardItems(ctx)
	if err != nil {
		return tree.Input{}, err
	}
	asg, err := d.Assignments(ctx)
	if err != nil {
		return tree.Input{}, err
	}
	return tree.Input{Nodes: nodes, Items: items, Assignments: asg}, nil
}

// Catalog is a set of catalog rows written together.
type Catalog struct {
	Nodes       []tree.Node
	Items       []tree.Item
	Assignments []tree.Assignment
	Symbols     []symbols.Entry
}

// CatalogCounts reports rows written per table.
type CatalogCounts struct {
	Nodes       int `json:"nodes"`
	Items       int `json:"items"`
	Assignments int `json:"assignments"`
	Symbols     int `json:"symbols"`
}

// SaveCatalog upserts all rows of c by id in one transaction. Assignments
// also replace an existing row for the same (family, item) pair.
func (d *DB) SaveCatalog(ctx context.Context, c Catalog) (CatalogCounts, error) {
	var n CatalogCounts
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, node := range c.Nodes {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO family_nodes (id, parent_id, name, sequence_number, item_type, manual_input)
				VALUES (:id, :parent_id, :name, :sequence_number, :item_type, :manual_input)
				ON CONFLICT(id) DO UPDATE SET
					parent_id = excluded.parent_id, name = excluded.name,
					sequence_number = excluded.sequence_number, item_type = excluded.item_type,
					manual_input = excluded.manual_input
			`, familyRowOf(node)); err != nil {
				return fmt.Errorf("saving family node %d: %w", node.ID, err)
			}
			n.Nodes++
		}
		for _, it := range c.Items {
			row := itemRow{ID: it.ID, ParentID: it.ParentID, Name: it.Name, Type: string(it.Kind)}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO standard_items (id, parent_id, name, type)
				VALUES (:id, :parent_id, :name, :type)
				ON CONFLICT(id) DO UPDATE SET
					parent_id = excluded.parent_id, name = excluded.name, type = excluded.type
			`, row); err != nil {
				return fmt.Errorf("saving standard item %d: %w", it.ID, err)
			}
			n.Items++
		}
		for _, a := range c.Assignments {
			row := assignmentRow{ID: a.ID, FamilyID: a.OwningNodeID, StandardItemID: a.TargetItemID, Formula: a.Formula, Description: a.Note}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM assignments WHERE family_id = ? AND standard_item_id = ? AND id <> ?`,
				row.FamilyID, row.StandardItemID, row.ID); err != nil {
				return fmt.Errorf("saving assignment %d: %w", a.ID, err)
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO assignments (id, family_id, standard_item_id, formula, description)
				VALUES (:id, :family_id, :standard_item_id, :formula, :description)
				ON CONFLICT(id) DO UPDATE SET
					family_id = excluded.family_id, standard_item_id = excluded.standard_item_id,
					formula = excluded.formula, description = excluded.description
			`, row); err != nil {
				return fmt.Errorf("saving assignment %d: %w", a.ID, err)
			}
			n.Assignments++
		}
		written, err := saveSymbols(ctx, tx, c.Symbols)
		n.Symbols = written
		return err
	})
	if err != nil {
		return CatalogCounts{}, err
	}
	return n, nil
}

// SaveSymbolEntries upserts calc dictionary entries by id.
func (d *DB) SaveSymbolEntries(ctx context.Context, entries []symbols.Entry) (int, error) {
	var n int
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		n, err = saveSymbols(ctx, tx, entries)
		return err
	})
	return n, err
}

func saveSymbols(ctx context.Context, tx *sqlx.Tx, entries []symbols.Entry) (int, error) {
	n := 0
	for _, e := range entries {
		row := symbolRow{ID: e.ID, FamilyID: e.ScopeNodeID, CalcCode: e.CalcCode, SymbolKey: e.Key, SymbolValue: e.Value}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO calc_dictionary (id, family_id, calc_code, symbol_key, symbol_value)
			VALUES (:id, :family_id, :calc_code, :symbol_key, :symbol_value)
			ON CONFLICT(id) DO UPDATE SET
				family_id = excluded.family_id, calc_code = excluded.calc_code,
				symbol_key = excluded.symbol_key, symbol_value = excluded.symbol_value
		`, row); err != nil {
			return n, fmt.Errorf("saving symbol entry %d: %w", e.ID, err)
		}
		n++
	}
	return n, nil
}
