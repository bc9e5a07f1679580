package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"

	"github.com/hnanmal/B-note/internal/gauge"
)

const workMasterColumns = `id, discipline, cat_large_code, cat_large_desc, cat_mid_code, cat_mid_desc,
	cat_small_code, cat_small_desc, attr1_code, attr1_spec, attr2_code, attr2_spec,
	attr3_code, attr3_spec, attr4_code, attr4_spec, attr5_code, attr5_spec,
	attr6_code, attr6_spec, uom1, uom2, work_group_code, work_master_code,
	new_old_code, add_spec, gauge, unit_price`

const insertWorkMaster = `
	INSERT INTO work_masters (discipline, cat_large_code, cat_large_desc, cat_mid_code, cat_mid_desc,
		cat_small_code, cat_small_desc, attr1_code, attr1_spec, attr2_code, attr2_spec,
		attr3_code, attr3_spec, attr4_code, attr4_spec, attr5_code, attr5_spec,
		attr6_code, attr6_spec, uom1, uom2, work_group_code, work_master_code,
		new_old_code, add_spec, gauge, unit_price)
	VALUES (:discipline, :cat_large_code, :cat_large_desc, :cat_mid_code, :cat_mid_desc,
		:cat_small_code, :cat_small_desc, :attr1_code, :attr1_spec, :attr2_code, :attr2_spec,
		:attr3_code, :attr3_spec, :attr4_code, :attr4_spec, :attr5_code, :attr5_spec,
		:attr6_code, :attr6_spec, :uom1, :uom2, :work_group_code, :work_master_code,
		:new_old_code, :add_spec, :gauge, :unit_price)
`

const updateWorkMaster = `
	UPDATE work_masters SET
		discipline = :discipline, cat_large_code = :cat_large_code, cat_large_desc = :cat_large_desc,
		cat_mid_code = :cat_mid_code, cat_mid_desc = :cat_mid_desc,
		cat_small_code = :cat_small_code, cat_small_desc = :cat_small_desc,
		attr1_code = :attr1_code, attr1_spec = :attr1_spec, attr2_code = :attr2_code, attr2_spec = :attr2_spec,
		attr3_code = :attr3_code, attr3_spec = :attr3_spec, attr4_code = :attr4_code, attr4_spec = :attr4_spec,
		attr5_code = :attr5_code, attr5_spec = :attr5_spec, attr6_code = :attr6_code, attr6_spec = :attr6_spec,
		uom1 = :uom1, uom2 = :uom2, work_group_code = :work_group_code,
		new_old_code = :new_old_code, add_spec = :add_spec, unit_price = :unit_price
	WHERE id = :id
`

var ErrNoGauge = errors.New("work master has no gauge")

// UpsertWorkMasters writes work masters keyed by (code, gauge) and reports
// how many rows were created and updated.
func (d *DB) UpsertWorkMasters(ctx context.Context, wms []WorkMaster) (created, updated int, err error) {
	err = d.withTx(ctx, func(tx *sqlx.Tx) error {
		for i := range wms {
			wm := wms[i]
			wm.Code = strings.TrimSpace(wm.Code)
			wm.Gauge = gauge.Normalize(wm.Gauge)
			if wm.Code == "" {
				return fmt.Errorf("work master %d: empty work_master_code", i)
			}
			if err := gauge.Validate(wm.Gauge); err != nil {
				return fmt.Errorf("work master %s: %w", wm.Code, err)
			}
			var id int64
			err := tx.GetContext(ctx, &id,
				`SELECT id FROM work_masters WHERE work_master_code = ? AND gauge = ?`, wm.Code, wm.Gauge)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := tx.NamedExecContext(ctx, insertWorkMaster, wm); err != nil {
					return fmt.Errorf("inserting work master %s: %w", wm.Code, err)
				}
				created++
			case err != nil:
				return fmt.Errorf("looking up work master %s: %w", wm.Code, err)
			default:
				wm.ID = id
				if _, err := tx.NamedExecContext(ctx, updateWorkMaster, wm); err != nil {
					return fmt.Errorf("updating work master %s: %w", wm.Code, err)
				}
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

// WorkMasters returns all work masters ordered by code then gauge.
func (d *DB) WorkMasters(ctx context.Context) ([]WorkMaster, error) {
	var wms []WorkMaster
	if err := d.conn.SelectContext(ctx, &wms, `SELECT `+workMasterColumns+` FROM work_masters`); err != nil {
		return nil, fmt.Errorf("querying work masters: %w", err)
	}
	sortWorkMasters(wms)
	return wms, nil
}

// GetWorkMaster returns one work master by id.
func (d *DB) GetWorkMaster(ctx context.Context, id int64) (WorkMaster, error) {
	return getWorkMaster(ctx, d.conn, id)
}

func getWorkMaster(ctx context.Context, q sqlx.QueryerContext, id int64) (WorkMaster, error) {
	var wm WorkMaster
	err := sqlx.GetContext(ctx, q, &wm, `SELECT `+workMasterColumns+` FROM work_masters WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkMaster{}, fmt.Errorf("work master %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return WorkMaster{}, fmt.Errorf("querying work master %d: %w", id, err)
	}
	return wm, nil
}

func sortWorkMasters(wms []WorkMaster) {
	sort.SliceStable(wms, func(i, j int) bool {
		return gauge.Compare(wms[i].Code, wms[i].Gauge, wms[j].Code, wms[j].Gauge) < 0
	})
}

// SearchTerms splits a free-text query into LIKE terms. Punctuation is
// trimmed from both ends of each word and single characters are dropped.
func SearchTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(query) {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-'
		})
		if len([]rune(trimmed)) < 2 {
			continue
		}
		terms = append(terms, trimmed)
	}
	return terms
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// SearchWorkMasters returns work masters where every term of query occurs
// in the code or one of the descriptions. An empty query matches nothing.
func (d *DB) SearchWorkMasters(ctx context.Context, query string, limit int) ([]WorkMaster, error) {
	terms := SearchTerms(query)
	if len(terms) == 0 {
		return []WorkMaster{}, nil
	}
	var clauses []string
	var args []any
	for _, t := range terms {
		clauses = append(clauses, `(work_master_code LIKE ? ESCAPE '\' OR cat_large_desc LIKE ? ESCAPE '\'
			OR cat_mid_desc LIKE ? ESCAPE '\' OR cat_small_desc LIKE ? ESCAPE '\' OR add_spec LIKE ? ESCAPE '\')`)
		p := "%" + escapeLike(t) + "%"
		args = append(args, p, p, p, p, p)
	}
	q := `SELECT ` + workMasterColumns + ` FROM work_masters WHERE ` + strings.Join(clauses, " AND ")
	var wms []WorkMaster
	if err := d.conn.SelectContext(ctx, &wms, q, args...); err != nil {
		return nil, fmt.Errorf("searching work masters: %w", err)
	}
	sortWorkMasters(wms)
	if limit > 0 && len(wms) > limit {
		wms = wms[:limit]
	}
	return wms, nil
}

// SelectWorkMaster records wmID as the chosen work master of a standard item.
func (d *DB) SelectWorkMaster(ctx context.Context, standardItemID, wmID int64) error {
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM standard_items WHERE id = ?`, standardItemID); err != nil {
			return fmt.Errorf("looking up standard item %d: %w", standardItemID, err)
		}
		if n == 0 {
			return fmt.Errorf("standard item %d: %w", standardItemID, ErrNotFound)
		}
		if _, err := getWorkMaster(ctx, tx, wmID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO standard_item_selection (standard_item_id, work_master_id) VALUES (?, ?)
			ON CONFLICT(standard_item_id) DO UPDATE SET work_master_id = excluded.work_master_id
		`, standardItemID, wmID)
		if err != nil {
			return fmt.Errorf("selecting work master: %w", err)
		}
		return nil
	})
}

// ClearSelection removes the work master choice of a standard item.
func (d *DB) ClearSelection(ctx context.Context, standardItemID int64) error {
	if _, err := d.conn.ExecContext(ctx,
		`DELETE FROM standard_item_selection WHERE standard_item_id = ?`, standardItemID); err != nil {
		return fmt.Errorf("clearing selection: %w", err)
	}
	return nil
}

// Selections returns every standard item -> work master choice.
func (d *DB) Selections(ctx context.Context) ([]Selection, error) {
	var out []Selection
	err := d.conn.SelectContext(ctx, &out,
		`SELECT standard_item_id, work_master_id FROM standard_item_selection ORDER BY standard_item_id`)
	if err != nil {
		return nil, fmt.Errorf("querying selections: %w", err)
	}
	return out, nil
}
