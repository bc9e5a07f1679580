package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hnanmal/B-note/internal/results"
)

const resultColumns = `identity_key, revision_key, building_name, category_path, formula,
	substituted_formula, value, computed_note, assignment_id, target_item_id, batch_id, created_at`

const upsertResult = `
	INSERT INTO results (` + resultColumns + `)
	VALUES (:identity_key, :revision_key, :building_name, :category_path, :formula,
		:substituted_formula, :value, :computed_note, :assignment_id, :target_item_id, :batch_id, :created_at)
	ON CONFLICT(identity_key) DO UPDATE SET
		revision_key = excluded.revision_key, building_name = excluded.building_name,
		category_path = excluded.category_path, formula = excluded.formula,
		substituted_formula = excluded.substituted_formula, value = excluded.value,
		computed_note = excluded.computed_note, assignment_id = excluded.assignment_id,
		target_item_id = excluded.target_item_id, batch_id = excluded.batch_id,
		created_at = excluded.created_at
`

var _ results.Store = (*DB)(nil)

func toResultRow(r results.Record) resultRow {
	return resultRow{
		IdentityKey:        r.IdentityKey,
		RevisionKey:        r.RevisionKey,
		BuildingName:       r.BuildingName,
		CategoryPath:       r.CategoryPath,
		Formula:            r.Formula,
		SubstitutedFormula: r.SubstitutedFormula,
		Value:              r.Value,
		ComputedNote:       r.ComputedNote,
		AssignmentID:       r.AssignmentID,
		TargetItemID:       r.TargetItemID,
		BatchID:            r.BatchID,
		CreatedAt:          r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (r resultRow) record() (results.Record, error) {
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return results.Record{}, fmt.Errorf("result %s: parsing created_at %q: %w", r.IdentityKey, r.CreatedAt, err)
	}
	return results.Record{
		IdentityKey:        r.IdentityKey,
		RevisionKey:        r.RevisionKey,
		BuildingName:       r.BuildingName,
		CategoryPath:       r.CategoryPath,
		Formula:            r.Formula,
		SubstitutedFormula: r.SubstitutedFormula,
		Value:              r.Value,
		ComputedNote:       r.ComputedNote,
		AssignmentID:       r.AssignmentID,
		TargetItemID:       r.TargetItemID,
		BatchID:            r.BatchID,
		CreatedAt:          created,
	}, nil
}

// UpsertResults writes recs by identity key in one transaction.
func (d *DB) UpsertResults(ctx context.Context, recs []results.Record) (int, int, error) {
	var inserted, replaced int
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, r := range recs {
			var exists int
			if err := tx.GetContext(ctx, &exists,
				`SELECT COUNT(*) FROM results WHERE identity_key = ?`, r.IdentityKey); err != nil {
				return fmt.Errorf("checking result %s: %w", r.IdentityKey, err)
			}
			if _, err := tx.NamedExecContext(ctx, upsertResult, toResultRow(r)); err != nil {
				return fmt.Errorf("writing result %s: %w", r.IdentityKey, err)
			}
			if exists > 0 {
				replaced++
			} else {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, replaced, nil
}

// ReplaceResults clears the (revision, building) partition and inserts recs
// in one transaction. Nothing changes if any insert fails.
func (d *DB) ReplaceResults(ctx context.Context, revision, building string, recs []results.Record) (int, error) {
	var deleted int
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM results WHERE revision_key = ? AND building_name = ?`, revision, building)
		if err != nil {
			return fmt.Errorf("clearing results: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("clearing results: %w", err)
		}
		deleted = int(n)
		for _, r := range recs {
			if _, err := tx.NamedExecContext(ctx, upsertResult, toResultRow(r)); err != nil {
				return fmt.Errorf("writing result %s: %w", r.IdentityKey, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// DeleteResults removes the (revision, building) partition.
func (d *DB) DeleteResults(ctx context.Context, revision, building string) (int, error) {
	res, err := d.conn.ExecContext(ctx,
		`DELETE FROM results WHERE revision_key = ? AND building_name = ?`, revision, building)
	if err != nil {
		return 0, fmt.Errorf("deleting results: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting results: %w", err)
	}
	return int(n), nil
}

// ListResults returns stored records matching f.
func (d *DB) ListResults(ctx context.Context, f results.Filter) ([]results.Record, error) {
	var where []string
	var args []any
	if f.RevisionKey != "" {
		where = append(where, "revision_key = ?")
		args = append(args, f.RevisionKey)
	}
	if f.BuildingName != "" {
		where = append(where, "building_name = ?")
		args = append(args, f.BuildingName)
	}
	q := `SELECT ` + resultColumns + ` FROM results`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY revision_key, building_name, category_path, identity_key`

	var rows []resultRow
	if err := d.conn.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	out := make([]results.Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
