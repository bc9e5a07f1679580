package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/hnanmal/B-note/internal/gauge"
)

func codeGauges(ctx context.Context, tx *sqlx.Tx, code string) ([]string, error) {
	var gs []string
	if err := tx.SelectContext(ctx, &gs, `SELECT gauge FROM work_masters WHERE work_master_code = ?`, code); err != nil {
		return nil, fmt.Errorf("querying gauges of %s: %w", code, err)
	}
	return gs, nil
}

// AddGauge copies work master id as a new variant carrying the next free
// gauge letter of its code.
func (d *DB) AddGauge(ctx context.Context, id int64) (WorkMaster, error) {
	var out WorkMaster
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		wm, err := getWorkMaster(ctx, tx, id)
		if err != nil {
			return err
		}
		used, err := codeGauges(ctx, tx, wm.Code)
		if err != nil {
			return err
		}
		next, err := gauge.Next(used)
		if err != nil {
			return fmt.Errorf("adding gauge to %s: %w", wm.Code, err)
		}
		wm.Gauge = next
		res, err := tx.NamedExecContext(ctx, insertWorkMaster, wm)
		if err != nil {
			return fmt.Errorf("inserting gauge %s of %s: %w", next, wm.Code, err)
		}
		if wm.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("inserting gauge %s of %s: %w", next, wm.Code, err)
		}
		out = wm
		return nil
	})
	return out, err
}

// RemoveGauge deletes a gauged work master and relabels the remaining
// gauges of its code so the letters stay contiguous from A.
func (d *DB) RemoveGauge(ctx context.Context, id int64) (map[string]string, error) {
	var renames map[string]string
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		wm, err := getWorkMaster(ctx, tx, id)
		if err != nil {
			return err
		}
		if gauge.Normalize(wm.Gauge) == "" {
			return fmt.Errorf("work master %d: %w", id, ErrNoGauge)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM work_masters WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting work master %d: %w", id, err)
		}
		remaining, err := codeGauges(ctx, tx, wm.Code)
		if err != nil {
			return err
		}
		renames = gauge.Compact(remaining)
		olds := make([]string, 0, len(renames))
		for old := range renames {
			olds = append(olds, old)
		}
		// Ascending order keeps each target letter free when it is taken.
		sort.Strings(olds)
		for _, old := range olds {
			if _, err := tx.ExecContext(ctx,
				`UPDATE work_masters SET gauge = ? WHERE work_master_code = ? AND gauge = ?`,
				renames[old], wm.Code, old); err != nil {
				return fmt.Errorf("relabeling gauge %s of %s: %w", old, wm.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renames, nil
}
