package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hnanmal/B-note/internal/results"
	"github.com/hnanmal/B-note/internal/symbols"
	"github.com/hnanmal/B-note/internal/tree"
)

// setupTestDB opens a migrated in-memory database.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func strPtr(s string) *string { return &s }
func i64(v int64) *int64      { return &v }
func f64(v float64) *float64  { return &v }

func seedCatalog(t *testing.T, d *DB) {
	t.Helper()
	_, err := d.SaveCatalog(context.Background(), Catalog{
		Nodes: []tree.Node{
			{ID: 1, Name: "Structure", OrderToken: strPtr("10")},
			{ID: 2, ParentID: i64(1), Name: "Beam", OrderToken: strPtr("10.1"), ManualInput: true},
		},
		Items: []tree.Item{
			{ID: 10, Name: "Concrete", Kind: tree.ItemGWM},
			{ID: 11, ParentID: i64(10), Name: "Concrete C24", Kind: tree.ItemSWM},
		},
		Assignments: []tree.Assignment{
			{ID: 100, OwningNodeID: 2, TargetItemID: 11, Formula: strPtr("L * W")},
		},
		Symbols: []symbols.Entry{
			{ID: 1, ScopeNodeID: 1, Key: "L", Value: "3"},
			{ID: 2, ScopeNodeID: 2, Key: "W", Value: "2", CalcCode: strPtr("B-01")},
		},
	})
	require.NoError(t, err)
}

func TestCatalogRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	seedCatalog(t, d)

	in, err := d.CatalogInput(ctx)
	require.NoError(t, err)
	require.Len(t, in.Nodes, 2)
	assert.Equal(t, tree.KindFamily, in.Nodes[0].Kind)
	assert.Nil(t, in.Nodes[0].ParentID)
	assert.Equal(t, int64(1), *in.Nodes[1].ParentID)
	assert.True(t, in.Nodes[1].ManualInput)
	assert.Equal(t, "10.1", *in.Nodes[1].OrderToken)

	require.Len(t, in.Items, 2)
	assert.Equal(t, tree.ItemSWM, in.Items[1].Kind)

	require.Len(t, in.Assignments, 1)
	assert.Equal(t, "L * W", *in.Assignments[0].Formula)
	assert.Nil(t, in.Assignments[0].Note)

	entries, err := d.SymbolEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "B-01", *entries[1].CalcCode)

	f := tree.Build(in)
	ns := symbols.Resolve(2, entries, f.Ancestry())
	assert.Equal(t, symbols.Namespace{"L": "3", "W": "2"}, ns)
}

func TestSaveCatalogReplacesAssignmentPair(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	seedCatalog(t, d)

	_, err := d.SaveCatalog(ctx, Catalog{Assignments: []tree.Assignment{
		{ID: 200, OwningNodeID: 2, TargetItemID: 11, Formula: strPtr("L + W")},
	}})
	require.NoError(t, err)

	asg, err := d.Assignments(ctx)
	require.NoError(t, err)
	require.Len(t, asg, 1)
	assert.Equal(t, int64(200), asg[0].ID)
	assert.Equal(t, "L + W", *asg[0].Formula)
}

func record(rev, bld string, item int64, v float64) results.Record {
	return results.Record{
		IdentityKey:  results.IdentityKey(rev, bld, "L * W", results.TargetRef(2, item)),
		RevisionKey:  rev,
		BuildingName: bld,
		CategoryPath: "Structure > Beam",
		Formula:      "L * W",
		Value:        f64(v),
		TargetItemID: i64(item),
		BatchID:      "b1",
		CreatedAt:    time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC),
	}
}

func TestResultsStore(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	ins, rep, err := d.UpsertResults(ctx, []results.Record{record("R1", "B1", 1, 6), record("R1", "B1", 2, 7)})
	require.NoError(t, err)
	assert.Equal(t, 2, ins)
	assert.Equal(t, 0, rep)

	ins, rep, err = d.UpsertResults(ctx, []results.Record{record("R1", "B1", 1, 60), record("R1", "B2", 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, ins)
	assert.Equal(t, 1, rep)

	got, err := d.ListResults(ctx, results.Filter{RevisionKey: "R1", BuildingName: "B1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].CreatedAt.Equal(time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC)))

	deleted, err := d.ReplaceResults(ctx, "R1", "B1", []results.Record{record("R1", "B1", 3, 9)})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	all, err := d.ListResults(ctx, results.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := d.DeleteResults(ctx, "R1", "B2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListResultsRejectsCorruptTimestamp(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	_, _, err := d.UpsertResults(ctx, []results.Record{record("R1", "B1", 1, 6)})
	require.NoError(t, err)
	_, err = d.Conn().ExecContext(ctx, `UPDATE results SET created_at = 'yesterday'`)
	require.NoError(t, err)

	got, err := d.ListResults(ctx, results.Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at")
	assert.Nil(t, got)
}

func TestReconcileOverwriteThroughStore(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	r := results.NewReconciler(d)

	var five []results.Record
	for i := int64(1); i <= 5; i++ {
		five = append(five, record("R1", "B1", i, float64(i)))
	}
	sum, err := r.Reconcile(ctx, results.ModeAppend, "R1", "B1", five)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Inserted)

	sum, err = r.Reconcile(ctx, results.ModeAppend, "R1", "B1", five)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Inserted)
	assert.Equal(t, 5, sum.Replaced)

	sum, err = r.Reconcile(ctx, results.ModeOverwrite, "R1", "B1", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Deleted)
	assert.Equal(t, 0, sum.Inserted)
}

func TestReplaceResultsRollsBack(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	d := NewFromConn(conn)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM results").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO results").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	_, err = d.ReplaceResults(context.Background(), "R1", "B1", []results.Record{record("R1", "B1", 1, 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertResultsCommitFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	d := NewFromConn(conn)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO results").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	_, _, err = d.UpsertResults(context.Background(), []results.Record{record("R1", "B1", 1, 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "committing transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func workMaster(code, desc, price string) WorkMaster {
	return WorkMaster{Code: code, CatSmallDesc: desc, UOM1: "M3", UnitPrice: decimal.RequireFromString(price)}
}

func TestUpsertWorkMasters(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	created, updated, err := d.UpsertWorkMasters(ctx, []WorkMaster{
		workMaster("C-10", "Ready mixed concrete", "85000"),
		workMaster("C-2", "Rebar HD13", "1200.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, updated)

	created, updated, err = d.UpsertWorkMasters(ctx, []WorkMaster{workMaster(" C-10 ", "Ready mixed concrete 24MPa", "90000")})
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 1, updated)

	wms, err := d.WorkMasters(ctx)
	require.NoError(t, err)
	require.Len(t, wms, 2)
	assert.Equal(t, "C-2", wms[0].Code)
	assert.Equal(t, "Ready mixed concrete 24MPa", wms[1].CatSmallDesc)
	assert.True(t, wms[1].UnitPrice.Equal(decimal.NewFromInt(90000)))
	assert.Equal(t, "1200.5", wms[0].UnitPrice.String())

	_, _, err = d.UpsertWorkMasters(ctx, []WorkMaster{{Code: " "}})
	assert.Error(t, err)
}

func TestSearchWorkMasters(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	_, _, err := d.UpsertWorkMasters(ctx, []WorkMaster{
		workMaster("C-10", "Ready mixed concrete", "1"),
		workMaster("R-1", "Rebar 100%", "1"),
	})
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{"concrete", []string{"C-10"}},
		{"CONCRETE mixed", []string{"C-10"}},
		{"r-1", []string{"R-1"}},
		{"100%", []string{"R-1"}},
		{"concrete rebar", nil},
		{"a", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := d.SearchWorkMasters(ctx, tt.query, 10)
			require.NoError(t, err)
			var codes []string
			for _, wm := range got {
				codes = append(codes, wm.Code)
			}
			assert.Equal(t, tt.want, codes)
		})
	}
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"C-10", "concrete", "철근"}, SearchTerms("(C-10), concrete! a 철근"))
	assert.Empty(t, SearchTerms("  "))
}

func TestGauges(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	_, _, err := d.UpsertWorkMasters(ctx, []WorkMaster{workMaster("C-10", "Concrete", "100")})
	require.NoError(t, err)
	wms, err := d.WorkMasters(ctx)
	require.NoError(t, err)
	base := wms[0]

	a, err := d.AddGauge(ctx, base.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", a.Gauge)
	assert.True(t, a.UnitPrice.Equal(decimal.NewFromInt(100)))
	b, err := d.AddGauge(ctx, base.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", b.Gauge)
	c, err := d.AddGauge(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "C", c.Gauge)

	renames, err := d.RemoveGauge(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"B": "A", "C": "B"}, renames)

	wms, err = d.WorkMasters(ctx)
	require.NoError(t, err)
	var gauges []string
	for _, wm := range wms {
		gauges = append(gauges, wm.Gauge)
	}
	assert.Equal(t, []string{"", "A", "B"}, gauges)

	_, err = d.RemoveGauge(ctx, base.ID)
	assert.ErrorIs(t, err, ErrNoGauge)
	_, err = d.AddGauge(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSelections(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	seedCatalog(t, d)
	_, _, err := d.UpsertWorkMasters(ctx, []WorkMaster{workMaster("C-10", "Concrete", "100")})
	require.NoError(t, err)
	wms, err := d.WorkMasters(ctx)
	require.NoError(t, err)

	require.NoError(t, d.SelectWorkMaster(ctx, 11, wms[0].ID))
	assert.ErrorIs(t, d.SelectWorkMaster(ctx, 999, wms[0].ID), ErrNotFound)
	assert.ErrorIs(t, d.SelectWorkMaster(ctx, 11, 999), ErrNotFound)

	sel, err := d.Selections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Selection{{StandardItemID: 11, WorkMasterID: wms[0].ID}}, sel)

	require.NoError(t, d.ClearSelection(ctx, 11))
	sel, err = d.Selections(ctx)
	require.NoError(t, err)
	assert.Empty(t, sel)
}

func TestSchemaVersion(t *testing.T) {
	d := setupTestDB(t)
	v, err := d.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}
