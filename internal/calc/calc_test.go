package calc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hnanmal/B-note/internal/formula"
	"github.com/hnanmal/B-note/internal/results"
	"github.com/hnanmal/B-note/internal/symbols"
	"github.com/hnanmal/B-note/internal/tree"
)

func strPtr(s string) *string { return &s }
func i64(v int64) *int64      { return &v }

type staticSource struct {
	in      tree.Input
	entries []symbols.Entry
	err     error
}

func (s staticSource) CatalogInput(context.Context) (tree.Input, error) { return s.in, s.err }
func (s staticSource) SymbolEntries(context.Context) ([]symbols.Entry, error) {
	return s.entries, nil
}

func catalog() staticSource {
	return staticSource{
		in: tree.Input{
			Nodes: []tree.Node{
				{ID: 1, Name: "Structure", OrderToken: strPtr("10")},
				{ID: 2, ParentID: i64(1), Name: "Beam", OrderToken: strPtr("10.1")},
				{ID: 3, ParentID: i64(1), Name: "Opening", OrderToken: strPtr("10.2"), ManualInput: true},
			},
			Items: []tree.Item{
				{ID: 10, Name: "Concrete", Kind: tree.ItemGWM},
				{ID: 11, ParentID: i64(10), Name: "Concrete C24", Kind: tree.ItemSWM},
				{ID: 12, ParentID: i64(10), Name: "Formwork", Kind: tree.ItemSWM},
			},
			Assignments: []tree.Assignment{
				{ID: 100, OwningNodeID: 2, TargetItemID: 11, Formula: strPtr("L * W"), Note: strPtr("beam volume")},
				{ID: 101, OwningNodeID: 2, TargetItemID: 12, Formula: strPtr("L / Z")},
				{ID: 102, OwningNodeID: 1, TargetItemID: 10},
				{ID: 103, OwningNodeID: 3, TargetItemID: 11, Formula: strPtr("=12.5")},
				{ID: 104, OwningNodeID: 3, TargetItemID: 12, Formula: strPtr("L * 2")},
			},
		},
		entries: []symbols.Entry{
			{ID: 1, ScopeNodeID: 1, Key: "L", Value: "3"},
			{ID: 2, ScopeNodeID: 2, Key: "W", Value: "2"},
		},
	}
}

func byAssignment(recs []results.Record) map[int64]results.Record {
	out := map[int64]results.Record{}
	for _, r := range recs {
		out[*r.AssignmentID] = r
	}
	return out
}

func reasons(skipped []Skipped) map[int64]string {
	out := map[int64]string{}
	for _, s := range skipped {
		out[s.AssignmentID] = s.Reason
	}
	return out
}

func TestComputeEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := results.NewMemStore()
	core, logs := observer.New(zapcore.DebugLevel)
	eng := NewEngine(catalog(), results.NewReconciler(store), zap.New(core))

	rep, err := eng.Compute(ctx, Options{Revision: "R1", Building: "B1"})
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Considered)
	assert.Equal(t, 2, rep.Evaluated)
	assert.Equal(t, 2, rep.Summary.Inserted)
	assert.NotEmpty(t, rep.Summary.BatchID)

	why := reasons(rep.Skipped)
	require.Len(t, why, 3)
	assert.Equal(t, "no formula", why[102])
	assert.Contains(t, why[101], formula.ErrUndefined.Error())
	assert.Contains(t, why[104], formula.ErrUndefined.Error())

	stored, err := store.ListResults(ctx, results.Filter{RevisionKey: "R1", BuildingName: "B1"})
	require.NoError(t, err)
	got := byAssignment(stored)
	require.Len(t, got, 2)

	beam := got[100]
	assert.Equal(t, 6.0, *beam.Value)
	assert.Equal(t, "Structure > Beam > Concrete > Concrete C24", beam.CategoryPath)
	assert.Equal(t, "3 * 2", beam.SubstitutedFormula)
	assert.Equal(t, "beam volume", beam.ComputedNote)
	assert.Equal(t, int64(11), *beam.TargetItemID)

	manual := got[103]
	assert.Equal(t, 12.5, *manual.Value)
	assert.Equal(t, ManualInputNote, manual.ComputedNote)

	assert.Equal(t, 3, logs.FilterMessage("skipped assignment").Len())
	assert.Equal(t, 1, logs.FilterMessage("computed").Len())
}

func TestComputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := results.NewMemStore()
	eng := NewEngine(catalog(), results.NewReconciler(store), nil)

	_, err := eng.Compute(ctx, Options{Revision: "R1", Building: "B1"})
	require.NoError(t, err)
	rep, err := eng.Compute(ctx, Options{Revision: "R1", Building: "B1"})
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Summary.Inserted)
	assert.Equal(t, 2, rep.Summary.Replaced)

	rep, err = eng.Compute(ctx, Options{Revision: "R1", Building: "B1", Mode: results.ModeOverwrite})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Summary.Deleted)
	assert.Equal(t, 2, rep.Summary.Inserted)

	stored, err := store.ListResults(ctx, results.Filter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestComputeDryRun(t *testing.T) {
	ctx := context.Background()
	store := results.NewMemStore()
	eng := NewEngine(catalog(), results.NewReconciler(store), nil)

	rep, err := eng.Compute(ctx, Options{Revision: "R1", Building: "B1", DryRun: true})
	require.NoError(t, err)
	assert.Len(t, rep.Records, 2)
	assert.Empty(t, rep.Summary.BatchID)

	stored, err := store.ListResults(ctx, results.Filter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestComputeSubtree(t *testing.T) {
	eng := NewEngine(catalog(), results.NewReconciler(results.NewMemStore()), nil)
	rep, err := eng.Compute(context.Background(), Options{Revision: "R1", Building: "B1", RootID: i64(3), DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Considered)
	require.Len(t, rep.Records, 1)
	assert.Equal(t, int64(103), *rep.Records[0].AssignmentID)

	_, err = eng.Compute(context.Background(), Options{RootID: i64(99)})
	assert.ErrorIs(t, err, ErrUnknownRoot)
}

func TestComputeSubtreeRejectsOverwrite(t *testing.T) {
	store := results.NewMemStore()
	eng := NewEngine(catalog(), results.NewReconciler(store), nil)
	ctx := context.Background()
	_, err := eng.Compute(ctx, Options{Revision: "R1", Building: "B1"})
	require.NoError(t, err)
	before, err := store.ListResults(ctx, results.Filter{RevisionKey: "R1", BuildingName: "B1"})
	require.NoError(t, err)
	require.Len(t, before, 2)

	for _, dry := range []bool{false, true} {
		_, err = eng.Compute(ctx, Options{Revision: "R1", Building: "B1", Mode: results.ModeOverwrite, RootID: i64(3), DryRun: dry})
		assert.ErrorIs(t, err, ErrScopedOverwrite)
	}

	after, err := store.ListResults(ctx, results.Filter{RevisionKey: "R1", BuildingName: "B1"})
	require.NoError(t, err)
	assert.Equal(t, before, after, "results outside the subtree must survive")

	rep, err := eng.Compute(ctx, Options{Revision: "R1", Building: "B1", Mode: results.ModeAppend, RootID: i64(3)})
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Summary.Deleted)
	after, err = store.ListResults(ctx, results.Filter{RevisionKey: "R1", BuildingName: "B1"})
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

func TestComputeSourceError(t *testing.T) {
	src := catalog()
	src.err = errors.New("database is locked")
	eng := NewEngine(src, results.NewReconciler(results.NewMemStore()), nil)
	_, err := eng.Compute(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading catalog")
}

func TestComputeCyclicCatalog(t *testing.T) {
	src := catalog()
	src.in.Nodes[0].ParentID = i64(2)
	eng := NewEngine(src, results.NewReconciler(results.NewMemStore()), nil)
	rep, err := eng.Compute(context.Background(), Options{Revision: "R1", Building: "B1", DryRun: true})
	require.NoError(t, err)
	assert.NotEmpty(t, rep.Diagnostics.Rerooted)
	assert.Equal(t, 2, rep.Evaluated)
}
