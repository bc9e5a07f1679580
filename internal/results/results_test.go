package results

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func candidate(rev, bld, formulaText string, node, item int64, v float64) Record {
	return Record{
		IdentityKey:  IdentityKey(rev, bld, formulaText, TargetRef(node, item)),
		RevisionKey:  rev,
		BuildingName: bld,
		CategoryPath: fmt.Sprintf("Structure > Item %d", item),
		Formula:      formulaText,
		Value:        f64(v),
	}
}

func fixedReconciler(store Store) *Reconciler {
	r := NewReconciler(store)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	n := 0
	r.newID = func() string { n++; return fmt.Sprintf("batch-%d", n) }
	return r
}

func TestIdentityKey(t *testing.T) {
	a := IdentityKey("R1", "B/1", "=L * W", TargetRef(1, 2))
	assert.Equal(t, a, IdentityKey("R1", "B/1", "  L * W ", TargetRef(1, 2)))
	assert.NotEqual(t, a, IdentityKey("R1", "B/1", "L * W", TargetRef(1, 3)))
	assert.NotEqual(t, a, IdentityKey("R1", "B/1", "L * H", TargetRef(1, 2)))
	assert.NotEqual(t, IdentityKey("a/b", "c", "x", "t"), IdentityKey("a", "b/c", "x", "t"))
	assert.Contains(t, a, "R1/B%2F1/")
}

func TestReconcileAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	r := fixedReconciler(store)
	batch := []Record{
		candidate("R1", "B1", "L * W", 1, 10, 6),
		candidate("R1", "B1", "L + W", 1, 11, 5),
	}

	sum, err := r.Reconcile(ctx, ModeAppend, "R1", "B1", batch)
	require.NoError(t, err)
	assert.Equal(t, Summary{Inserted: 2, BatchID: "batch-1"}, sum)

	sum, err = r.Reconcile(ctx, ModeAppend, "R1", "B1", batch)
	require.NoError(t, err)
	assert.Equal(t, Summary{Replaced: 2, BatchID: "batch-2"}, sum)

	got, err := store.ListResults(ctx, Filter{RevisionKey: "R1", BuildingName: "B1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, rec := range got {
		assert.Equal(t, "batch-2", rec.BatchID)
		assert.False(t, rec.CreatedAt.IsZero())
	}
}

func TestReconcileAppendLeavesOtherRows(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	r := fixedReconciler(store)
	_, err := r.Reconcile(ctx, ModeAppend, "R1", "B1", []Record{candidate("R1", "B1", "A", 1, 1, 1)})
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, ModeAppend, "R1", "B1", []Record{candidate("R1", "B1", "B", 1, 2, 2)})
	require.NoError(t, err)

	got, err := store.ListResults(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReconcileOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	r := fixedReconciler(store)
	var five []Record
	for i := int64(1); i <= 5; i++ {
		five = append(five, candidate("R1", "B1", "A", 1, i, float64(i)))
	}
	_, err := r.Reconcile(ctx, ModeAppend, "R1", "B1", five)
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, ModeAppend, "R1", "B2", []Record{candidate("R1", "B2", "A", 1, 1, 1)})
	require.NoError(t, err)

	sum, err := r.Reconcile(ctx, ModeOverwrite, "R1", "B1", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Deleted)
	assert.Equal(t, 0, sum.Inserted)

	left, err := store.ListResults(ctx, Filter{RevisionKey: "R1"})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "B2", left[0].BuildingName)

	sum, err = r.Reconcile(ctx, ModeOverwrite, "R1", "B2", five[:0:0])
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Deleted)
}

func TestReconcileConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	r := fixedReconciler(store)
	first := candidate("R1", "B1", "A", 1, 1, 1)
	second := first
	second.Value = f64(2)
	other := candidate("R1", "B1", "A", 1, 2, 3)

	sum, err := r.Reconcile(ctx, ModeOverwrite, "R1", "B1", []Record{first, other, second})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Conflicts)
	assert.Equal(t, 2, sum.Inserted)

	got, err := store.ListResults(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, rec := range got {
		if rec.IdentityKey == first.IdentityKey {
			assert.Equal(t, 2.0, *rec.Value)
		}
	}
}

func TestReconcileRejects(t *testing.T) {
	ctx := context.Background()
	r := fixedReconciler(NewMemStore())

	_, err := r.Reconcile(ctx, Mode("merge"), "R1", "B1", nil)
	assert.True(t, errors.Is(err, ErrInvalidMode))

	_, err = r.Reconcile(ctx, ModeAppend, "R1", "B1", []Record{candidate("R2", "B1", "A", 1, 1, 1)})
	assert.True(t, errors.Is(err, ErrPartitionMismatch))

	_, err = r.Reconcile(ctx, ModeAppend, "R1", "B1", []Record{{RevisionKey: "R1", BuildingName: "B1"}})
	assert.True(t, errors.Is(err, ErrInvalidRecord))
}

type failingStore struct{ *MemStore }

func (failingStore) ReplaceResults(context.Context, string, string, []Record) (int, error) {
	return 0, errors.New("disk full")
}

func TestReconcileStoreError(t *testing.T) {
	r := fixedReconciler(failingStore{NewMemStore()})
	_, err := r.Reconcile(context.Background(), ModeOverwrite, "R1", "B1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestReconcileConcurrentPartitions(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	r := NewReconciler(store)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bld := fmt.Sprintf("B%d", i%2)
			_, err := r.Reconcile(ctx, ModeOverwrite, "R1", bld, []Record{candidate("R1", bld, "A", 1, int64(i), 1)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.ListResults(ctx, Filter{RevisionKey: "R1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Empty(t, r.locks)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Overwrite ")
	require.NoError(t, err)
	assert.Equal(t, ModeOverwrite, m)
	_, err = ParseMode("replace")
	assert.ErrorIs(t, err, ErrInvalidMode)
}
