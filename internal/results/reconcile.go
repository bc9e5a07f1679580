package results

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Reconciler writes batches of records into a Store. Calls for the same
// (revision, building) partition are serialized.
type Reconciler struct {
	store    Store
	validate *validator.Validate
	now      func() time.Time
	newID    func() string

	mu    sync.Mutex
	locks map[partitionKey]*partitionLock
}

type partitionLock struct {
	mu   sync.Mutex
	refs int
}

// NewReconciler returns a Reconciler over store.
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		locks:    map[partitionKey]*partitionLock{},
	}
}

// Reconcile writes candidates into the (revision, building) partition.
// Candidates sharing an identity key collapse to the last one and are
// counted as conflicts. Every written record is stamped with the batch id.
func (r *Reconciler) Reconcile(ctx context.Context, mode Mode, revision, building string, candidates []Record) (Summary, error) {
	if mode != ModeAppend && mode != ModeOverwrite {
		return Summary{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	for i := range candidates {
		c := &candidates[i]
		if err := r.validate.StructCtx(ctx, c); err != nil {
			return Summary{}, fmt.Errorf("%w: candidate %d: %v", ErrInvalidRecord, i, err)
		}
		if c.RevisionKey != revision || c.BuildingName != building {
			return Summary{}, fmt.Errorf("%w: candidate %d is (%q, %q), batch is (%q, %q)",
				ErrPartitionMismatch, i, c.RevisionKey, c.BuildingName, revision, building)
		}
	}

	sum := Summary{BatchID: r.newID()}
	batch, conflicts := dedupe(candidates)
	sum.Conflicts = conflicts
	stamp := r.now().UTC()
	for i := range batch {
		batch[i].BatchID = sum.BatchID
		batch[i].CreatedAt = stamp
	}

	unlock := r.lock(partitionKey{revision, building})
	defer unlock()

	switch mode {
	case ModeOverwrite:
		deleted, err := r.store.ReplaceResults(ctx, revision, building, batch)
		if err != nil {
			return Summary{}, fmt.Errorf("replacing results: %w", err)
		}
		sum.Deleted = deleted
		sum.Inserted = len(batch)
	case ModeAppend:
		if len(batch) == 0 {
			return sum, nil
		}
		inserted, replaced, err := r.store.UpsertResults(ctx, batch)
		if err != nil {
			return Summary{}, fmt.Errorf("upserting results: %w", err)
		}
		sum.Inserted = inserted
		sum.Replaced = replaced
	}
	return sum, nil
}

// dedupe keeps the last candidate per identity key at the position of its
// first occurrence.
func dedupe(candidates []Record) ([]Record, int) {
	index := make(map[string]int, len(candidates))
	out := make([]Record, 0, len(candidates))
	conflicts := 0
	for _, c := range candidates {
		if i, ok := index[c.IdentityKey]; ok {
			out[i] = c
			conflicts++
			continue
		}
		index[c.IdentityKey] = len(out)
		out = append(out, c)
	}
	return out, conflicts
}

func (r *Reconciler) lock(key partitionKey) func() {
	r.mu.Lock()
	l := r.locks[key]
	if l == nil {
		l = &partitionLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}
