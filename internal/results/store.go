package results

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrInvalidMode       = errors.New("invalid reconcile mode")
	ErrPartitionMismatch = errors.New("record partition does not match batch")
	ErrInvalidRecord     = errors.New("invalid result record")
)

// Filter narrows ListResults. Empty fields match everything.
type Filter struct {
	RevisionKey  string
	BuildingName string
}

// Store persists records. Each method is atomic.
type Store interface {
	// UpsertResults writes recs by identity key and reports how many were new.
	UpsertResults(ctx context.Context, recs []Record) (inserted, replaced int, err error)
	// ReplaceResults deletes the partition and inserts recs in one transaction.
	ReplaceResults(ctx context.Context, revision, building string, recs []Record) (deleted int, err error)
	DeleteResults(ctx context.Context, revision, building string) (int, error)
	ListResults(ctx context.Context, f Filter) ([]Record, error)
}

type partitionKey struct{ rev, bld string }

// MemStore is an in-memory Store.
type MemStore struct {
	mu    sync.RWMutex
	parts map[partitionKey]map[string]Record
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{parts: map[partitionKey]map[string]Record{}}
}

func (s *MemStore) UpsertResults(ctx context.Context, recs []Record) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted, replaced int
	for _, r := range recs {
		if s.put(r) {
			replaced++
		} else {
			inserted++
		}
	}
	return inserted, replaced, nil
}

func (s *MemStore) ReplaceResults(ctx context.Context, revision, building string, recs []Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := partitionKey{revision, building}
	deleted := len(s.parts[key])
	delete(s.parts, key)
	for _, r := range recs {
		s.put(r)
	}
	return deleted, nil
}

func (s *MemStore) DeleteResults(ctx context.Context, revision, building string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := partitionKey{revision, building}
	n := len(s.parts[key])
	delete(s.parts, key)
	return n, nil
}

// ListResults returns matching records ordered by partition, category path
// and identity key.
func (s *MemStore) ListResults(ctx context.Context, f Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for key, part := range s.parts {
		if f.RevisionKey != "" && key.rev != f.RevisionKey {
			continue
		}
		if f.BuildingName != "" && key.bld != f.BuildingName {
			continue
		}
		for _, r := range part {
			out = append(out, r)
		}
	}
	SortRecords(out)
	return out, nil
}

// put stores r and reports whether it replaced an existing record.
// Caller holds s.mu.
func (s *MemStore) put(r Record) bool {
	key := partitionKey{r.RevisionKey, r.BuildingName}
	part := s.parts[key]
	if part == nil {
		part = map[string]Record{}
		s.parts[key] = part
	}
	_, exists := part[r.IdentityKey]
	part[r.IdentityKey] = r
	return exists
}

// SortRecords orders records the way stores list them.
func SortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.RevisionKey != b.RevisionKey {
			return a.RevisionKey < b.RevisionKey
		}
		if a.BuildingName != b.BuildingName {
			return a.BuildingName < b.BuildingName
		}
		if a.CategoryPath != b.CategoryPath {
			return a.CategoryPath < b.CategoryPath
		}
		return a.IdentityKey < b.IdentityKey
	})
}
