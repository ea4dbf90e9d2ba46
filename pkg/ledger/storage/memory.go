package storage

import (
	"context"
	"sync"

	"rxsentinel/arbiter/pkg/ledger"
)

// MemoryStore keeps the chain in memory. Entries are held in sequence
// order; the store trusts the ledger to hand it contiguous sequences.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []ledger.Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Head returns the highest-sequence entry, or nil when empty.
func (s *MemoryStore) Head(ctx context.Context) (*ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewStoreError("memory", "head", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return nil, nil
	}
	head := s.entries[len(s.entries)-1]
	return &head, nil
}

// Append inserts an entry at the tail.
func (s *MemoryStore) Append(ctx context.Context, e *ledger.Entry) error {
	if err := ctx.Err(); err != nil {
		return ledger.NewStoreError("memory", "append", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	return nil
}

// AppendBatch inserts the entries at the tail as one unit.
func (s *MemoryStore) AppendBatch(ctx context.Context, entries []*ledger.Entry) error {
	if err := ctx.Err(); err != nil {
		return ledger.NewStoreError("memory", "append_batch", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries = append(s.entries, *e)
	}
	return nil
}

// Scan returns up to limit entries with sequence > after, ascending.
func (s *MemoryStore) Scan(ctx context.Context, after uint64, limit int) ([]ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewStoreError("memory", "scan", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.Entry
	for _, e := range s.entries {
		if e.Sequence <= after {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ForCase returns up to limit of the case's entries with sequence >
// after, ascending.
func (s *MemoryStore) ForCase(ctx context.Context, caseID string, after uint64, limit int) ([]ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewStoreError("memory", "for_case", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.Entry
	for _, e := range s.entries {
		if e.Sequence <= after || e.CaseID != caseID {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Query returns entries matching q in ascending sequence order.
func (s *MemoryStore) Query(ctx context.Context, q ledger.Query) ([]ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewStoreError("memory", "query", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.Entry
	for _, e := range s.entries {
		if !matchesQuery(e, q) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func matchesQuery(e ledger.Entry, q ledger.Query) bool {
	if e.Sequence <= q.After {
		return false
	}
	if q.CaseID != "" && e.CaseID != q.CaseID {
		return false
	}
	if q.Kind != "" && e.Kind != q.Kind {
		return false
	}
	if q.From != nil && e.RecordedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && e.RecordedAt.After(*q.To) {
		return false
	}
	return true
}

// Close releases nothing; memory stores have nothing to release.
func (s *MemoryStore) Close() error {
	return nil
}

// Size returns the number of stored entries.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Tamper mutates the stored entry with the given sequence in place,
// bypassing the chain. Test support for verification paths.
func (s *MemoryStore) Tamper(sequence uint64, mutate func(*ledger.Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].Sequence == sequence {
			mutate(&s.entries[i])
			return true
		}
	}
	return false
}
