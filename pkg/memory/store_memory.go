package memory

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is the literal in-process VectorStore adapter: a map keyed
// by id, with search as a linear scan computing cosine similarity against
// every stored vector. It is the default adapter and the one used by every
// other package's tests — no disk I/O, no external process, nothing to
// clean up beyond releasing the map on Close.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryStore constructs an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

// Initialize is a no-op: a map needs no schema.
func (s *InMemoryStore) Initialize(ctx context.Context) error {
	return nil
}

// Store upserts record by id. An embedding is required, per the VectorStore
// contract.
func (s *InMemoryStore) Store(ctx context.Context, record *Record) error {
	if len(record.Embedding) == 0 {
		return NewValidationError("embedding", "required to store a record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}

// StoreBatch stores every record; the first failure aborts the remainder.
func (s *InMemoryStore) StoreBatch(ctx context.Context, records []*Record) error {
	for _, r := range records {
		if err := s.Store(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Search performs a linear scan over every stored record, computing cosine
// similarity against vector, applying filter, and returning the top k by
// relevance descending.
func (s *InMemoryStore) Search(ctx context.Context, vector []float32, k int, filter *SearchFilter) ([]StoreSearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]StoreSearchResult, 0, len(s.records))
	for _, r := range s.records {
		if !matchesFilter(r, filter) {
			continue
		}
		relevance := relevanceFromCosine(cosineSimilarity(vector, r.Embedding))
		results = append(results, StoreSearchResult{Record: r.Clone(), Relevance: relevance})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Get returns the record for id, or nil if absent.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

// Delete removes id, reporting whether it was present.
func (s *InMemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	delete(s.records, id)
	return ok, nil
}

// DeleteBatch removes every id present, returning the count actually deleted.
func (s *InMemoryStore) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// List returns every record matching filter, sorted by timestamp descending
// and capped at ListCap.
func (s *InMemoryStore) List(ctx context.Context, filter *SearchFilter) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		if matchesFilter(r, filter) {
			matches = append(matches, r.Clone())
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Timestamp != matches[j].Timestamp {
			return matches[i].Timestamp > matches[j].Timestamp
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > ListCap {
		matches = matches[:ListCap]
	}
	return matches, nil
}

// Update replaces the record stored at record.ID in place (the map backend
// allows a true in-place update, no delete-then-insert window).
func (s *InMemoryStore) Update(ctx context.Context, record *Record) error {
	return s.Store(ctx, record)
}

// Close releases the underlying map.
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}
