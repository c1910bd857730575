package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kart-io/scholar-x/internal/pkg/textutil"
)

// MemoryStore is an in-process VectorStore with brute-force cosine search.
// It backs the "memory" storage driver and the test suite.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]*Record)}
}

var _ VectorStore = (*MemoryStore)(nil)

// EnsureCollection registers the collection name. The dimension is not
// enforced; mismatched vectors simply score zero.
func (s *MemoryStore) EnsureCollection(_ context.Context, name string, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = nil
	}
	return nil
}

// Insert appends copies of the records.
func (s *MemoryStore) Insert(_ context.Context, collection string, records []*Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	for _, r := range records {
		cp := *r
		rows = append(rows, &cp)
	}
	s.collections[collection] = rows
	return nil
}

// Search scans the collection and returns the topK records by cosine
// similarity.
func (s *MemoryStore) Search(_ context.Context, collection string, vector []float32, topK int) ([]*Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	hits := make([]*Hit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, &Hit{
			Record: r,
			Score:  float32(textutil.CosineSimilarity(vector, r.Embedding)),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DeleteByDocument removes every chunk of a document.
func (s *MemoryStore) DeleteByDocument(_ context.Context, collection, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	kept := rows[:0]
	for _, r := range rows {
		if r.DocumentID != documentID {
			kept = append(kept, r)
		}
	}
	s.collections[collection] = kept
	return nil
}

// DeleteByChunkIDs removes the listed chunks.
func (s *MemoryStore) DeleteByChunkIDs(_ context.Context, collection string, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	drop := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		drop[id] = struct{}{}
	}
	kept := rows[:0]
	for _, r := range rows {
		if _, gone := drop[r.ChunkID]; !gone {
			kept = append(kept, r)
		}
	}
	s.collections[collection] = kept
	return nil
}

// DeleteAll empties the collection but keeps it registered.
func (s *MemoryStore) DeleteAll(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	s.collections[collection] = nil
	return nil
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.collections[collection]
	if !ok {
		return 0, fmt.Errorf("unknown collection %q", collection)
	}
	return int64(len(rows)), nil
}

// List returns up to limit records in insertion order.
func (s *MemoryStore) List(_ context.Context, collection string, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	n := len(rows)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]*Record, n)
	for i := 0; i < n; i++ {
		cp := *rows[i]
		out[i] = &cp
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(context.Context) error {
	return nil
}
