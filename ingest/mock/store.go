package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/tessium/ingestkit/ingest"
)

// VectorStore is an in-memory vector index. Upsert is idempotent by id.
// FailFirst makes the first N upserts fail to exercise retry paths.
type VectorStore struct {
	// FailFirst makes the first N Upsert calls return an error.
	FailFirst int

	mu      sync.Mutex
	records map[string]record
	upserts int
}

type record struct {
	vector   []float32
	metadata map[string]string
}

// Upsert stores or replaces the vector under id.
func (s *VectorStore) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upserts++
	if s.upserts <= s.FailFirst {
		return errStoreUnavailable
	}

	if s.records == nil {
		s.records = make(map[string]record)
	}
	s.records[id] = record{
		vector:   append([]float32(nil), vector...),
		metadata: metadata,
	}
	return nil
}

// Query returns the topK records closest to vector by dot product,
// restricted to records whose metadata contains every filter pair.
func (s *VectorStore) Query(ctx context.Context, vector []float32, filters map[string]string, topK int) ([]ingest.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]ingest.Match, 0, len(s.records))
	for id, rec := range s.records {
		if !matchesFilters(rec.metadata, filters) {
			continue
		}
		matches = append(matches, ingest.Match{
			ID:       id,
			Score:    dot(vector, rec.vector),
			Metadata: rec.metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len returns the number of stored records.
func (s *VectorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Has reports whether a record exists under id.
func (s *VectorStore) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

// Upserts reports the total Upsert calls, including failed ones.
func (s *VectorStore) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

func matchesFilters(metadata, filters map[string]string) bool {
	for k, v := range filters {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

const errStoreUnavailable = mockErr("mock vector store unavailable")
