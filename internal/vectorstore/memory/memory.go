package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"reimburse/internal/domain"
	"reimburse/internal/vectorstore"
)

// Storage is a simple in-memory vector index using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	entries   []domain.VectorEntry
	closed    bool
}

func NewStorage() *Storage { return &Storage{} }

// Factory returns a vectorstore.Factory producing in-memory indexes.
func Factory() vectorstore.Factory {
	return func(context.Context) (vectorstore.Index, error) {
		return NewStorage(), nil
	}
}

var errClosed = errors.New("index closed")

func (s *Storage) Upsert(_ context.Context, entries []domain.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return errors.New("empty vector")
		}
		if s.dimension == 0 {
			s.dimension = len(e.Vector)
		}
		if len(e.Vector) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	if k <= 0 || len(s.entries) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, errors.New("query dimension mismatch")
	}

	scores := make([]float64, len(s.entries))
	for i := range s.entries {
		scores[i] = cosine(s.entries[i].Vector, vector)
	}
	idxs := argsortDesc(scores)
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, j := range idxs[:k] {
		results = append(results, domain.SearchResult{Record: s.entries[j].Record, Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Storage) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.closed = true
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// tieEpsilon absorbs rounding so parallel vectors of different length tie.
const tieEpsilon = 1e-9

// argsortDesc orders indexes by descending score; ties keep insertion order.
func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool {
		a, b := vals[idxs[i]], vals[idxs[j]]
		if math.Abs(a-b) <= tieEpsilon {
			return false
		}
		return a > b
	})
	return idxs
}
