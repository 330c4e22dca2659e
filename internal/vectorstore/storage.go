package vectorstore

import (
	"context"

	"reimburse/internal/domain"
)

// Index stores embedded records for one processed document and answers
// nearest-neighbour queries. An Index is owned by a single session and is
// discarded with Close when the document is replaced.
type Index interface {
	Upsert(ctx context.Context, entries []domain.VectorEntry) error
	// Search returns up to k results ordered closest first.
	Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error)
	Len(ctx context.Context) (int, error)
	Close(ctx context.Context) error
}

// Factory creates a fresh, empty index.
type Factory func(ctx context.Context) (Index, error)
