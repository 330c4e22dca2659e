package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"reimburse/internal/domain"
	"reimburse/internal/vectorstore"
)

// Indexer embeds records and loads them into a fresh vector index.
type Indexer struct {
	embedder domain.Embedder
	newIndex vectorstore.Factory
	logger   *zap.Logger
}

func NewIndexer(embedder domain.Embedder, newIndex vectorstore.Factory, logger *zap.Logger) *Indexer {
	return &Indexer{embedder: embedder, newIndex: newIndex, logger: logger}
}

// Build embeds every record and inserts all entries into a new index. All
// records are embedded before the index is created; if inserting fails the
// partial index is closed and nothing is returned.
func (ix *Indexer) Build(ctx context.Context, records []domain.Record) (vectorstore.Index, error) {
	entries := make([]domain.VectorEntry, 0, len(records))
	for i, rec := range records {
		vec, err := ix.embedder.Embed(ctx, rec.Content)
		if err != nil {
			return nil, domain.Wrap(domain.KindEmbeddingUnavailable,
				fmt.Sprintf("embed record %d with %s", i, ix.embedder.Name()), err)
		}
		entries = append(entries, domain.VectorEntry{Record: rec, Vector: vec})
	}

	index, err := ix.newIndex(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.KindIndexUnavailable, "create vector index", err)
	}

	if err := index.Upsert(ctx, entries); err != nil {
		if cerr := index.Close(ctx); cerr != nil {
			ix.logger.Warn("failed to discard partial index", zap.Error(cerr))
		}
		return nil, domain.Wrap(domain.KindIndexUnavailable, "insert records into vector index", err)
	}

	ix.logger.Debug("index built",
		zap.Int("records", len(entries)),
		zap.String("embedder", ix.embedder.Name()),
	)
	return index, nil
}
