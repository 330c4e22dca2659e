package service

import (
	"context"

	"go.uber.org/zap"

	"reimburse/internal/domain"
	"reimburse/internal/vectorstore"
)

// DefaultTopK is the number of records retrieved per question.
const DefaultTopK = 4

// Retriever embeds a question and looks up the closest records in an index.
type Retriever struct {
	embedder domain.Embedder
	topK     int
	logger   *zap.Logger
}

// NewRetriever creates a retriever. A non-positive topK means DefaultTopK.
func NewRetriever(embedder domain.Embedder, topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, topK: topK, logger: logger}
}

// Retrieve returns at most k records ranked closest first; k <= 0 uses the
// retriever's default. An empty index yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, index vectorstore.Index, query string, k int) (domain.RetrievalResult, error) {
	if index == nil {
		return nil, domain.NewError(domain.KindIndexUnavailable, "no document has been processed", nil)
	}
	if k <= 0 {
		k = r.topK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.Wrap(domain.KindEmbeddingUnavailable, "embed question with "+r.embedder.Name(), err)
	}

	results, err := index.Search(ctx, vec, k)
	if err != nil {
		return nil, domain.Wrap(domain.KindIndexUnavailable, "search vector index", err)
	}

	r.logger.Debug("retrieved context", zap.Int("k", k), zap.Int("results", len(results)))
	return domain.RetrievalResult(results), nil
}
