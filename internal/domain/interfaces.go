package domain

import "context"

// Record is one parsed unit of an uploaded tariff document: a CSV row or a
// JSON array element. Records are never mutated after the loader creates them.
type Record struct {
	Content  string
	Metadata map[string]string
}

// VectorEntry pairs a Record with its embedding.
type VectorEntry struct {
	Record Record
	Vector []float32
}

// SearchResult represents a matching record with a relevance score.
type SearchResult struct {
	Record Record
	Score  float64
}

// RetrievalResult holds up to k records ranked closest first.
type RetrievalResult []SearchResult

// Contents returns the record contents in rank order.
func (r RetrievalResult) Contents() []string {
	out := make([]string, len(r))
	for i, res := range r {
		out[i] = res.Record.Content
	}
	return out
}

// Prompt is the final text payload sent to the answer generator.
type Prompt string

// Embedder converts free text into a fixed-length numeric vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator sends a prompt to a hosted language model and returns its answer.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
