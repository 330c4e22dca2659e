package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"reimburse/internal/embedding"
	hf "reimburse/internal/huggingface"
)

// DefaultModel is the sentence-transformers model the assistant was built around.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// Embedder calls the Inference API feature-extraction pipeline.
type Embedder struct {
	model  string
	client *hf.Client
}

// NewEmbedder creates a feature-extraction embedder.
func NewEmbedder(opts ...embedding.Option) *Embedder {
	options := embedding.NewOptions(opts...)
	if options.Model == "" {
		options.Model = DefaultModel
	}
	return &Embedder{
		model: options.Model,
		client: hf.NewClient(hf.Config{
			BaseURL: options.BaseURL,
			Token:   options.APIKey,
			Timeout: options.Timeout,
		}),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "huggingface" }

// Embed returns the sentence embedding for text. Token-level outputs are
// mean-pooled into a single vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body := map[string]any{
		"inputs":  text,
		"options": map[string]any{"wait_for_model": true},
	}
	var raw json.RawMessage
	if err := e.client.Post(ctx, "/pipeline/feature-extraction/"+e.model, body, &raw); err != nil {
		return nil, err
	}
	return decodeEmbedding(raw)
}

func decodeEmbedding(raw json.RawMessage) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) == 0 {
			return nil, errors.New("no embedding returned")
		}
		return flat, nil
	}

	var tokens [][]float32
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("unexpected feature-extraction response: %w", err)
	}
	return meanPool(tokens)
}

func meanPool(tokens [][]float32) ([]float32, error) {
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, errors.New("no embedding returned")
	}
	out := make([]float32, len(tokens[0]))
	for _, tok := range tokens {
		if len(tok) != len(out) {
			return nil, errors.New("ragged token embeddings")
		}
		for i, v := range tok {
			out[i] += v
		}
	}
	n := float32(len(tokens))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}
