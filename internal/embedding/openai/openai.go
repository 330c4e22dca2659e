package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"reimburse/internal/embedding"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
// Any server speaking the /embeddings API (Ollama, vLLM, LocalAI) works
// through the base URL.
type Client struct {
	options embedding.Options
	client  *openai.Client
}

// NewClient creates an embeddings client. The API key is required only for
// the default OpenAI endpoint.
func NewClient(opts ...embedding.Option) (*Client, error) {
	options := embedding.NewOptions(opts...)
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.Model == "" {
		options.Model = DefaultModel
	}
	if options.APIKey == "" && options.BaseURL == DefaultBaseURL {
		return nil, errors.New("missing OpenAI API key")
	}

	cfg := openai.DefaultConfig(options.APIKey)
	cfg.BaseURL = options.BaseURL
	cfg.HTTPClient = &http.Client{Timeout: options.Timeout}

	return &Client{
		options: options,
		client:  openai.NewClientWithConfig(cfg),
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	rsp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.options.Model),
	})
	if err != nil {
		return nil, err
	}

	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}

	return rsp.Data[0].Embedding, nil
}
