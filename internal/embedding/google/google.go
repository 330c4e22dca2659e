package google

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"reimburse/internal/embedding"
)

const DefaultModel = "text-embedding-004"

// Embedder produces embeddings through the Gemini API.
type Embedder struct {
	options embedding.Options
	client  *genai.Client
}

// NewEmbedder creates a Gemini embedder. The API key is required.
func NewEmbedder(ctx context.Context, opts ...embedding.Option) (*Embedder, error) {
	options := embedding.NewOptions(opts...)
	if options.APIKey == "" {
		return nil, errors.New("missing Google API key")
	}
	if options.Model == "" {
		options.Model = DefaultModel
	}

	clientOpts := []genaiopt.ClientOption{genaiopt.WithAPIKey(options.APIKey)}
	if options.BaseURL != "" {
		clientOpts = append(clientOpts, genaiopt.WithEndpoint(options.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}

	return &Embedder{options: options, client: client}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "google" }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.options.Timeout)
		defer cancel()
	}

	model := e.client.EmbeddingModel(e.options.Model)
	rsp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}

	if rsp == nil || rsp.Embedding == nil || len(rsp.Embedding.Values) == 0 {
		return nil, errors.New("no response from Google")
	}

	return rsp.Embedding.Values, nil
}

// Close releases the underlying client connection.
func (e *Embedder) Close() error {
	return e.client.Close()
}
