package google

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"reimburse/internal/domain"
	"reimburse/internal/generator"
)

const DefaultModel = "gemini-1.5-flash"

type googleGenerator struct {
	options generator.Options
	client  *genai.Client
}

func (g *googleGenerator) Name() string { return "google" }

func (g *googleGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.options.Timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(g.options.Model)
	model.SetTemperature(float32(g.options.Temperature))
	model.SetMaxOutputTokens(int32(g.options.MaxLength))

	rsp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Google")
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	return b.String(), nil
}

// NewGenerator creates a Gemini generator.
func NewGenerator(ctx context.Context, opts ...generator.Option) (domain.Generator, error) {
	options := generator.NewOptions(opts...)
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

	return &googleGenerator{
		options: options,
		client:  client,
	}, nil
}
