package openai

import (
	"context"
	"errors"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"reimburse/internal/domain"
	"reimburse/internal/generator"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = openai.GPT4oMini
)

type openAIGenerator struct {
	options generator.Options
	client  *openai.Client
}

func (g *openAIGenerator) Name() string { return "openai" }

func (g *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.options.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   g.options.MaxLength,
		Temperature: requestTemperature(g.options.Temperature),
	}

	rsp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(rsp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return rsp.Choices[0].Message.Content, nil
}

// requestTemperature keeps an explicit zero on the wire: the request field
// is omitempty, so 0 would fall back to the server default of 1.
func requestTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// NewGenerator creates a chat-completions generator. The API key is required
// only for the default OpenAI endpoint.
func NewGenerator(opts ...generator.Option) (domain.Generator, error) {
	options := generator.NewOptions(opts...)
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

	return &openAIGenerator{
		options: options,
		client:  openai.NewClientWithConfig(cfg),
	}, nil
}
