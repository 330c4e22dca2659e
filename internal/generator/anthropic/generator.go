package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"reimburse/internal/domain"
	"reimburse/internal/generator"
)

const DefaultModel = "claude-3-5-haiku-latest"

type anthropicGenerator struct {
	options generator.Options
	client  *anthropic.Client
}

func (g *anthropicGenerator) Name() string { return "anthropic" }

func (g *anthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.options.Model),
		MaxTokens:   int64(g.options.MaxLength),
		Temperature: anthropic.Float(g.options.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	rsp, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", errors.New("no response from Anthropic")
	}

	return result, nil
}

// NewGenerator creates a Messages API generator with SDK retries disabled.
func NewGenerator(opts ...generator.Option) (domain.Generator, error) {
	options := generator.NewOptions(opts...)
	if options.APIKey == "" {
		return nil, errors.New("missing Anthropic API key")
	}
	if options.Model == "" {
		options.Model = DefaultModel
	}

	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.APIKey),
		anthropicopt.WithMaxRetries(0),
		anthropicopt.WithRequestTimeout(options.Timeout),
	}
	if options.BaseURL != "" {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	return &anthropicGenerator{
		options: options,
		client:  &client,
	}, nil
}
