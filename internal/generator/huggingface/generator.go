package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"reimburse/internal/domain"
	"reimburse/internal/generator"
	hf "reimburse/internal/huggingface"
)

const DefaultModel = "google/flan-t5-large"

type huggingFaceGenerator struct {
	options generator.Options
	client  *hf.Client
}

type generatedText struct {
	GeneratedText string `json:"generated_text"`
}

func (g *huggingFaceGenerator) Name() string { return "huggingface" }

func (g *huggingFaceGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"temperature": g.options.Temperature,
			"max_length":  g.options.MaxLength,
		},
		"options": map[string]any{"wait_for_model": true},
	}

	var raw json.RawMessage
	if err := g.client.Post(ctx, "/models/"+g.options.Model, body, &raw); err != nil {
		return "", err
	}

	// text2text models answer with a list, some endpoints with a bare object
	var list []generatedText
	if err := json.Unmarshal(raw, &list); err != nil {
		var single generatedText
		if err := json.Unmarshal(raw, &single); err != nil {
			return "", err
		}
		list = []generatedText{single}
	}

	if len(list) == 0 {
		return "", errors.New("no response from Hugging Face")
	}

	return strings.TrimSpace(list[0].GeneratedText), nil
}

// NewGenerator creates a generator for a hosted text2text model.
func NewGenerator(opts ...generator.Option) domain.Generator {
	options := generator.NewOptions(opts...)
	if options.Model == "" {
		options.Model = DefaultModel
	}

	return &huggingFaceGenerator{
		options: options,
		client: hf.NewClient(hf.Config{
			BaseURL: options.BaseURL,
			Token:   options.APIKey,
			Timeout: options.Timeout,
		}),
	}
}
