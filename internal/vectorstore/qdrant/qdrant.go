package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"reimburse/internal/domain"
	"reimburse/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// Each Storage owns a throw-away collection named <prefix>-<uuid>, created
// with cosine distance on the first upsert and dropped on Close.
type Storage struct {
	url        string
	apiKey     string
	collection string
	created    bool
	client     *http.Client
}

type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "reimburse"
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: prefix + "-" + uuid.NewString(),
		client:     &http.Client{Timeout: timeout},
	}
}

// Factory returns a vectorstore.Factory producing Qdrant-backed indexes.
func Factory(cfg Config) vectorstore.Factory {
	return func(context.Context) (vectorstore.Index, error) {
		if cfg.URL == "" {
			return nil, errors.New("qdrant url is not configured")
		}
		return NewStorage(cfg), nil
	}
}

// Collection returns the name of the collection backing this index.
func (s *Storage) Collection() string { return s.collection }

func (s *Storage) ensureCollection(ctx context.Context, dimension int) error {
	if s.created {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.doJSON(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return err
	}
	s.created = true
	return nil
}

func (s *Storage) Upsert(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(entries[0].Vector)); err != nil {
		return err
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		points[i] = map[string]any{
			"id":     uuid.NewString(),
			"vector": e.Vector,
			"payload": map[string]any{
				"content":  e.Record.Content,
				"metadata": e.Record.Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
}

func (s *Storage) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 || !s.created {
		return []domain.SearchResult{}, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Content  string            `json:"content"`
				Metadata map[string]string `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Record: domain.Record{Content: r.Payload.Content, Metadata: r.Payload.Metadata},
			Score:  r.Score,
		})
	}
	return results, nil
}

func (s *Storage) Len(ctx context.Context) (int, error) {
	if !s.created {
		return 0, nil
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.collectionURL("/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Close drops the collection.
func (s *Storage) Close(ctx context.Context) error {
	if !s.created {
		return nil
	}
	if err := s.doJSON(ctx, http.MethodDelete, s.collectionURL(""), nil, nil); err != nil {
		return err
	}
	s.created = false
	return nil
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Storage) doJSON(ctx context.Context, method, url string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		dec := json.NewDecoder(resp.Body)
		return dec.Decode(out)
	}
	return nil
}
