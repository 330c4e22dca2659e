package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimburse/internal/generator"
)

func TestGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/google/flan-t5-large", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

		var body struct {
			Inputs     string `json:"inputs"`
			Parameters struct {
				Temperature float64 `json:"temperature"`
				MaxLength   int     `json:"max_length"`
			} `json:"parameters"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "What does Procedure A cost?", body.Inputs)
		assert.Equal(t, 0.3, body.Parameters.Temperature)
		assert.Equal(t, 512, body.Parameters.MaxLength)

		w.Write([]byte(`[{"generated_text": " $500 "}]`))
	}))
	defer server.Close()

	g := NewGenerator(generator.WithBaseURL(server.URL), generator.WithAPIKey("hf_test"))
	assert.Equal(t, "huggingface", g.Name())

	out, err := g.Generate(context.Background(), "What does Procedure A cost?")
	require.NoError(t, err)
	assert.Equal(t, "$500", out)
}

func TestGenerator_ResponseShapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
		wantErr  bool
	}{
		{name: "bare object", status: http.StatusOK, body: `{"generated_text": "I don't know"}`, expected: "I don't know"},
		{name: "empty list", status: http.StatusOK, body: `[]`, wantErr: true},
		{name: "model error", status: http.StatusServiceUnavailable, body: `{"error": "Model google/flan-t5-large is currently loading"}`, wantErr: true},
		{name: "garbage", status: http.StatusOK, body: `"just a string"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			out, err := NewGenerator(generator.WithBaseURL(server.URL)).Generate(context.Background(), "q")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestGenerator_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[{"generated_text": "late"}]`))
	}))
	defer server.Close()

	g := NewGenerator(generator.WithBaseURL(server.URL), generator.WithTimeout(20*time.Millisecond))
	_, err := g.Generate(context.Background(), "q")
	assert.Error(t, err)
}
