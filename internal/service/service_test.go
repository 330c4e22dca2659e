package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reimburse/internal/domain"
	"reimburse/internal/embedding/hashing"
	"reimburse/internal/loader"
	"reimburse/internal/vectorstore"
	"reimburse/internal/vectorstore/memory"
)

// failingEmbedder fails every call after the first ok calls.
type failingEmbedder struct {
	inner domain.Embedder
	ok    int
	calls int
}

func (f *failingEmbedder) Name() string { return "failing" }

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls > f.ok {
		return nil, errors.New("embedding service unreachable")
	}
	return f.inner.Embed(ctx, text)
}

type recordingGenerator struct {
	prompts []string
	answer  string
	err     error
}

func (g *recordingGenerator) Name() string { return "recording" }

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

// trackingIndex wraps a memory index and records Close calls.
type trackingIndex struct {
	vectorstore.Index
	closed    bool
	upsertErr error
}

func (t *trackingIndex) Upsert(ctx context.Context, entries []domain.VectorEntry) error {
	if t.upsertErr != nil {
		return t.upsertErr
	}
	return t.Index.Upsert(ctx, entries)
}

func (t *trackingIndex) Close(ctx context.Context) error {
	t.closed = true
	return t.Index.Close(ctx)
}

type trackingFactory struct {
	created   []*trackingIndex
	err       error
	upsertErr error
}

func (f *trackingFactory) factory() vectorstore.Factory {
	return func(ctx context.Context) (vectorstore.Index, error) {
		if f.err != nil {
			return nil, f.err
		}
		idx := &trackingIndex{Index: memory.NewStorage(), upsertErr: f.upsertErr}
		f.created = append(f.created, idx)
		return idx, nil
	}
}

func tariffRecords(n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i] = domain.Record{Content: fmt.Sprintf("procedure: Procedure %d\ncost: $%d", i, 100*(i+1))}
	}
	return out
}

const tariffCSV = "procedure,cost\nProcedure A,$500\nProcedure B,$750\n"

func newSession(t *testing.T, gen domain.Generator) (*Session, *trackingFactory) {
	t.Helper()
	emb := hashing.NewEmbedder(0)
	f := &trackingFactory{}
	logger := zap.NewNop()
	s := NewSession(
		&loader.Loader{TempDir: t.TempDir()},
		NewIndexer(emb, f.factory(), logger),
		NewRetriever(emb, DefaultTopK, logger),
		gen,
		logger,
	)
	return s, f
}

func TestIndexer_Build(t *testing.T) {
	ctx := context.Background()
	emb := hashing.NewEmbedder(0)

	t.Run("indexes every record", func(t *testing.T) {
		f := &trackingFactory{}
		idx, err := NewIndexer(emb, f.factory(), zap.NewNop()).Build(ctx, tariffRecords(10))
		require.NoError(t, err)

		n, err := idx.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, n)
	})

	t.Run("zero records give an empty index", func(t *testing.T) {
		f := &trackingFactory{}
		idx, err := NewIndexer(emb, f.factory(), zap.NewNop()).Build(ctx, nil)
		require.NoError(t, err)

		n, err := idx.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("embedder failure", func(t *testing.T) {
		f := &trackingFactory{}
		failing := &failingEmbedder{inner: emb, ok: 3}
		idx, err := NewIndexer(failing, f.factory(), zap.NewNop()).Build(ctx, tariffRecords(10))
		assert.Nil(t, idx)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Empty(t, f.created, "no index is created when embedding fails")
	})

	t.Run("factory failure", func(t *testing.T) {
		f := &trackingFactory{err: errors.New("qdrant unreachable")}
		_, err := NewIndexer(emb, f.factory(), zap.NewNop()).Build(ctx, tariffRecords(2))
		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	})

	t.Run("insert failure discards the partial index", func(t *testing.T) {
		f := &trackingFactory{upsertErr: errors.New("disk full")}
		_, err := NewIndexer(emb, f.factory(), zap.NewNop()).Build(ctx, tariffRecords(2))
		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
		require.Len(t, f.created, 1)
		assert.True(t, f.created[0].closed)
	})
}

func TestRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()
	emb := hashing.NewEmbedder(0)
	r := NewRetriever(emb, 0, zap.NewNop())

	build := func(n int) vectorstore.Index {
		f := &trackingFactory{}
		idx, err := NewIndexer(emb, f.factory(), zap.NewNop()).Build(ctx, tariffRecords(n))
		require.NoError(t, err)
		return idx
	}

	tests := []struct {
		name     string
		size     int
		k        int
		expected int
	}{
		{name: "k=4 over 10 records", size: 10, k: 4, expected: 4},
		{name: "k=4 over 2 records", size: 2, k: 4, expected: 2},
		{name: "k=4 over empty index", size: 0, k: 4, expected: 0},
		{name: "default k", size: 10, k: 0, expected: DefaultTopK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Retrieve(ctx, build(tt.size), "What does Procedure 3 cost?", tt.k)
			require.NoError(t, err)
			assert.Len(t, res, tt.expected)
			for i := 1; i < len(res); i++ {
				assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
			}
		})
	}

	t.Run("nil index", func(t *testing.T) {
		_, err := r.Retrieve(ctx, nil, "q", 4)
		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	})

	t.Run("embedder failure", func(t *testing.T) {
		failing := NewRetriever(&failingEmbedder{inner: emb}, 4, zap.NewNop())
		_, err := failing.Retrieve(ctx, build(2), "q", 4)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("search failure", func(t *testing.T) {
		idx := build(2)
		require.NoError(t, idx.Close(ctx))
		_, err := r.Retrieve(ctx, idx, "q", 4)
		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	})
}

func TestSession_EndToEnd(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGenerator{answer: "Procedure A is reimbursed at $500."}
	s, _ := newSession(t, gen)
	assert.Equal(t, StateEmpty, s.State())

	n, err := s.Process(ctx, "tariff.csv", []byte(tariffCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, StateIndexed, s.State())
	assert.Equal(t, "tariff.csv", s.Source())
	assert.Equal(t, 2, s.Records())

	reply, err := s.Ask(ctx, "What does Procedure A cost?")
	require.NoError(t, err)
	assert.Equal(t, StateIndexed, s.State())

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, string(reply.Prompt), gen.prompts[0])
	assert.Contains(t, gen.prompts[0], "Procedure A")
	assert.Contains(t, gen.prompts[0], "$500")
	assert.Contains(t, gen.prompts[0], "Question:\nWhat does Procedure A cost?")
	assert.Len(t, reply.Context, 2)

	assert.True(t, strings.HasPrefix(reply.Display(), "Answer:"))
	assert.Equal(t, "Answer:\nProcedure A is reimbursed at $500.", reply.Display())
}

func TestSession_UnsupportedFormat(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGenerator{answer: "unused"}
	s, f := newSession(t, gen)

	_, err := s.Process(ctx, "data.txt", []byte(tariffCSV))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Empty(t, f.created, "no index is constructed")
	assert.Equal(t, StateEmpty, s.State())

	_, err = s.Ask(ctx, "What does Procedure A cost?")
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.Empty(t, gen.prompts)
}

func TestSession_FailedProcessKeepsPriorIndex(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGenerator{answer: "ok"}
	s, f := newSession(t, gen)

	_, err := s.Process(ctx, "tariff.csv", []byte(tariffCSV))
	require.NoError(t, err)

	_, err = s.Process(ctx, "broken.json", []byte(`{"not": "an array"}`))
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
	assert.Equal(t, StateIndexed, s.State())
	assert.Equal(t, "tariff.csv", s.Source())
	require.Len(t, f.created, 1)
	assert.False(t, f.created[0].closed)

	_, err = s.Ask(ctx, "What does Procedure B cost?")
	require.NoError(t, err)
	assert.Contains(t, gen.prompts[0], "Procedure B")
}

func TestSession_ReplacingDocumentClosesOldIndex(t *testing.T) {
	ctx := context.Background()
	s, f := newSession(t, &recordingGenerator{answer: "ok"})

	_, err := s.Process(ctx, "tariff.csv", []byte(tariffCSV))
	require.NoError(t, err)

	n, err := s.Process(ctx, "tariff.json", []byte(`[{"procedure":"MRI","cost":1200}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, f.created, 2)
	assert.True(t, f.created[0].closed)
	assert.False(t, f.created[1].closed)

	reply, err := s.Ask(ctx, "MRI?")
	require.NoError(t, err)
	require.Len(t, reply.Context, 1)
	assert.Equal(t, `{"procedure":"MRI","cost":1200}`, reply.Context[0].Record.Content)

	require.NoError(t, s.Close(ctx))
	assert.True(t, f.created[1].closed)
	assert.Equal(t, StateEmpty, s.State())
}

func TestSession_GenerationFailure(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGenerator{err: errors.New("504 gateway timeout")}
	s, _ := newSession(t, gen)

	_, err := s.Process(ctx, "tariff.csv", []byte(tariffCSV))
	require.NoError(t, err)

	reply, err := s.Ask(ctx, "What does Procedure A cost?")
	assert.Nil(t, reply)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.ErrorContains(t, err, "504 gateway timeout")
	assert.Equal(t, StateIndexed, s.State())

	gen.err = nil
	gen.answer = "$500"
	reply, err = s.Ask(ctx, "What does Procedure A cost?")
	require.NoError(t, err)
	assert.Equal(t, "Answer:\n$500", reply.Display())
}

func TestSession_EmptyDocument(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGenerator{answer: "I don't know."}
	s, _ := newSession(t, gen)

	n, err := s.Process(ctx, "empty.json", []byte("[]"))
	require.NoError(t, err)
	assert.Zero(t, n)

	reply, err := s.Ask(ctx, "Is dialysis covered?")
	require.NoError(t, err)
	assert.Empty(t, reply.Context)
	assert.Contains(t, string(reply.Prompt), "Context:\n\n\nQuestion:")
}

func TestSession_ProcessFile(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, &recordingGenerator{answer: "ok"})

	path := filepath.Join(t.TempDir(), "Tariff.CSV")
	require.NoError(t, os.WriteFile(path, []byte(tariffCSV), 0o644))

	n, err := s.ProcessFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "Tariff.CSV", s.Source())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "indexed", StateIndexed.String())
	assert.Equal(t, "answering", StateAnswering.String())
	assert.Equal(t, "unknown", State(42).String())
}
