package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(KindEmbeddingUnavailable, "embedding record 3", cause)

	assert.True(t, errors.Is(err, ErrEmbeddingUnavailable))
	assert.False(t, errors.Is(err, ErrGenerationFailed))
	assert.True(t, errors.Is(err, cause))
}

func TestError_Message(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := NewError(KindMalformedInput, "top-level JSON must be an array", errors.New("got object"))
		assert.Equal(t, "malformed_input: top-level JSON must be an array (got object)", err.Error())
	})

	t.Run("without cause", func(t *testing.T) {
		assert.Equal(t, "unsupported_format: unsupported file type", ErrUnsupportedFormat.Error())
	})
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("ask: %w", NewError(KindIndexUnavailable, "no document processed", nil))

	assert.Equal(t, KindIndexUnavailable, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(KindGenerationFailed, "generate", nil))
	})

	t.Run("plain error gets kind", func(t *testing.T) {
		err := Wrap(KindGenerationFailed, "generate", errors.New("timeout"))
		assert.ErrorIs(t, err, ErrGenerationFailed)
	})

	t.Run("kinded error keeps its kind", func(t *testing.T) {
		inner := NewError(KindEmbeddingUnavailable, "missing key", nil)
		err := Wrap(KindIndexUnavailable, "build", inner)
		assert.Same(t, inner, err)
	})
}

func TestRetrievalResult_Contents(t *testing.T) {
	res := RetrievalResult{
		{Record: Record{Content: "first"}, Score: 0.9},
		{Record: Record{Content: "second"}, Score: 0.5},
	}
	assert.Equal(t, []string{"first", "second"}, res.Contents())
	assert.Empty(t, RetrievalResult(nil).Contents())
}
