package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimburse/internal/domain"
)

func entries(n int) []domain.VectorEntry {
	out := make([]domain.VectorEntry, n)
	for i := range out {
		// entry i points further away from the x axis as i grows
		out[i] = domain.VectorEntry{
			Record: domain.Record{Content: fmt.Sprintf("record %d", i)},
			Vector: []float32{1, float32(i)},
		}
	}
	return out
}

func TestStorage_SearchTopK(t *testing.T) {
	ctx := context.Background()
	query := []float32{1, 0}

	tests := []struct {
		name     string
		size     int
		k        int
		expected []string
	}{
		{name: "k smaller than index", size: 10, k: 4, expected: []string{"record 0", "record 1", "record 2", "record 3"}},
		{name: "k larger than index", size: 2, k: 4, expected: []string{"record 0", "record 1"}},
		{name: "empty index", size: 0, k: 4, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStorage()
			require.NoError(t, s.Upsert(ctx, entries(tt.size)))

			res, err := s.Search(ctx, query, tt.k)
			require.NoError(t, err)

			got := make([]string, 0, len(res))
			for _, r := range res {
				got = append(got, r.Record.Content)
			}
			assert.Equal(t, tt.expected, got)

			for i := 1; i < len(res); i++ {
				assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
			}
		})
	}
}

func TestStorage_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Upsert(ctx, []domain.VectorEntry{
		{Record: domain.Record{Content: "first"}, Vector: []float32{1, 1}},
		{Record: domain.Record{Content: "second"}, Vector: []float32{2, 2}},
		{Record: domain.Record{Content: "third"}, Vector: []float32{3, 3}},
	}))

	res, err := s.Search(ctx, []float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "first", res[0].Record.Content)
	assert.Equal(t, "second", res[1].Record.Content)
	assert.Equal(t, "third", res[2].Record.Content)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}

func TestArgsortDesc_RoundingTies(t *testing.T) {
	vals := []float64{0.9999999999999998, 0.5, 1.0000000000000002, 1, 0.7}
	assert.Equal(t, []int{0, 2, 3, 4, 1}, argsortDesc(vals))
}

func TestStorage_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Upsert(ctx, entries(2)))

	err := s.Upsert(ctx, []domain.VectorEntry{{Vector: []float32{1, 2, 3}}})
	assert.Error(t, err)

	_, err = s.Search(ctx, []float32{1, 2, 3}, 1)
	assert.Error(t, err)
}

func TestStorage_LenAndClose(t *testing.T) {
	ctx := context.Background()
	idx, err := Factory()(ctx)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, entries(3)))
	n, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, idx.Close(ctx))
	n, err = idx.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	assert.Error(t, err)
	assert.Error(t, idx.Upsert(ctx, entries(1)))
}
