package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func chunksOf(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("doc:%d", i), Index: i, Text: fmt.Sprintf("chunk %d", i)}
	}
	return chunks
}

func TestBuildRejectsMismatchedBatch(t *testing.T) {
	b := NewBuilder()

	_, err := b.Build(context.Background(), chunksOf(2), [][]float32{{1, 0}})
	assert.Error(t, err)

	_, err = b.Build(context.Background(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrDocumentLoad)

	_, err = b.Build(context.Background(), chunksOf(2), [][]float32{{1, 0}, {1, 0, 0}})
	assert.Error(t, err)
}

func TestSearchOrdersByDescendingScore(t *testing.T) {
	b := NewBuilder()
	vectors := [][]float32{
		{0, 1},        // orthogonal to the query
		{1, 0},        // identical to the query
		{0.6, 0.8},    // partial match
		{-1, 0},       // opposite
		{0.98, 0.199}, // near match
	}
	idx, err := b.Build(context.Background(), chunksOf(5), vectors)
	require.NoError(t, err)
	require.Equal(t, 5, idx.Len())

	results, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "doc:1", results[0].Chunk.ID)
	assert.Equal(t, "doc:4", results[1].Chunk.ID)
	assert.Equal(t, "doc:2", results[2].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	b := NewBuilder()
	vectors := [][]float32{
		{0, 1},
		{1, 0},
		{1, 0},
		{1, 0},
	}
	idx, err := b.Build(context.Background(), chunksOf(4), vectors)
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "doc:1", results[0].Chunk.ID)
	assert.Equal(t, "doc:2", results[1].Chunk.ID)
	assert.Equal(t, "doc:3", results[2].Chunk.ID)
}

func TestSearchReturnsAllWhenKExceedsSize(t *testing.T) {
	b := NewBuilder()
	vectors := [][]float32{{1, 0}, {0, 1}, {0.6, 0.8}}
	idx, err := b.Build(context.Background(), chunksOf(3), vectors)
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchReturnsExactlyKWithoutDuplicates(t *testing.T) {
	b := NewBuilder()
	n := 6
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = []float32{float32(i) / float32(n), 1}
	}
	idx, err := b.Build(context.Background(), chunksOf(n), vectors)
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 5)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.Chunk.ID], "duplicate chunk %s", r.Chunk.ID)
		seen[r.Chunk.ID] = true
	}
}

func TestSearchDeterministic(t *testing.T) {
	b := NewBuilder()
	vectors := [][]float32{{0.1, 0.9}, {0.5, 0.5}, {0.9, 0.1}, {0.3, 0.7}}
	idx, err := b.Build(context.Background(), chunksOf(4), vectors)
	require.NoError(t, err)

	query := []float32{0.7, 0.3}
	first, err := idx.Search(query, 4)
	require.NoError(t, err)
	second, err := idx.Search(query, 4)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearchRejectsDimensionMismatch(t *testing.T) {
	b := NewBuilder()
	idx, err := b.Build(context.Background(), chunksOf(1), [][]float32{{1, 0}})
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 0, 0}, 1)
	assert.Error(t, err)
}

func TestBuildCopiesBatch(t *testing.T) {
	b := NewBuilder()
	chunks := chunksOf(2)
	vectors := [][]float32{{1, 0}, {0, 1}}
	idx, err := b.Build(context.Background(), chunks, vectors)
	require.NoError(t, err)

	// Mutating the caller's slices must not affect the published index.
	chunks[0].ID = "mutated"
	results, err := idx.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "doc:0", results[0].Chunk.ID)
}
