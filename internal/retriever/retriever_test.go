package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
	"docchat/internal/index/memory"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

func buildIndex(t *testing.T, vectors [][]float32) domain.Index {
	t.Helper()
	chunks := make([]domain.Chunk, len(vectors))
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: string(rune('a' + i)), Index: i}
	}
	idx, err := memory.NewBuilder().Build(context.Background(), chunks, vectors)
	require.NoError(t, err)
	return idx
}

func TestQueryWithoutIndex(t *testing.T) {
	r := New(&fakeEmbedder{}, 5)

	_, err := r.Query(context.Background(), nil, "anything")
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestQueryReturnsTopK(t *testing.T) {
	idx := buildIndex(t, [][]float32{{1, 0}, {0, 1}, {0.6, 0.8}})
	emb := &fakeEmbedder{vector: []float32{1, 0}}
	r := New(emb, 2)

	results, err := r.Query(context.Background(), idx, "question")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "c", results[1].Chunk.ID)
	assert.Equal(t, 1, emb.calls)
}

func TestQueryWrapsEmbedderFailure(t *testing.T) {
	idx := buildIndex(t, [][]float32{{1, 0}})
	emb := &fakeEmbedder{err: errors.New("quota exceeded")}
	r := New(emb, 5)

	_, err := r.Query(context.Background(), idx, "question")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestNewClampsTopK(t *testing.T) {
	idx := buildIndex(t, [][]float32{{1, 0}, {0, 1}})
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, 0)

	results, err := r.Query(context.Background(), idx, "question")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
