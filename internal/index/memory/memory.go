package memory

import (
	"context"
	"fmt"
	"sort"

	"docchat/internal/domain"
)

// Builder constructs in-memory indexes over brute-force cosine similarity.
// Vectors are assumed L2-normalized, so similarity is a dot product.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

// Build validates the batch and returns a new immutable index. Nothing is
// published on error.
func (b *Builder) Build(_ context.Context, chunks []domain.Chunk, vectors [][]float32) (domain.Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to index", domain.ErrDocumentLoad)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d dimension mismatch: %d != %d", i, len(v), dim)
		}
	}
	idx := &Index{
		chunks:    make([]domain.Chunk, len(chunks)),
		vectors:   make([][]float32, len(vectors)),
		dimension: dim,
	}
	copy(idx.chunks, chunks)
	copy(idx.vectors, vectors)
	return idx, nil
}

// Index holds one built chunk set. It is never mutated after Build.
type Index struct {
	chunks    []domain.Chunk
	vectors   [][]float32
	dimension int
}

func (idx *Index) Len() int { return len(idx.chunks) }

// Search returns the k most similar chunks ordered by descending score.
// Equal scores keep chunk insertion order. Fewer than k entries returns all.
func (idx *Index) Search(vector []float32, k int) ([]domain.ScoredChunk, error) {
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("query dimension mismatch: %d != %d", len(vector), idx.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	results := make([]domain.ScoredChunk, len(idx.chunks))
	for i := range idx.chunks {
		results[i] = domain.ScoredChunk{Chunk: idx.chunks[i], Score: dot(idx.vectors[i], vector)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
