package retriever

import (
	"context"
	"fmt"

	"docchat/internal/domain"
)

// Retriever embeds a query with the same model as the indexed chunks and
// asks the index for the most similar ones.
type Retriever struct {
	embedder domain.Embedder
	topK     int
}

func New(embedder domain.Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{embedder: embedder, topK: topK}
}

// Query returns up to topK chunks ordered by descending similarity.
func (r *Retriever) Query(ctx context.Context, idx domain.Index, query string) ([]domain.ScoredChunk, error) {
	if idx == nil || idx.Len() == 0 {
		return nil, domain.ErrEmptyIndex
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := idx.Search(vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	return results, nil
}
