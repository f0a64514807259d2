package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchat/internal/domain"
)

// Builder is a minimal REST client to Qdrant. Every build goes into a fresh
// collection named after the build, and the previous collection is dropped
// only once the new build fully succeeds, so a published index stays
// searchable through a failed rebuild.
type Builder struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu   sync.Mutex
	live string
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewBuilder(cfg Config) *Builder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Builder{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Build creates a new collection with the batch dimension and upserts the
// whole batch before returning a searchable handle. On any failure the fresh
// collection is removed and the previously built collection is untouched.
func (b *Builder) Build(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) (domain.Index, error) {
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

	name := fmt.Sprintf("%s-%s", b.collection, uuid.NewString())
	create := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if err := b.putJSON(ctx, fmt.Sprintf("%s/collections/%s", b.url, name), create); err != nil {
		return nil, err
	}

	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		points[i] = map[string]any{
			"id":     i,
			"vector": vectors[i],
			"payload": map[string]any{
				"chunk_id":    chunks[i].ID,
				"document_id": chunks[i].DocumentID.String(),
				"doc_name":    chunks[i].DocName,
				"index":       chunks[i].Index,
				"overlap":     chunks[i].Overlap,
				"text":        chunks[i].Text,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := b.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", b.url, name), body); err != nil {
		b.deleteCollection(ctx, name)
		return nil, err
	}

	b.mu.Lock()
	prev := b.live
	b.live = name
	b.mu.Unlock()
	if prev != "" {
		b.deleteCollection(ctx, prev)
	}
	return &Index{builder: b, collection: name, size: len(chunks), dimension: dim}, nil
}

// Index is a handle to one built collection.
type Index struct {
	builder    *Builder
	collection string
	size       int
	dimension  int
}

func (idx *Index) Len() int { return idx.size }

// Search queries the collection. Score ordering comes from Qdrant; ties are
// left in server order.
func (idx *Index) Search(vector []float32, k int) ([]domain.ScoredChunk, error) {
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("query dimension mismatch: %d != %d", len(vector), idx.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	b := idx.builder
	if err := b.postJSON(context.Background(), fmt.Sprintf("%s/collections/%s/points/search", b.url, idx.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := domain.Chunk{}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			chunk.ID = v
		}
		if v, ok := r.Payload["document_id"].(string); ok {
			if id, err := uuid.Parse(v); err == nil {
				chunk.DocumentID = id
			}
		}
		if v, ok := r.Payload["doc_name"].(string); ok {
			chunk.DocName = v
		}
		if v, ok := r.Payload["index"].(float64); ok {
			chunk.Index = int(v)
		}
		if v, ok := r.Payload["overlap"].(float64); ok {
			chunk.Overlap = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: r.Score})
	}
	return results, nil
}

func (b *Builder) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}
}

// deleteCollection is best-effort cleanup; a 404 on a fresh instance is fine.
func (b *Builder) deleteCollection(ctx context.Context, name string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", b.url, name), nil)
	if err != nil {
		return
	}
	b.setHeaders(req)
	if resp, err := b.client.Do(req); err == nil {
		resp.Body.Close()
	}
}

func (b *Builder) putJSON(ctx context.Context, url string, body any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	b.setHeaders(req)
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (b *Builder) postJSON(ctx context.Context, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	b.setHeaders(req)
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
