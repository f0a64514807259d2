package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Document is a single plain-text file loaded into the session.
type Document struct {
	ID   uuid.UUID
	Name string
	Path string
	Text string
}

// Chunk is a bounded contiguous span of a document's text, the unit of
// embedding and retrieval. Overlap is the number of characters shared with
// the previous chunk of the same document (0 for the first chunk).
type Chunk struct {
	ID         string
	DocumentID uuid.UUID
	DocName    string
	Index      int
	Text       string
	Overlap    int
}

// ScoredChunk is a retrieved chunk with its similarity to the query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Turn is one user question plus the resulting assistant answer.
// Report is empty unless evaluation was enabled for the turn.
type Turn struct {
	ID        uuid.UUID
	Question  string
	Answer    string
	Report    string
	CreatedAt time.Time
}

// Message is a single entry of a completion request conversation.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest describes one generation call to the model service.
type CompletionRequest struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Messages    []Message
}

// CompletionStream yields the tokens of a streaming completion.
// Recv returns io.EOF when generation completes.
type CompletionStream interface {
	Recv() (string, error)
	Close() error
}

// Embedder converts free text into a numeric vector representation.
// Chunk and query vectors must come from the same model to be comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator issues completion calls against the model service.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	StreamComplete(ctx context.Context, req CompletionRequest) (CompletionStream, error)
}

// Index answers nearest-neighbor queries over one built chunk set.
// An Index is immutable once built.
type Index interface {
	Len() int
	Search(vector []float32, k int) ([]ScoredChunk, error)
}

// IndexBuilder constructs a fresh Index from a chunk batch. Build either
// succeeds for the whole batch or publishes nothing.
type IndexBuilder interface {
	Build(ctx context.Context, chunks []Chunk, vectors [][]float32) (Index, error)
}
