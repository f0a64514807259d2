package segmenter

import (
	"fmt"

	"docchat/internal/domain"
)

// Segmenter splits document text into fixed-size chunks where each chunk
// shares a fixed-length overlap region with its predecessor. Boundaries are
// measured in runes so multi-byte text never splits mid-character.
type Segmenter struct {
	chunkSize int
	overlap   int
}

func New(chunkSize, overlap int) (*Segmenter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, chunkSize)
	}
	if overlap <= 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in (0, chunk size), got %d", domain.ErrInvalidConfig, overlap)
	}
	return &Segmenter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Segment produces the ordered chunk sequence covering the whole document.
// The final chunk may be shorter than the chunk size. Identical input always
// yields identical boundaries.
func (s *Segmenter) Segment(doc domain.Document) ([]domain.Chunk, error) {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	start := 0
	idx := 0
	for {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		overlap := 0
		if idx > 0 {
			overlap = s.overlap
		}
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.ID, idx),
			DocumentID: doc.ID,
			DocName:    doc.Name,
			Index:      idx,
			Text:       string(runes[start:end]),
			Overlap:    overlap,
		})
		if end == len(runes) {
			break
		}
		start = end - s.overlap
		idx++
	}
	return chunks, nil
}
