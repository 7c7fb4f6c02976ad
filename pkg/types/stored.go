package types

import "fmt"

// StoredDocument is the flat, persisted form of a document
type StoredDocument struct {
	URL              string    `json:"url"`
	Summary          string    `json:"summary"`
	SummaryEmbedding []float32 `json:"summary_embedding"`
}

// StoredChunk is the flat, persisted form of a document chunk.
// ParentURL joins the chunk to its StoredDocument; sequence position plus
// Range distinguish chunks within a document.
type StoredChunk struct {
	ParentURL        string    `json:"parent_url"`
	Content          string    `json:"content"`
	ContentEmbedding []float32 `json:"content_embedding"`
	Summary          string    `json:"summary"`
	SummaryEmbedding []float32 `json:"summary_embedding"`
	Range            Range     `json:"range"`
}

// StoredTuple is a document's complete persisted representation
type StoredTuple struct {
	Document StoredDocument `json:"document"`
	Chunks   []StoredChunk  `json:"chunks"`
}

// Dimension returns the embedding dimension of the tuple, or 0 if it carries no vectors
func (t *StoredTuple) Dimension() int {
	return len(t.Document.SummaryEmbedding)
}

// Validate checks parent linkage and embedding dimensionality of the tuple
func (t *StoredTuple) Validate() error {
	if t.Document.URL == "" {
		return ErrEmptyURL
	}

	dim := t.Dimension()
	if dim == 0 {
		return fmt.Errorf("%w: document summary embedding is empty", ErrDimensionMismatch)
	}

	ranges := make([]Range, len(t.Chunks))
	for i := range t.Chunks {
		ch := &t.Chunks[i]
		if ch.ParentURL != t.Document.URL {
			return fmt.Errorf("%w: chunk %d has parent %q, want %q", ErrParentMismatch, i, ch.ParentURL, t.Document.URL)
		}
		if len(ch.ContentEmbedding) != dim || len(ch.SummaryEmbedding) != dim {
			return fmt.Errorf("%w: chunk %d has dimensions %d/%d, want %d",
				ErrDimensionMismatch, i, len(ch.ContentEmbedding), len(ch.SummaryEmbedding), dim)
		}
		ranges[i] = ch.Range
	}

	return ValidateSequence(ranges)
}
