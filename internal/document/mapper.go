package document

import (
	"context"
	"fmt"

	"github.com/dshills/semdoc/pkg/types"
)

// ToStored fills doc and converts it to its persisted form. Every embedding
// (document summary, chunk summaries, chunk contents) is computed fresh; none
// are cached on the Document.
func (f *Filler) ToStored(ctx context.Context, doc *Document) (types.StoredTuple, error) {
	if err := f.EnsureFilled(ctx, doc); err != nil {
		return types.StoredTuple{}, err
	}

	docEmbedding, err := f.embed(ctx, doc.summary.Text())
	if err != nil {
		return types.StoredTuple{}, &FillError{Stage: StageEmbedding, URL: doc.url, Chunk: -1, Err: err}
	}
	dim := len(docEmbedding)
	if dim == 0 {
		return types.StoredTuple{}, &FillError{
			Stage: StageEmbedding, URL: doc.url, Chunk: -1,
			Err: fmt.Errorf("%w: empty vector", types.ErrDimensionMismatch),
		}
	}

	chunks := make([]types.StoredChunk, len(doc.chunks))
	indexes := make([]int, len(doc.chunks))
	for i := range indexes {
		indexes[i] = i
	}

	err = f.forEach(ctx, indexes, func(ctx context.Context, i int) error {
		ch := &doc.chunks[i]

		summaryEmbedding, err := f.embed(ctx, ch.summary.Text())
		if err != nil {
			return &FillError{Stage: StageEmbedding, URL: doc.url, Chunk: i, Err: err}
		}
		contentEmbedding, err := f.embed(ctx, ch.content)
		if err != nil {
			return &FillError{Stage: StageEmbedding, URL: doc.url, Chunk: i, Err: err}
		}
		if len(summaryEmbedding) != dim || len(contentEmbedding) != dim {
			return &FillError{
				Stage: StageEmbedding, URL: doc.url, Chunk: i,
				Err: fmt.Errorf("%w: got %d/%d, want %d",
					types.ErrDimensionMismatch, len(summaryEmbedding), len(contentEmbedding), dim),
			}
		}

		chunks[i] = types.StoredChunk{
			ParentURL:        doc.url,
			Content:          ch.content,
			ContentEmbedding: contentEmbedding,
			Summary:          ch.summary.Text(),
			SummaryEmbedding: summaryEmbedding,
			Range:            ch.rng,
		}
		return nil
	})
	if err != nil {
		return types.StoredTuple{}, err
	}

	return types.StoredTuple{
		Document: types.StoredDocument{
			URL:              doc.url,
			Summary:          doc.summary.Text(),
			SummaryEmbedding: docEmbedding,
		},
		Chunks: chunks,
	}, nil
}

// FromStored rebuilds a Document from its persisted form. It never fails:
// chunks keep the stored order, every summary is Computed and embeddings are
// dropped.
func FromStored(tuple types.StoredTuple) *Document {
	chunks := make([]Chunk, len(tuple.Chunks))
	for i, sc := range tuple.Chunks {
		chunks[i] = Chunk{
			rng:     sc.Range,
			content: sc.Content,
			summary: Computed(sc.Summary),
			changes: map[string]string{},
		}
	}

	return &Document{
		url:     tuple.Document.URL,
		chunks:  chunks,
		summary: Computed(tuple.Document.Summary),
	}
}
