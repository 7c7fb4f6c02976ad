package document

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semdoc/pkg/types"
)

func TestToStored_RoundTrip(t *testing.T) {
	doc, err := buildDoc("file:///notes.md", sampleText)
	require.NoError(t, err)

	filler := NewFiller(newStubSummarizer(), newStubEmbedder(8))
	tuple, err := filler.ToStored(context.Background(), doc)
	require.NoError(t, err)
	require.NoError(t, tuple.Validate())

	back := FromStored(tuple)
	assert.Equal(t, doc.URL(), back.URL())

	want, _ := doc.Summary()
	got, ok := back.Summary()
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.Equal(t, doc.Len(), back.Len())
	for i := 0; i < doc.Len(); i++ {
		orig, rebuilt := doc.Chunk(i), back.Chunk(i)
		assert.Equal(t, orig.Content(), rebuilt.Content())
		assert.Equal(t, orig.Range(), rebuilt.Range())
		ws, _ := orig.Summary()
		gs, ok := rebuilt.Summary()
		assert.True(t, ok)
		assert.Equal(t, ws, gs)
		assert.Empty(t, rebuilt.Changes())
	}
}

func TestToStored_Tuple(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	emb := newStubEmbedder(8)
	tuple, err := NewFiller(newStubSummarizer(), emb).ToStored(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, "u", tuple.Document.URL)
	assert.Len(t, tuple.Document.SummaryEmbedding, 8)
	require.Len(t, tuple.Chunks, 3)
	for i, ch := range tuple.Chunks {
		assert.Equal(t, "u", ch.ParentURL)
		assert.Equal(t, doc.Chunk(i).Content(), ch.Content)
		assert.Equal(t, doc.Chunk(i).Range(), ch.Range)
		assert.Len(t, ch.ContentEmbedding, 8)
		assert.Len(t, ch.SummaryEmbedding, 8)
	}
	assert.Equal(t, 1+2*3, emb.callCount())
}

func TestToStored_EmbeddingsAreFreshEachTime(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	sum := newStubSummarizer()
	emb := newStubEmbedder(4)
	filler := NewFiller(sum, emb)
	ctx := context.Background()

	_, err = filler.ToStored(ctx, doc)
	require.NoError(t, err)
	summaries := sum.total()

	_, err = filler.ToStored(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, summaries, sum.total(), "summaries are cached")
	assert.Equal(t, 2*(1+2*3), emb.callCount(), "embeddings are not")
}

func TestToStored_EmbeddingFailureKeepsSummaries(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	sum := newStubSummarizer()
	emb := newStubEmbedder(4)
	emb.setFail("summary of beta two", true)
	filler := NewFiller(sum, emb)
	ctx := context.Background()

	_, err = filler.ToStored(ctx, doc)
	var fillErr *FillError
	require.True(t, errors.As(err, &fillErr))
	assert.Equal(t, StageEmbedding, fillErr.Stage)
	assert.Equal(t, 1, fillErr.Chunk)
	assert.ErrorIs(t, err, types.ErrEmbedding)
	assert.ErrorIs(t, err, errCapability)
	assert.True(t, doc.Filled())

	summaries := sum.total()
	emb.setFail("summary of beta two", false)
	_, err = filler.ToStored(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, summaries, sum.total(), "retry does not re-request summaries")
}

func TestToStored_SummarizationFailure(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	sum := newStubSummarizer()
	sum.setFail("alpha one", true)
	emb := newStubEmbedder(4)

	_, err = NewFiller(sum, emb).ToStored(context.Background(), doc)
	assert.ErrorIs(t, err, types.ErrSummarization)
	assert.Zero(t, emb.callCount(), "nothing is embedded for an unfilled document")
}

func TestToStored_DimensionMismatch(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	emb := newStubEmbedder(4)
	emb.override["gamma three"] = 3

	_, err = NewFiller(newStubSummarizer(), emb).ToStored(context.Background(), doc)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	assert.ErrorIs(t, err, types.ErrEmbedding)
}

func TestToStored_Parallel(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)
	seq, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	ctx := context.Background()
	want, err := NewFiller(newStubSummarizer(), newStubEmbedder(4)).ToStored(ctx, seq)
	require.NoError(t, err)
	got, err := NewFiller(newStubSummarizer(), newStubEmbedder(4), WithWorkers(4)).ToStored(ctx, doc)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestFromStored(t *testing.T) {
	tuple := types.StoredTuple{
		Document: types.StoredDocument{URL: "u", Summary: "doc", SummaryEmbedding: []float32{1}},
		Chunks: []types.StoredChunk{
			{ParentURL: "u", Content: "b", Summary: "sb", Range: types.Range{Start: 4, End: 5}},
			{ParentURL: "u", Content: "a", Summary: "sa", Range: types.Range{Start: 0, End: 1}},
		},
	}

	doc := FromStored(tuple)
	assert.True(t, doc.Filled())
	assert.Equal(t, "b", doc.Chunk(0).Content(), "stored order is kept as given")
	assert.Equal(t, "a", doc.Chunk(1).Content())

	s, _ := doc.Chunk(1).Summary()
	assert.Equal(t, "sa", s)
}

func TestFromStored_Empty(t *testing.T) {
	doc := FromStored(types.StoredTuple{})
	assert.Equal(t, 0, doc.Len())
	s, ok := doc.Summary()
	assert.True(t, ok)
	assert.Empty(t, s)
}
