package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semdoc/pkg/types"
)

const sampleText = "alpha one\n\nbeta two\n\ngamma three"

func TestEnsureFilled(t *testing.T) {
	doc, err := buildDoc("file:///sample.md", sampleText)
	require.NoError(t, err)

	sum := newStubSummarizer()
	emb := newStubEmbedder(4)
	filler := NewFiller(sum, emb)

	require.NoError(t, filler.EnsureFilled(context.Background(), doc))

	text, ok := doc.Summary()
	require.True(t, ok)
	assert.Equal(t, "summary of alpha one\nbeta two\ngamma three", text)

	for i, ch := range doc.Chunks() {
		s, ok := ch.Summary()
		require.True(t, ok, "chunk %d", i)
		assert.Equal(t, "summary of "+ch.Content(), s)
	}
	assert.True(t, doc.Filled())
	assert.Equal(t, 4, sum.total())
	assert.Zero(t, emb.callCount(), "fill never embeds")
}

func TestEnsureFilled_Idempotent(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	sum := newStubSummarizer()
	filler := NewFiller(sum, newStubEmbedder(4))
	ctx := context.Background()

	require.NoError(t, filler.EnsureFilled(ctx, doc))
	first := doc.Chunks()
	firstSummary, _ := doc.Summary()
	calls := sum.total()

	require.NoError(t, filler.EnsureFilled(ctx, doc))
	assert.Equal(t, calls, sum.total(), "second fill makes no capability calls")
	assert.Equal(t, first, doc.Chunks())
	again, _ := doc.Summary()
	assert.Equal(t, firstSummary, again)
}

func TestEnsureFilled_PartialFailureIsResumable(t *testing.T) {
	doc, err := buildDoc("file:///sample.md", sampleText)
	require.NoError(t, err)

	sum := newStubSummarizer()
	sum.setFail("beta two", true)
	filler := NewFiller(sum, newStubEmbedder(4))
	ctx := context.Background()

	err = filler.EnsureFilled(ctx, doc)
	require.Error(t, err)

	var fillErr *FillError
	require.True(t, errors.As(err, &fillErr))
	assert.Equal(t, StageSummarization, fillErr.Stage)
	assert.Equal(t, "file:///sample.md", fillErr.URL)
	assert.Equal(t, 1, fillErr.Chunk)
	assert.ErrorIs(t, err, types.ErrSummarization)
	assert.ErrorIs(t, err, errCapability)
	assert.NotErrorIs(t, err, types.ErrEmbedding)
	assert.Contains(t, err.Error(), "chunk 1")

	// Progress made before the failure is kept
	_, ok := doc.Summary()
	assert.True(t, ok)
	_, ok = doc.Chunk(0).Summary()
	assert.True(t, ok)
	_, ok = doc.Chunk(1).Summary()
	assert.False(t, ok)
	_, ok = doc.Chunk(2).Summary()
	assert.False(t, ok)

	sum.setFail("beta two", false)
	require.NoError(t, filler.EnsureFilled(ctx, doc))

	assert.Equal(t, 1, sum.count(JoinContent(doc.Chunks())), "document summary not requested again")
	assert.Equal(t, 1, sum.count("alpha one"), "first chunk summary not requested again")
	assert.Equal(t, 2, sum.count("beta two"))
	assert.Equal(t, 1, sum.count("gamma three"))
	assert.True(t, doc.Filled())
}

func TestEnsureFilled_DocumentFailure(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	sum := newStubSummarizer()
	sum.setFail(doc.Content(), true)
	filler := NewFiller(sum, newStubEmbedder(4))

	err = filler.EnsureFilled(context.Background(), doc)
	var fillErr *FillError
	require.True(t, errors.As(err, &fillErr))
	assert.Equal(t, -1, fillErr.Chunk)
	assert.Contains(t, err.Error(), "document")
	assert.Equal(t, 1, sum.total(), "chunks are not attempted after a document failure")
}

func TestEnsureFilled_EmptySummaryIsFailure(t *testing.T) {
	doc, err := buildDoc("u", "only chunk")
	require.NoError(t, err)

	sum := newStubSummarizer()
	sum.reply = func(string) string { return "  " }
	filler := NewFiller(sum, newStubEmbedder(4))

	err = filler.EnsureFilled(context.Background(), doc)
	assert.ErrorIs(t, err, ErrEmptySummary)
	assert.ErrorIs(t, err, types.ErrSummarization)

	_, ok := doc.Summary()
	assert.False(t, ok)
}

func TestEnsureFilled_CustomAggregate(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	firstOnly := func(chunks []Chunk) string { return chunks[0].Content() }
	filler := NewFiller(newStubSummarizer(), newStubEmbedder(4), WithAggregate(firstOnly))

	require.NoError(t, filler.EnsureFilled(context.Background(), doc))
	text, _ := doc.Summary()
	assert.Equal(t, "summary of alpha one", text)
}

func TestEnsureFilled_CancelledContext(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := newStubSummarizer()
	err = NewFiller(sum, newStubEmbedder(4)).EnsureFilled(ctx, doc)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.total())
}

func TestEnsureFilled_ParallelMatchesSequential(t *testing.T) {
	parts := make([]string, 40)
	for i := range parts {
		parts[i] = fmt.Sprintf("paragraph number %d", i)
	}
	text := strings.Join(parts, "\n\n")

	seqDoc, err := buildDoc("u", text)
	require.NoError(t, err)
	parDoc, err := buildDoc("u", text)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, NewFiller(newStubSummarizer(), newStubEmbedder(4)).EnsureFilled(ctx, seqDoc))

	sum := newStubSummarizer()
	require.NoError(t, NewFiller(sum, newStubEmbedder(4), WithWorkers(8)).EnsureFilled(ctx, parDoc))

	assert.Equal(t, seqDoc.Chunks(), parDoc.Chunks())
	assert.Equal(t, len(parts)+1, sum.total())
}

func TestEnsureFilled_ParallelFailureKeepsProgress(t *testing.T) {
	doc, err := buildDoc("u", sampleText)
	require.NoError(t, err)

	sum := newStubSummarizer()
	sum.setFail("gamma three", true)
	filler := NewFiller(sum, newStubEmbedder(4), WithWorkers(3))

	err = filler.EnsureFilled(context.Background(), doc)
	var fillErr *FillError
	require.True(t, errors.As(err, &fillErr))
	assert.Equal(t, 2, fillErr.Chunk)

	_, ok := doc.Chunk(2).Summary()
	assert.False(t, ok)

	sum.setFail("gamma three", false)
	require.NoError(t, filler.EnsureFilled(context.Background(), doc))
	assert.True(t, doc.Filled())
}
