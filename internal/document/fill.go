package document

import (
	"context"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/semdoc/internal/embedder"
	"github.com/dshills/semdoc/internal/logging"
)

// Summarizer is the summarization capability used by a Filler
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Embedder is the embedding capability used by a Filler
type Embedder interface {
	GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error)
}

// Aggregator derives the text summarized for a whole document from its chunks
type Aggregator func(chunks []Chunk) string

// Filler computes missing summaries and, on persist, fresh embeddings
type Filler struct {
	summarizer Summarizer
	embedder   Embedder
	aggregate  Aggregator
	workers    int
	logger     *log.Logger
}

// Option configures a Filler
type Option func(*Filler)

// WithAggregate sets the document-level aggregate. Defaults to JoinContent.
func WithAggregate(fn Aggregator) Option {
	return func(f *Filler) {
		if fn != nil {
			f.aggregate = fn
		}
	}
}

// WithWorkers sets how many chunks are processed concurrently. Values below 2 mean sequential.
func WithWorkers(n int) Option {
	return func(f *Filler) {
		f.workers = n
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(f *Filler) {
		f.logger = l
	}
}

// NewFiller creates a Filler over the given capabilities
func NewFiller(s Summarizer, e Embedder, opts ...Option) *Filler {
	f := &Filler{
		summarizer: s,
		embedder:   e,
		aggregate:  JoinContent,
		workers:    1,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.OrNop(f.logger)
	return f
}

// EnsureFilled computes every pending summary of doc: first the document
// summary over the aggregate of its chunks, then each chunk in sequence order.
// Computed summaries are never recomputed. On failure the summaries computed
// so far are kept, so calling EnsureFilled again only redoes what is missing.
// No embeddings are computed here.
func (f *Filler) EnsureFilled(ctx context.Context, doc *Document) error {
	start := time.Now()

	if !doc.summary.IsComputed() {
		text, err := f.summarize(ctx, f.aggregate(doc.Chunks()))
		if err != nil {
			return &FillError{Stage: StageSummarization, URL: doc.url, Chunk: -1, Err: err}
		}
		doc.summary = Computed(text)
	}

	pending := make([]int, 0, len(doc.chunks))
	for i := range doc.chunks {
		if !doc.chunks[i].summary.IsComputed() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	err := f.forEach(ctx, pending, func(ctx context.Context, i int) error {
		text, err := f.summarize(ctx, doc.chunks[i].content)
		if err != nil {
			return &FillError{Stage: StageSummarization, URL: doc.url, Chunk: i, Err: err}
		}
		doc.chunks[i].summary = Computed(text)
		return nil
	})
	if err != nil {
		return err
	}

	f.logger.Debug().
		Str("url", doc.url).
		Int("summarized_chunks", len(pending)).
		Dur("duration", time.Since(start)).
		Msg("document filled")

	return nil
}

func (f *Filler) summarize(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	summary, err := f.summarizer.Summarize(ctx, text)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(summary) == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}

func (f *Filler) embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb, err := f.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, err
	}
	return emb.Vector, nil
}

// forEach runs fn for every index, sequentially or on a bounded errgroup.
// fn must only touch the chunk at its own index.
func (f *Filler) forEach(ctx context.Context, indexes []int, fn func(context.Context, int) error) error {
	if f.workers < 2 {
		for _, i := range indexes {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for _, i := range indexes {
		i := i
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
