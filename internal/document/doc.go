// Package document holds the runtime document model and the pipeline that
// fills and persists it.
//
// A Document is built by a chunker from an ordered, non-overlapping chunk
// sequence. Summaries start Pending and are written exactly once by a
// Filler:
//
//	filler := document.NewFiller(sum, emb, document.WithWorkers(4))
//	tuple, err := filler.ToStored(ctx, doc)
//
// ToStored first calls EnsureFilled, then embeds the document summary and
// every chunk summary and content. Embeddings exist only in the stored tuple.
// A failed call leaves the summaries computed so far in place; retrying only
// redoes the missing ones.
//
// FromStored is the inverse for url, summaries, chunk content, ranges and
// chunk order.
package document
