// Package indexer coordinates the end-to-end indexing pipeline for text documents.
//
// The indexer chunks a document, computes summaries and embeddings through a
// document.Filler, and persists the resulting stored tuple.
//
// # Basic Usage
//
//	filler := document.NewFiller(sum, emb, document.WithWorkers(4))
//	idx := indexer.New(store, chunker.New(chunker.DefaultMaxChars), filler)
//
//	res, err := idx.IndexDocument(ctx, "file:///notes/todo.md", text)
//
//	stats, err := idx.IndexPath(ctx, "/path/to/notes", &indexer.Config{Workers: 4})
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Indexing Pipeline
//
//  1. Discovery: walk the directory for .md, .txt, .html and .htm files,
//     skipping dot directories and oversized files
//  2. Incremental decision: compare new chunk ranges and content hashes with
//     the stored document, skip unchanged documents
//  3. Chunk: split text into paragraph chunks
//  4. Fill: summarize the document and every chunk, then embed all summaries
//     and chunk contents
//  5. Store: replace the stored document in one transaction
//
// Nothing is persisted for a document whose fill fails; the error is
// reported and the directory run continues with the remaining files.
//
// # Incremental Indexing
//
//	stats1, _ := idx.IndexPath(ctx, root, nil) // Files: 12 indexed, 0 skipped
//	stats2, _ := idx.IndexPath(ctx, root, nil) // Files: 0 indexed, 12 skipped
//
// Set Config.Force, or call Reindex for a single document, to recompute
// summaries and embeddings regardless.
//
// # Concurrency
//
// Files are indexed on a bounded errgroup. Only one IndexPath runs at a
// time per Indexer; a concurrent call returns ErrIndexInProgress. Storage
// backends serialize their own writes.
//
// # Retrieval
//
// Get reconstructs a Document from storage with every summary already
// computed, so a subsequent EnsureFilled makes no capability calls.
package indexer
