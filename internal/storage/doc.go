// Package storage persists stored document tuples and searches over them.
//
// Two backends implement Storage:
//   - SQLiteStorage: relational schema with FTS5 keyword search and cosine
//     vector search (SQL-side with sqlite-vec, Go-side otherwise)
//   - BoltStorage: one JSON record per document in a bbolt file, searched by
//     full scan; suited to small stores and environments without SQLite
//
// # Database Schema
//
// Tables:
//   - documents: url, summary, summary embedding, dimension
//   - chunks: position, range, content and summary with their embeddings
//   - chunks_fts: FTS5 index over chunk content and summary
//   - settings: store-wide values such as embedding_dimension
//   - schema_version: applied migrations (semantic versions)
//
// Embeddings are stored as little-endian float32 blobs.
//
// # Basic Usage
//
//	store, err := storage.Open(storage.BackendSQLite, "semdoc.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.SaveDocument(ctx, tuple); err != nil {
//	    return err
//	}
//	tuple, err = store.LoadDocument(ctx, url)
//
// # Invariants
//
// SaveDocument replaces a document atomically: the document row and its
// whole chunk sequence are rewritten in one transaction. Every chunk must
// name the document as its parent (ErrParentMismatch) and every vector in
// the store shares the dimension of the first document saved
// (ErrDimensionMismatch). Chunk order is kept through the position column.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go). Building with
// -tags "sqlite_vec,fts5" switches to github.com/mattn/go-sqlite3.
package storage
