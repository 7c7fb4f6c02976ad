// Package types provides shared type definitions for the semdoc store.
//
// These types sit on the boundary between components: the prompt scanner
// reports Positions, the document model and chunker speak in Ranges, the
// persistence mapper and storage backends exchange StoredTuples, and the
// searcher returns SearchResults.
//
// # Stored Tuple
//
// A document's persisted representation is flat:
//
//	tuple := types.StoredTuple{
//	    Document: types.StoredDocument{URL: url, Summary: s, SummaryEmbedding: v},
//	    Chunks: []types.StoredChunk{
//	        {ParentURL: url, Content: c, ContentEmbedding: cv, Summary: cs, SummaryEmbedding: sv, Range: r},
//	    },
//	}
//	if err := tuple.Validate(); err != nil {
//	    return err
//	}
//
// Validate enforces that every chunk points back at its document, that all
// vectors share one dimension and that chunk ranges are strictly increasing
// and non-overlapping.
//
// # Ranges
//
// Range is half-open. Sibling ranges may touch (previous End == next Start)
// but never overlap.
package types
