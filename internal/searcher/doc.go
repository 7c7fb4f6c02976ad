// Package searcher retrieves the document fragments most relevant to a query.
//
// The searcher provides three search modes:
//   - Hybrid: combines vector and BM25 keyword search (default)
//   - Vector: semantic search over chunk content and summary embeddings
//   - Keyword: BM25 full-text search only, no embedding required
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, emb)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "how do kangaroos move",
//	    Limit: 10,
//	    Mode:  searcher.SearchModeHybrid,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s#%d (score: %.2f)\n", r.Rank, r.Ref.URL, r.Ref.Position, r.RelevanceScore)
//	}
//
// # Reciprocal Rank Fusion (RRF)
//
// Hybrid mode runs both searches concurrently, each fetching twice the
// requested limit, and merges them:
//
//	For each result r in vector_results:
//	    rrf_score[r.ref] += 1 / (k + r.rank)
//
//	For each result r in keyword_results:
//	    rrf_score[r.ref] += 1 / (k + r.rank)
//
//	Sort by rrf_score descending, then by URL and position
//
// Where k = 60 by default. If one side fails, hybrid mode returns the
// other side's results.
//
// # Filtering
//
//	resp, _ := s.Search(ctx, searcher.SearchRequest{
//	    Query: "sauce",
//	    Filters: &storage.SearchFilters{
//	        URLPattern:   "file:///recipes/*",
//	        Field:        storage.FieldSummary,
//	        MinRelevance: 0.7,
//	    },
//	})
//
// # Relevance Scoring
//
// Vector mode reports cosine similarity, keyword mode a normalized BM25
// score, both clamped to [0, 1]. Hybrid mode reports the RRF score.
//
// # Caching
//
// With UseCache set, responses are kept in an LRU cache keyed by query,
// mode, limit and filters, and expire after CacheTTL (one hour by default).
// Call InvalidateCache after documents are indexed or deleted.
package searcher
