package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/dshills/semdoc/pkg/types"
)

// searchVector performs vector similarity search using cosine similarity
func searchVector(ctx context.Context, q querier, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}
	// Use SQL-side distance when sqlite-vec is available; the extension may
	// still be missing at runtime, in which case the Go path is used.
	if VectorExtensionAvailable {
		if results, err := searchVectorOptimized(ctx, q, queryVector, limit, filters); err == nil {
			return results, nil
		}
	}
	return searchVectorFallback(ctx, q, queryVector, limit, filters)
}

// similarityExpr returns the SQL expression scoring a chunk against the query blob
func similarityExpr(filters *SearchFilters) (string, int) {
	content := "(1.0 - vec_distance_cosine(c.content_embedding, ?))"
	summary := "(1.0 - vec_distance_cosine(c.summary_embedding, ?))"
	switch {
	case wantField(filters, FieldContent) && wantField(filters, FieldSummary):
		return "max(" + content + ", " + summary + ")", 2
	case wantField(filters, FieldContent):
		return content, 1
	default:
		return summary, 1
	}
}

// searchVectorOptimized uses the sqlite-vec extension for SQL-based vector similarity search
func searchVectorOptimized(ctx context.Context, q querier, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	blob := serializeVector(queryVector)
	expr, n := similarityExpr(filters)

	query := `
		SELECT d.url, c.position, ` + expr + ` AS similarity
		FROM chunks c
		INNER JOIN documents d ON c.document_id = d.id
		WHERE d.dimension = ?
	`
	args := make([]interface{}, 0, n+4)
	for i := 0; i < n; i++ {
		args = append(args, blob)
	}
	args = append(args, len(queryVector))

	query, args = applyFilters(query, args, filters)

	if threshold := minRelevance(filters); threshold > 0 {
		query += " AND similarity >= ?"
		args = append(args, threshold)
	}

	query += " ORDER BY similarity DESC, d.url, c.position LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var result VectorResult
		if err := rows.Scan(&result.Ref.URL, &result.Ref.Position, &result.SimilarityScore); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// searchVectorFallback performs vector search using Go-based cosine similarity computation.
// This is used when the sqlite-vec extension is not available (purego builds).
func searchVectorFallback(ctx context.Context, q querier, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	query := `
		SELECT d.url, c.position, c.content_embedding, c.summary_embedding
		FROM chunks c
		INNER JOIN documents d ON c.document_id = d.id
		WHERE d.dimension = ?
	`
	args := []interface{}{len(queryVector)}
	query, args = applyFilters(query, args, filters)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]candidate, 0, 256)
	for rows.Next() {
		var c candidate
		var contentBlob, summaryBlob []byte
		if err := rows.Scan(&c.url, &c.position, &contentBlob, &summaryBlob); err != nil {
			return nil, err
		}
		score, ok := scoreChunk(queryVector, deserializeVector(contentBlob), deserializeVector(summaryBlob), filters)
		if !ok {
			continue
		}
		c.score = score
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return buildVectorResults(candidates, limit), nil
}

// scoreChunk scores one chunk against the query, honoring the field and relevance filters
func scoreChunk(query, content, summary []float32, filters *SearchFilters) (float64, bool) {
	score := math.Inf(-1)
	if wantField(filters, FieldContent) && len(content) == len(query) {
		score = cosineSimilarity(query, content)
	}
	if wantField(filters, FieldSummary) && len(summary) == len(query) {
		score = math.Max(score, cosineSimilarity(query, summary))
	}
	if math.IsInf(score, -1) {
		return 0, false
	}
	if threshold := minRelevance(filters); threshold > 0 && score < threshold {
		return 0, false
	}
	return score, true
}

// searchText performs BM25 full-text search using FTS5
func searchText(ctx context.Context, q querier, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return []TextResult{}, nil
	}

	sqlQuery := `
		SELECT d.url, c.position, bm25(chunks_fts) AS score
		FROM chunks_fts
		INNER JOIN chunks c ON chunks_fts.rowid = c.id
		INNER JOIN documents d ON c.document_id = d.id
		WHERE chunks_fts MATCH ?
	`
	args := []interface{}{sanitized}
	sqlQuery, args = applyFilters(sqlQuery, args, filters)

	// BM25 is lower-is-better
	sqlQuery += " ORDER BY score, d.url, c.position LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTextResults(rows, filters)
}

// applyFilters adds WHERE clause filters on the joined documents table
func applyFilters(query string, args []interface{}, filters *SearchFilters) (string, []interface{}) {
	if filters == nil {
		return query, args
	}

	if len(filters.URLs) > 0 {
		query += " AND d.url IN (" + strings.TrimSuffix(strings.Repeat("?,", len(filters.URLs)), ",") + ")"
		for _, u := range filters.URLs {
			args = append(args, u)
		}
	}

	if filters.URLPattern != "" {
		query += " AND d.url GLOB ?"
		args = append(args, filters.URLPattern)
	}

	return query, args
}

// collectTextResults processes text search results and normalizes scores
func collectTextResults(rows *sql.Rows, filters *SearchFilters) ([]TextResult, error) {
	results := make([]TextResult, 0)

	for rows.Next() {
		var result TextResult
		if err := rows.Scan(&result.Ref.URL, &result.Ref.Position, &result.BM25Score); err != nil {
			return nil, err
		}
		result.BM25Score = normalizeBM25(result.BM25Score)

		if threshold := minRelevance(filters); threshold > 0 && result.BM25Score < threshold {
			continue
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// buildVectorResults creates the top limit results from sorted candidates
func buildVectorResults(candidates []candidate, limit int) []VectorResult {
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	results := make([]VectorResult, limit)
	for i := 0; i < limit; i++ {
		results[i] = VectorResult{
			Ref:             candidates[i].ref(),
			SimilarityScore: candidates[i].score,
		}
	}
	return results
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate represents a chunk with its similarity score
type candidate struct {
	url      string
	position int
	score    float64
}

func (c candidate) ref() types.ChunkRef {
	return types.ChunkRef{URL: c.url, Position: c.position}
}

// sortCandidates sorts by score descending, then by document and position for stable output
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].url != candidates[j].url {
			return candidates[i].url < candidates[j].url
		}
		return candidates[i].position < candidates[j].position
	})
}

// queryTerms splits a query into lowercase word terms
func queryTerms(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// sanitizeFTSQuery turns free text into an FTS5 query matching any of its
// words. Terms are quoted so FTS5 operators in user input stay plain text.
func sanitizeFTSQuery(query string) string {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
