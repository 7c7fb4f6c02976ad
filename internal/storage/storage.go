package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/semdoc/pkg/types"
)

var (
	// ErrNotFound is returned when a requested document or chunk doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrParentMismatch is returned when a chunk does not belong to the document being saved
	ErrParentMismatch = types.ErrParentMismatch
	// ErrDimensionMismatch is returned when a vector's length differs from the store's dimension
	ErrDimensionMismatch = types.ErrDimensionMismatch
	// ErrEmptyQuery is returned by text search when the query has no searchable terms
	ErrEmptyQuery = errors.New("empty search query")
)

// Backends
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Vector fields searched by SearchVector
const (
	FieldAny     = ""
	FieldContent = "content"
	FieldSummary = "summary"
)

// Storage persists stored tuples and answers retrieval queries over them
type Storage interface {
	// Document operations
	SaveDocument(ctx context.Context, tuple types.StoredTuple) error
	LoadDocument(ctx context.Context, url string) (types.StoredTuple, error)
	DeleteDocument(ctx context.Context, url string) error
	ListDocuments(ctx context.Context) ([]DocumentInfo, error)

	// Chunk operations
	GetChunk(ctx context.Context, ref types.ChunkRef) (*types.ChunkHit, error)

	// Search operations
	SearchVector(ctx context.Context, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)
	SearchText(ctx context.Context, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	Close() error
}

// DocumentInfo describes a stored document without its chunks
type DocumentInfo struct {
	URL        string
	Summary    string
	ChunkCount int
	Dimension  int
	UpdatedAt  time.Time
}

// SearchFilters contains filters for narrowing search results
type SearchFilters struct {
	URLPattern   string   // Glob pattern on document URLs
	URLs         []string // Restrict to these documents
	Field        string   // Vector field to compare: FieldContent, FieldSummary or FieldAny
	MinRelevance float64  // Minimum relevance score
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	Ref             types.ChunkRef
	SimilarityScore float64
}

// TextResult represents a result from full-text search
type TextResult struct {
	Ref       types.ChunkRef
	BM25Score float64 // Normalized to [0, 1), higher is better
}

// Status contains statistics about the store
type Status struct {
	Backend        string
	BuildMode      string
	DocumentsCount int
	ChunksCount    int
	Dimension      int
	IndexSizeMB    float64
	LastIndexedAt  time.Time
	Health         HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexesBuilt     bool
}

// Open opens the storage backend at path
func Open(backend, path string) (Storage, error) {
	switch strings.ToLower(backend) {
	case BackendSQLite, "":
		return NewSQLiteStorage(path)
	case BackendBolt, "bbolt":
		return NewBoltStorage(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// validateTuple checks a tuple before it is written and returns its dimension
func validateTuple(tuple *types.StoredTuple) (int, error) {
	if err := tuple.Validate(); err != nil {
		return 0, fmt.Errorf("invalid document %s: %w", tuple.Document.URL, err)
	}
	return tuple.Dimension(), nil
}

// checkDimension compares a tuple's dimension with the one recorded for the store.
// stored is 0 when nothing has been saved yet.
func checkDimension(stored, dim int) error {
	if stored != 0 && stored != dim {
		return fmt.Errorf("%w: store holds %d-dimensional vectors, document has %d", ErrDimensionMismatch, stored, dim)
	}
	return nil
}

func wantField(filters *SearchFilters, field string) bool {
	if filters == nil || filters.Field == FieldAny {
		return true
	}
	return filters.Field == field
}

func minRelevance(filters *SearchFilters) float64 {
	if filters == nil {
		return 0
	}
	return filters.MinRelevance
}

// normalizeBM25 converts an FTS5 bm25 score (negative, lower is better) to [0, 1), higher is better
func normalizeBM25(score float64) float64 {
	if score < 0 {
		score = -score
	}
	return score / (score + 1.0)
}
