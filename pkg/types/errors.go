package types

import "errors"

// Capability errors surfaced by the fill pipeline
var (
	ErrSummarization = errors.New("summarization failed")
	ErrEmbedding     = errors.New("embedding failed")
)

// Persisted schema errors
var (
	ErrEmptyURL          = errors.New("document url is required")
	ErrParentMismatch    = errors.New("chunk parent url does not match document url")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Search result errors
var (
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
	ErrEmptyContent          = errors.New("content cannot be empty")
)
