package types

// ChunkRef identifies a stored chunk by its parent document and sequence position
type ChunkRef struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// ChunkHit is a stored chunk resolved for display in search results
type ChunkHit struct {
	Ref             ChunkRef `json:"ref"`
	Range           Range    `json:"range"`
	Content         string   `json:"content"`
	Summary         string   `json:"summary"`
	DocumentSummary string   `json:"document_summary"`
}

// SearchResult represents a single retrieved fragment with relevance information
type SearchResult struct {
	Rank           int     `json:"rank"` // Position in result set (1-based)
	RelevanceScore float64 `json:"relevance_score"`

	ChunkHit
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.Ref.URL == "" {
		return ErrEmptyURL
	}

	if sr.Content == "" {
		return ErrEmptyContent
	}

	return nil
}
