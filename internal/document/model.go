package document

import (
	"fmt"
	"strings"

	"github.com/dshills/semdoc/pkg/types"
)

// Summary is a two-state value: Pending until the fill pipeline computes it,
// then Computed with the summary text. A Computed summary is never replaced.
type Summary struct {
	computed bool
	text     string
}

// Pending returns a summary that has not been computed yet
func Pending() Summary {
	return Summary{}
}

// Computed returns a summary holding text
func Computed(text string) Summary {
	return Summary{computed: true, text: text}
}

// IsComputed reports whether the summary has been computed
func (s Summary) IsComputed() bool {
	return s.computed
}

// Text returns the summary text, empty while pending
func (s Summary) Text() string {
	return s.text
}

func (s Summary) String() string {
	if !s.computed {
		return "<pending>"
	}
	return s.text
}

// Chunk is a contiguous fragment of a document's content
type Chunk struct {
	rng     types.Range
	content string
	summary Summary
	changes map[string]string
}

// NewChunk creates a chunk with a pending summary. content is the exact text
// covered by r and is kept as given; it is never recomputed from the range.
func NewChunk(r types.Range, content string) Chunk {
	return Chunk{
		rng:     r,
		content: content,
		summary: Pending(),
		changes: map[string]string{},
	}
}

// Range returns the half-open byte range the chunk covers
func (c Chunk) Range() types.Range {
	return c.rng
}

// Content returns the chunk's text
func (c Chunk) Content() string {
	return c.content
}

// Summary returns the summary text and whether it has been computed
func (c Chunk) Summary() (string, bool) {
	return c.summary.Text(), c.summary.IsComputed()
}

// SummaryState returns the chunk's summary as a two-state value
func (c Chunk) SummaryState() Summary {
	return c.summary
}

// Changes returns the reserved per-chunk change set. It is never persisted
// and is empty for every chunk built by NewChunk or FromStored.
func (c Chunk) Changes() map[string]string {
	return c.changes
}

// ValidateRanges checks that chunk ranges are well formed, non-overlapping
// and increasing in sequence order
func ValidateRanges(chunks []Chunk) error {
	ranges := make([]types.Range, len(chunks))
	for i := range chunks {
		ranges[i] = chunks[i].rng
	}
	return types.ValidateSequence(ranges)
}

// Document is a text resource decomposed into ordered chunks.
// A Document owns its chunk sequence; only the fill pipeline mutates it.
type Document struct {
	url     string
	chunks  []Chunk
	summary Summary
}

// New builds a document from the ordered chunk sequence produced by a chunker.
// The chunk slice is copied; the caller's slice is not retained.
func New(url string, chunks []Chunk) (*Document, error) {
	if url == "" {
		return nil, types.ErrEmptyURL
	}
	if err := ValidateRanges(chunks); err != nil {
		return nil, fmt.Errorf("document %s: %w", url, err)
	}

	owned := make([]Chunk, len(chunks))
	copy(owned, chunks)
	for i := range owned {
		if owned[i].changes == nil {
			owned[i].changes = map[string]string{}
		}
	}

	return &Document{
		url:     url,
		chunks:  owned,
		summary: Pending(),
	}, nil
}

// URL returns the document's identifier
func (d *Document) URL() string {
	return d.url
}

// Len returns the number of chunks
func (d *Document) Len() int {
	return len(d.chunks)
}

// Chunk returns the chunk at position i
func (d *Document) Chunk(i int) Chunk {
	return d.chunks[i]
}

// Chunks returns a copy of the chunk sequence
func (d *Document) Chunks() []Chunk {
	out := make([]Chunk, len(d.chunks))
	copy(out, d.chunks)
	return out
}

// Summary returns the document summary text and whether it has been computed
func (d *Document) Summary() (string, bool) {
	return d.summary.Text(), d.summary.IsComputed()
}

// Filled reports whether the document summary and every chunk summary are computed
func (d *Document) Filled() bool {
	if !d.summary.IsComputed() {
		return false
	}
	for i := range d.chunks {
		if !d.chunks[i].summary.IsComputed() {
			return false
		}
	}
	return true
}

// Content returns the chunk contents joined in sequence order
func (d *Document) Content() string {
	return JoinContent(d.chunks)
}

// JoinContent joins chunk contents with newlines. It is the default
// aggregate summarized for the document as a whole.
func JoinContent(chunks []Chunk) string {
	parts := make([]string, len(chunks))
	for i := range chunks {
		parts[i] = chunks[i].content
	}
	return strings.Join(parts, "\n")
}
