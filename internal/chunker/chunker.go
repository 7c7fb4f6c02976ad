package chunker

import (
	"crypto/sha256"
	"strings"
	"unicode/utf8"

	"github.com/dshills/semdoc/internal/document"
	"github.com/dshills/semdoc/pkg/types"
)

const (
	// DefaultMaxChars is the target maximum byte length of a chunk
	DefaultMaxChars = 1500

	// MinMaxChars is the smallest accepted chunk size
	MinMaxChars = 16

	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4
)

// Chunker splits plain text into paragraph chunks
type Chunker struct {
	maxChars int
}

// New creates a Chunker producing chunks of at most maxChars bytes.
// Values <= 0 select DefaultMaxChars.
func New(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if maxChars < MinMaxChars {
		maxChars = MinMaxChars
	}
	return &Chunker{maxChars: maxChars}
}

// MaxChars returns the configured chunk size limit
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// Chunk splits text into document chunks. Every chunk's content is exactly
// text[Range.Start:Range.End].
func (c *Chunker) Chunk(text string) []document.Chunk {
	ranges := c.Ranges(text)
	chunks := make([]document.Chunk, len(ranges))
	for i, r := range ranges {
		chunks[i] = document.NewChunk(r, text[r.Start:r.End])
	}
	return chunks
}

// Ranges returns the chunk boundaries for text. Consecutive paragraphs are
// merged while the merged span fits in MaxChars; paragraphs larger than
// MaxChars are split at line, then word, then rune boundaries.
func (c *Chunker) Ranges(text string) []types.Range {
	var out []types.Range
	var cur types.Range
	open := false

	for _, p := range paragraphs(text) {
		if p.Len() > c.maxChars {
			if open {
				out = append(out, cur)
				open = false
			}
			out = append(out, splitLong(text, p, c.maxChars)...)
			continue
		}
		if open && p.End-cur.Start <= c.maxChars {
			cur.End = p.End
			continue
		}
		if open {
			out = append(out, cur)
		}
		cur, open = p, true
	}
	if open {
		out = append(out, cur)
	}
	return out
}

// paragraphs returns the spans of non-blank lines, without leading
// indentation on the first line or trailing whitespace on the last
func paragraphs(text string) []types.Range {
	var out []types.Range
	start, end := -1, 0

	for lineStart := 0; lineStart <= len(text); {
		lineEnd, next := len(text), len(text)+1
		if nl := strings.IndexByte(text[lineStart:], '\n'); nl >= 0 {
			lineEnd = lineStart + nl
			next = lineEnd + 1
		}
		line := text[lineStart:lineEnd]

		if strings.TrimSpace(line) == "" {
			if start >= 0 {
				out = append(out, types.Range{Start: start, End: end})
				start = -1
			}
		} else {
			if start < 0 {
				start = lineStart + len(line) - len(strings.TrimLeft(line, " \t"))
			}
			end = lineStart + len(strings.TrimRight(line, " \t\r"))
		}
		lineStart = next
	}
	if start >= 0 {
		out = append(out, types.Range{Start: start, End: end})
	}
	return out
}

// splitLong cuts an oversized paragraph into pieces of at most max bytes
func splitLong(text string, r types.Range, max int) []types.Range {
	var out []types.Range
	pos := r.Start

	for pos < r.End {
		if r.End-pos <= max {
			out = append(out, types.Range{Start: pos, End: r.End})
			break
		}

		window := text[pos : pos+max]
		var end, next int
		cut := strings.LastIndexByte(window, '\n')
		if cut <= 0 {
			cut = strings.LastIndexAny(window, " \t")
		}
		if cut > 0 {
			end, next = pos+cut, pos+cut+1
		} else {
			end = pos + max
			for end > pos && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == pos {
				end = pos + max
				for end < r.End && !utf8.RuneStart(text[end]) {
					end++
				}
			}
			next = end
		}

		for end > pos && isSpace(text[end-1]) {
			end--
		}
		out = append(out, types.Range{Start: pos, End: end})

		pos = next
		for pos < r.End && isSpace(text[pos]) {
			pos++
		}
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// ComputeChunkHash computes the SHA-256 hash for a chunk's content
func ComputeChunkHash(content string) [32]byte {
	return sha256.Sum256([]byte(content))
}

// EstimateTokenCount estimates the number of tokens in a string
func EstimateTokenCount(text string) int {
	return len(text) / TokensPerChar
}
