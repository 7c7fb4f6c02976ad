// Package chunker divides plain text documents into paragraph chunks.
//
// A paragraph is a run of non-blank lines. Adjacent paragraphs are merged
// into one chunk while the merged span stays within the size limit, so
// short notes become a single chunk and long articles become a handful of
// topic-sized pieces.
//
// # Basic Usage
//
//	c := chunker.New(chunker.DefaultMaxChars)
//	doc, err := document.New(url, c.Chunk(text))
//
// # Ranges
//
// Every chunk records the half-open byte range it covers. Ranges are
// strictly increasing and never overlap; the blank lines between chunks
// belong to no chunk. For every chunk:
//
//	chunk.Content() == text[chunk.Range().Start:chunk.Range().End]
//
// # Oversized Paragraphs
//
// A paragraph longer than the limit is split at the last line break that
// fits, then at the last space, and as a last resort at a UTF-8 rune
// boundary. Pieces never split a multi-byte character.
//
// Token estimation uses a simple heuristic (chars/4).
package chunker
