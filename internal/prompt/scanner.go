// Package prompt finds inline prompt markers in document text.
//
// A prompt is the rest of a line after the first occurrence of a marker
// prefix ("#$" by default). Prompts never span lines.
package prompt

import (
	"strings"

	"github.com/dshills/semdoc/pkg/types"
)

// DefaultPrefix marks an inline prompt
const DefaultPrefix = "#$"

// Match is a prompt found on one line. Position points just past the
// extracted text: Character is the prefix offset plus len(Text), in bytes.
type Match struct {
	Text     string         `json:"text"`
	Position types.Position `json:"position"`
}

// Scanner looks for a fixed prefix line by line. A Scanner is immutable and
// safe for concurrent use.
type Scanner struct {
	prefix string
}

// New returns a Scanner for prefix, or for DefaultPrefix when prefix is empty
func New(prefix string) *Scanner {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Scanner{prefix: prefix}
}

// Prefix returns the marker the scanner looks for
func (s *Scanner) Prefix() string {
	return s.prefix
}

// ScanLine returns the prompt on the given zero-based line. It reports false
// when the line does not exist or has no prefix.
func (s *Scanner) ScanLine(text string, line int) (Match, bool) {
	if line < 0 {
		return Match{}, false
	}
	lines := splitLines(text)
	if line >= len(lines) {
		return Match{}, false
	}
	return s.match(lines[line], line)
}

// ScanAll returns every prompt in text in line order. The result is empty,
// never nil, when there are no prompts.
func (s *Scanner) ScanAll(text string) []Match {
	matches := []Match{}
	for i, l := range splitLines(text) {
		if m, ok := s.match(l, i); ok {
			matches = append(matches, m)
		}
	}
	return matches
}

func (s *Scanner) match(line string, index int) (Match, bool) {
	idx := strings.Index(line, s.prefix)
	if idx < 0 {
		return Match{}, false
	}
	rest := line[idx+len(s.prefix):]
	return Match{
		Text: rest,
		Position: types.Position{
			Line:      uint32(index),
			Character: uint32(idx + len(rest)),
		},
	}, true
}

// splitLines splits on "\n", drops a trailing "\r" from each line and does
// not report an empty line after a final newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
