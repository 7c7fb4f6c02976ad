package document

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dshills/semdoc/internal/embedder"
)

var errCapability = errors.New("capability unavailable")

// stubSummarizer returns "summary of <text>" and counts calls per input
type stubSummarizer struct {
	mu     sync.Mutex
	calls  map[string]int
	failOn map[string]bool
	reply  func(text string) string
}

func newStubSummarizer() *stubSummarizer {
	return &stubSummarizer{calls: map[string]int{}, failOn: map[string]bool{}}
}

func (s *stubSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[text]++
	if s.failOn[text] {
		return "", errCapability
	}
	if s.reply != nil {
		return s.reply(text), nil
	}
	return "summary of " + text, nil
}

func (s *stubSummarizer) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *stubSummarizer) count(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[text]
}

func (s *stubSummarizer) setFail(text string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[text] = fail
}

// stubEmbedder returns vectors of a fixed dimension derived from text length
type stubEmbedder struct {
	mu        sync.Mutex
	dimension int
	calls     int
	failOn    map[string]bool
	override  map[string]int // text -> dimension
}

func newStubEmbedder(dimension int) *stubEmbedder {
	return &stubEmbedder{dimension: dimension, failOn: map[string]bool{}, override: map[string]int{}}
}

func (e *stubEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failOn[req.Text] {
		return nil, errCapability
	}
	dim := e.dimension
	if d, ok := e.override[req.Text]; ok {
		dim = d
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(len(req.Text)+i) / 100
	}
	return &embedder.Embedding{Vector: vec, Dimension: dim}, nil
}

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *stubEmbedder) setFail(text string, fail bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failOn[text] = fail
}

// buildDoc splits text on blank lines the way a paragraph chunker would
func buildDoc(url, text string) (*Document, error) {
	var chunks []Chunk
	offset := 0
	for _, part := range strings.Split(text, "\n\n") {
		chunks = append(chunks, NewChunk(rangeOf(offset, part), part))
		offset += len(part) + 2
	}
	return New(url, chunks)
}
