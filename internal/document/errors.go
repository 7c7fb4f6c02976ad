package document

import (
	"errors"
	"fmt"

	"github.com/dshills/semdoc/pkg/types"
)

// ErrEmptySummary is wrapped by a summarization FillError when a capability returns blank text
var ErrEmptySummary = errors.New("summarizer returned an empty summary")

// Stage names the capability that failed during fill or persistence
type Stage int

const (
	StageSummarization Stage = iota
	StageEmbedding
)

func (s Stage) String() string {
	switch s {
	case StageSummarization:
		return "summarization"
	case StageEmbedding:
		return "embedding"
	default:
		return "unknown"
	}
}

// FillError reports a capability failure for one document part.
// Chunk is the chunk index, or -1 when the document itself failed.
type FillError struct {
	Stage Stage
	URL   string
	Chunk int
	Err   error
}

func (e *FillError) Error() string {
	part := "document"
	if e.Chunk >= 0 {
		part = fmt.Sprintf("chunk %d", e.Chunk)
	}
	return fmt.Sprintf("%s of %s %s: %v", e.Stage, e.URL, part, e.Err)
}

func (e *FillError) Unwrap() error {
	return e.Err
}

// Is matches types.ErrSummarization or types.ErrEmbedding according to Stage
func (e *FillError) Is(target error) bool {
	switch target {
	case types.ErrSummarization:
		return e.Stage == StageSummarization
	case types.ErrEmbedding:
		return e.Stage == StageEmbedding
	}
	return false
}
