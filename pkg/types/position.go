package types

import "errors"

var (
	// ErrInvalidRange is returned when a range ends before it starts or has a negative bound
	ErrInvalidRange = errors.New("invalid range")
	// ErrOverlappingRange is returned when sibling ranges overlap or are out of order
	ErrOverlappingRange = errors.New("overlapping or out-of-order range")
)

// Position represents a logical location in document text.
// Line and Character are zero-based; Character is a byte offset within the line.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Range is a half-open [Start, End) byte offset pair into a document's content
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the range
func (r Range) Len() int {
	return r.End - r.Start
}

// Validate checks that the range is well formed
func (r Range) Validate() error {
	if r.Start < 0 || r.End < r.Start {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps reports whether two half-open ranges share at least one offset
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// ValidateSequence checks that ranges are well formed, pairwise non-overlapping
// and strictly increasing in start offset.
func ValidateSequence(ranges []Range) error {
	for i, r := range ranges {
		if err := r.Validate(); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		prev := ranges[i-1]
		if r.Start < prev.End || r.Start <= prev.Start {
			return ErrOverlappingRange
		}
	}
	return nil
}
