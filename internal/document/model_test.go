package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semdoc/pkg/types"
)

func rangeOf(start int, content string) types.Range {
	return types.Range{Start: start, End: start + len(content)}
}

func TestSummary(t *testing.T) {
	p := Pending()
	assert.False(t, p.IsComputed())
	assert.Empty(t, p.Text())
	assert.Equal(t, "<pending>", p.String())

	c := Computed("done")
	assert.True(t, c.IsComputed())
	assert.Equal(t, "done", c.Text())
}

func TestNew(t *testing.T) {
	chunks := []Chunk{
		NewChunk(types.Range{Start: 0, End: 5}, "hello"),
		NewChunk(types.Range{Start: 7, End: 12}, "world"),
	}

	doc, err := New("file:///a.md", chunks)
	require.NoError(t, err)

	assert.Equal(t, "file:///a.md", doc.URL())
	assert.Equal(t, 2, doc.Len())
	assert.Equal(t, "world", doc.Chunk(1).Content())
	assert.Equal(t, types.Range{Start: 7, End: 12}, doc.Chunk(1).Range())
	assert.Equal(t, "hello\nworld", doc.Content())
	assert.False(t, doc.Filled())

	_, computed := doc.Summary()
	assert.False(t, computed)
	for _, ch := range doc.Chunks() {
		_, computed := ch.Summary()
		assert.False(t, computed)
		assert.NotNil(t, ch.Changes())
		assert.Empty(t, ch.Changes())
	}

	// The caller's slice is not retained
	chunks[0] = NewChunk(types.Range{Start: 0, End: 1}, "x")
	assert.Equal(t, "hello", doc.Chunk(0).Content())
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		chunks  []Chunk
		wantErr error
	}{
		{
			name:    "empty url",
			url:     "",
			wantErr: types.ErrEmptyURL,
		},
		{
			name:    "inverted range",
			url:     "u",
			chunks:  []Chunk{NewChunk(types.Range{Start: 5, End: 2}, "abc")},
			wantErr: types.ErrInvalidRange,
		},
		{
			name: "overlapping ranges",
			url:  "u",
			chunks: []Chunk{
				NewChunk(types.Range{Start: 0, End: 10}, "0123456789"),
				NewChunk(types.Range{Start: 5, End: 12}, "5678901"),
			},
			wantErr: types.ErrOverlappingRange,
		},
		{
			name: "out of order",
			url:  "u",
			chunks: []Chunk{
				NewChunk(types.Range{Start: 10, End: 12}, "ab"),
				NewChunk(types.Range{Start: 0, End: 2}, "cd"),
			},
			wantErr: types.ErrOverlappingRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.url, tt.chunks)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNew_AdjacentRangesAllowed(t *testing.T) {
	doc, err := New("u", []Chunk{
		NewChunk(types.Range{Start: 0, End: 3}, "abc"),
		NewChunk(types.Range{Start: 3, End: 6}, "def"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Len())
}

func TestNew_NoChunks(t *testing.T) {
	doc, err := New("u", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
	assert.Empty(t, doc.Content())
}
