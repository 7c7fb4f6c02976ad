package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dshills/semdoc/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.Equal(t, DefaultMaxChars, New(0).MaxChars())
	assert.Equal(t, DefaultMaxChars, New(-5).MaxChars())
	assert.Equal(t, MinMaxChars, New(3).MaxChars())
	assert.Equal(t, 200, New(200).MaxChars())
}

func TestRanges(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []types.Range
	}{
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "only blank lines",
			text: "\n  \n\t\n",
			want: nil,
		},
		{
			name: "single paragraph",
			text: "hello world",
			want: []types.Range{{Start: 0, End: 11}},
		},
		{
			name: "paragraphs merged under limit",
			text: "alpha one\n\nbeta two\n\ngamma three",
			want: []types.Range{{Start: 0, End: 32}},
		},
		{
			name:     "paragraphs kept apart over limit",
			text:     "alpha one\n\nbeta two\n\ngamma three",
			maxChars: 16,
			want:     []types.Range{{Start: 0, End: 9}, {Start: 11, End: 19}, {Start: 21, End: 32}},
		},
		{
			name: "surrounding blank lines and indentation trimmed",
			text: "\n\n  \n  hello  \n\n",
			want: []types.Range{{Start: 7, End: 12}},
		},
		{
			name: "crlf line endings",
			text: "one\r\ntwo\r\n",
			want: []types.Range{{Start: 0, End: 8}},
		},
		{
			name:     "long paragraph split at spaces",
			text:     "aaaa bbbb cccc dddd",
			maxChars: 16,
			want:     []types.Range{{Start: 0, End: 14}, {Start: 15, End: 19}},
		},
		{
			name:     "long paragraph split at lines",
			text:     "line one\nline two\nline three",
			maxChars: 20,
			want:     []types.Range{{Start: 0, End: 17}, {Start: 18, End: 28}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.maxChars).Ranges(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunk_ContentMatchesRange(t *testing.T) {
	text := strings.Join([]string{
		"# Title",
		"",
		"The first paragraph talks about kangaroos and how they move across the outback.",
		"It spans two lines.",
		"",
		"",
		"    indented code block line",
		"",
		strings.Repeat("word ", 60),
		"",
		"Last line.",
	}, "\n")

	for _, max := range []int{16, 40, 100, DefaultMaxChars} {
		chunks := New(max).Chunk(text)
		require.NotEmpty(t, chunks)

		ranges := make([]types.Range, len(chunks))
		for i, ch := range chunks {
			r := ch.Range()
			ranges[i] = r
			assert.Equal(t, text[r.Start:r.End], ch.Content())
			assert.LessOrEqual(t, r.Len(), max, "chunk %d exceeds limit %d", i, max)
			assert.NotEmpty(t, strings.TrimSpace(ch.Content()))
			_, computed := ch.Summary()
			assert.False(t, computed)
		}
		assert.NoError(t, types.ValidateSequence(ranges))
	}
}

func TestChunk_MultibyteHardSplit(t *testing.T) {
	text := strings.Repeat("é", 40)

	chunks := New(MinMaxChars).Chunk(text)
	require.Len(t, chunks, 5)

	var rebuilt strings.Builder
	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Content()))
		assert.LessOrEqual(t, ch.Range().Len(), MinMaxChars)
		rebuilt.WriteString(ch.Content())
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunk_Empty(t *testing.T) {
	assert.Empty(t, New(0).Chunk(""))
}

func TestComputeChunkHash(t *testing.T) {
	assert.Equal(t, ComputeChunkHash("same"), ComputeChunkHash("same"))
	assert.NotEqual(t, ComputeChunkHash("same"), ComputeChunkHash("different"))
}

func TestEstimateTokenCount(t *testing.T) {
	assert.Equal(t, 0, EstimateTokenCount(""))
	assert.Equal(t, 2, EstimateTokenCount("12345678"))
}
