package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semdoc/pkg/types"
)

const sample = "\nnot a prompt\nNot a prompt\n#$ This is a prompt \nnotAprompt"

func TestScanLine(t *testing.T) {
	s := New(DefaultPrefix)

	m, ok := s.ScanLine(sample, 3)
	require.True(t, ok)
	assert.Equal(t, " This is a prompt ", m.Text)
	assert.Equal(t, types.Position{Line: 3, Character: 18}, m.Position)
}

func TestScanLine_PrefixMidLine(t *testing.T) {
	s := New("")

	m, ok := s.ScanLine("not a prompt #$ hello", 0)
	require.True(t, ok)
	assert.Equal(t, " hello", m.Text)
	assert.Equal(t, uint32(13+6), m.Position.Character)
}

func TestScanLine_NoMatch(t *testing.T) {
	s := New(DefaultPrefix)

	tests := []struct {
		name string
		text string
		line int
	}{
		{name: "line without prefix", text: sample, line: 1},
		{name: "empty first line", text: sample, line: 0},
		{name: "line past end", text: sample, line: 5},
		{name: "negative line", text: sample, line: -1},
		{name: "empty text", text: "", line: 0},
		{name: "trailing newline adds no line", text: "a\n", line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := s.ScanLine(tt.text, tt.line)
			assert.False(t, ok)
		})
	}
}

func TestScanLine_FirstOccurrence(t *testing.T) {
	m, ok := New(DefaultPrefix).ScanLine("a #$ one #$ two", 0)
	require.True(t, ok)
	assert.Equal(t, " one #$ two", m.Text)
	assert.Equal(t, uint32(2+11), m.Position.Character)
}

func TestScanLine_CRLF(t *testing.T) {
	m, ok := New(DefaultPrefix).ScanLine("x\r\n#$ go\r\n", 1)
	require.True(t, ok)
	assert.Equal(t, " go", m.Text)
	assert.Equal(t, uint32(3), m.Position.Character)
}

func TestScanLine_EmptyRemainder(t *testing.T) {
	m, ok := New(DefaultPrefix).ScanLine("text #$", 0)
	require.True(t, ok)
	assert.Empty(t, m.Text)
	assert.Equal(t, uint32(5), m.Position.Character)
}

func TestScanAll(t *testing.T) {
	text := "#$ first\nplain\n  #$second\n#$ third"
	got := New(DefaultPrefix).ScanAll(text)

	assert.Equal(t, []Match{
		{Text: " first", Position: types.Position{Line: 0, Character: 6}},
		{Text: "second", Position: types.Position{Line: 2, Character: 8}},
		{Text: " third", Position: types.Position{Line: 3, Character: 6}},
	}, got)
}

func TestScanAll_NoMatch(t *testing.T) {
	got := New(DefaultPrefix).ScanAll("nothing\nhere")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, New(DefaultPrefix).ScanAll(""))
}

func TestScanAll_CustomPrefix(t *testing.T) {
	s := New("//?")
	assert.Equal(t, "//?", s.Prefix())

	got := s.ScanAll("#$ ignored\ncode //? explain this")
	require.Len(t, got, 1)
	assert.Equal(t, " explain this", got[0].Text)
	assert.Equal(t, uint32(1), got[0].Position.Line)
}

func TestScanAll_AgreesWithScanLine(t *testing.T) {
	s := New(DefaultPrefix)
	for _, m := range s.ScanAll(sample) {
		single, ok := s.ScanLine(sample, int(m.Position.Line))
		require.True(t, ok)
		assert.Equal(t, m, single)
	}
}
