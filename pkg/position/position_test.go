package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walteh/gotmpls-hybrid/pkg/position"
)

func TestOffsetToLineColumn(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		offset   int
		wantLine int
		wantCol  int
	}{
		{
			name:     "empty text",
			text:     "",
			offset:   0,
			wantLine: 0,
			wantCol:  0,
		},
		{
			name:     "single line, middle position",
			text:     "Hello, World!",
			offset:   7,
			wantLine: 0,
			wantCol:  7,
		},
		{
			name:     "multiple lines, second line",
			text:     "Hello\nWorld\nTest zzz",
			offset:   8,
			wantLine: 1,
			wantCol:  2,
		},
		{
			name:     "offset on the newline itself",
			text:     "ab\ncd",
			offset:   2,
			wantLine: 0,
			wantCol:  2,
		},
		{
			name:     "offset right after newline",
			text:     "ab\ncd",
			offset:   3,
			wantLine: 1,
			wantCol:  0,
		},
		{
			name:     "past the end is clamped",
			text:     "ab\ncd",
			offset:   99,
			wantLine: 1,
			wantCol:  2,
		},
		{
			name:     "template example",
			text:     "{{- /*gotype: test.Person*/ -}}\nAddress:\n  Street: {{.Address.Street}}",
			offset:   51,
			wantLine: 2,
			wantCol:  10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := position.NewLineIndex(tt.text)
			gotLine, gotCol := idx.OffsetToLineColumn(tt.offset)
			assert.Equal(t, tt.wantLine, gotLine, "line")
			assert.Equal(t, tt.wantCol, gotCol, "column")
		})
	}
}

func TestLineColumnToOffset(t *testing.T) {
	idx := position.NewLineIndex("one\r\ntwo\nthree")

	assert.Equal(t, 3, idx.LineCount())
	assert.Equal(t, 0, idx.LineColumnToOffset(0, 0))
	assert.Equal(t, 5, idx.LineColumnToOffset(1, 0))
	assert.Equal(t, 7, idx.LineColumnToOffset(1, 2))
	assert.Equal(t, 8, idx.LineColumnToOffset(1, 50), "column is clamped to the line end")
	assert.Equal(t, 14, idx.LineColumnToOffset(7, 0), "line is clamped to the text end")
	assert.Equal(t, "one", idx.Line(0), "carriage return is stripped")
	assert.Equal(t, "three", idx.Line(2))
	assert.Equal(t, "", idx.Line(3))
}

func TestRoundTrip(t *testing.T) {
	text := "a\n\nbc\r\n{{ .X }}\n"
	idx := position.NewLineIndex(text)
	for off := 0; off <= len(text); off++ {
		line, col := idx.OffsetToLineColumn(off)
		assert.Equal(t, off, idx.LineColumnToOffset(line, col), "offset %d", off)
	}
}

func TestUTF16Columns(t *testing.T) {
	// é is two bytes and one unit, 😀 is four bytes and two units
	idx := position.NewLineIndex("<p>é {{ .X }}\n😀x")

	tests := []struct {
		name  string
		line  int
		bytes int
		units int
	}{
		{name: "ascii prefix", line: 0, bytes: 3, units: 3},
		{name: "after two byte rune", line: 0, bytes: 5, units: 4},
		{name: "template start", line: 0, bytes: 6, units: 5},
		{name: "after surrogate pair", line: 1, bytes: 4, units: 2},
		{name: "line end", line: 1, bytes: 5, units: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.units, idx.UTF16Column(tt.line, tt.bytes), "utf-16 column")
			assert.Equal(t, tt.bytes, idx.ByteColumn(tt.line, tt.units), "byte column")
		})
	}

	assert.Equal(t, 3, idx.UTF16Column(1, 99), "byte column is clamped to the line end")
	assert.Equal(t, 4, idx.ByteColumn(1, 1), "half a surrogate pair moves past the pair")
	assert.Equal(t, 20, idx.LineColumnToOffset(1, idx.ByteColumn(1, 10)), "past the line end still clamps")
}
