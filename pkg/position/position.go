// Package position converts between byte offsets and line/column pairs.
package position

import (
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// LineIndex maps byte offsets to zero based line/column pairs and back. Lines
// are split on '\n' only; a preceding '\r' stays part of the line it ends.
type LineIndex struct {
	text  string
	lines []int
}

func NewLineIndex(text string) *LineIndex {
	lines := make([]int, 1, strings.Count(text, "\n")+1)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &LineIndex{text: text, lines: lines}
}

func (me *LineIndex) Text() string {
	return me.text
}

func (me *LineIndex) LineCount() int {
	return len(me.lines)
}

// LineStart returns the offset of the first byte of line. Out of range lines are clamped.
func (me *LineIndex) LineStart(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(me.lines) {
		return len(me.text)
	}
	return me.lines[line]
}

// LineEnd returns the offset of the '\n' terminating line, or the end of the text.
func (me *LineIndex) LineEnd(line int) int {
	if line+1 < len(me.lines) && line >= 0 {
		return me.lines[line+1] - 1
	}
	return len(me.text)
}

// Line returns the text of line without its line terminator.
func (me *LineIndex) Line(line int) string {
	if line < 0 || line >= len(me.lines) {
		return ""
	}
	return strings.TrimSuffix(me.text[me.LineStart(line):me.LineEnd(line)], "\r")
}

func (me *LineIndex) OffsetToLineColumn(offset int) (line, col int) {
	if offset <= 0 {
		return 0, 0
	}
	if offset > len(me.text) {
		offset = len(me.text)
	}
	line = sort.Search(len(me.lines), func(i int) bool { return me.lines[i] > offset }) - 1
	return line, offset - me.lines[line]
}

// LineColumnToOffset converts a line/column pair back to an offset. Columns
// past the end of the line are clamped to the line end.
func (me *LineIndex) LineColumnToOffset(line, col int) int {
	if line < 0 {
		return 0
	}
	if line >= len(me.lines) {
		return len(me.text)
	}
	start := me.lines[line]
	if col < 0 {
		col = 0
	}
	if end := me.LineEnd(line); start+col > end {
		return end
	}
	return start + col
}

// UTF16Column converts a byte column on line to a column counted in UTF-16
// code units. Columns past the end of the line are clamped to the line end.
func (me *LineIndex) UTF16Column(line, col int) int {
	start := me.LineStart(line)
	end := min(start+max(col, 0), me.LineEnd(line))

	units := 0
	for _, r := range me.text[start:end] {
		units += utf16.RuneLen(r)
	}
	return units
}

// ByteColumn converts a column counted in UTF-16 code units on line back to a
// byte column. A column that splits a surrogate pair moves past the pair, and
// columns past the end of the line stay past it so LineColumnToOffset can clamp them.
func (me *LineIndex) ByteColumn(line, units int) int {
	start := me.LineStart(line)
	text := me.text[start:me.LineEnd(line)]

	col := 0
	for col < len(text) && units > 0 {
		r, size := utf8.DecodeRuneInString(text[col:])
		units -= utf16.RuneLen(r)
		col += size
	}
	return col + max(units, 0)
}
