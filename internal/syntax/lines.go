package syntax

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"
)

// LineIndex converts between byte offsets and (line, character) positions.
// Characters are counted in UTF-16 code units, as editors speaking LSP
// expect. "\n", "\r\n" and a lone "\r" all end a line.
type LineIndex struct {
	text   string
	starts []int
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (li *LineIndex) LineCount() int {
	return len(li.starts)
}

// Position returns the 0-based line and UTF-16 character of offset.
// Offsets are clamped to the text.
func (li *LineIndex) Position(offset int) (line, char int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.text) {
		offset = len(li.text)
	}
	line = sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	for i := li.starts[line]; i < offset; {
		r, size := utf8.DecodeRuneInString(li.text[i:])
		char += utf16Len(r)
		i += size
	}
	return line, char
}

// Offset returns the byte offset of a 0-based line and UTF-16 character.
// Positions past the end of a line clamp to the line's end; lines past the
// end of the text clamp to the text's end.
func (li *LineIndex) Offset(line, char int) int {
	if line < 0 {
		return 0
	}
	if line >= len(li.starts) {
		return len(li.text)
	}
	end := len(li.text)
	if line+1 < len(li.starts) {
		end = li.starts[line+1]
	}
	i := li.starts[line]
	for n := 0; i < end && n < char; {
		r, size := utf8.DecodeRuneInString(li.text[i:])
		if r == '\n' || r == '\r' {
			break
		}
		n += utf16Len(r)
		i += size
	}
	return i
}

// LineStart returns the offset at which line begins.
func (li *LineIndex) LineStart(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(li.starts) {
		return len(li.text)
	}
	return li.starts[line]
}

func utf16Len(r rune) int {
	if r == utf8.RuneError {
		return 1
	}
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
