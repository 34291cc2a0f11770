package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineIndex_RoundTrip(t *testing.T) {
	t.Parallel()
	text := "(a)\r\n(b 😀 c)\n\r(d)"
	li := NewLineIndex(text)
	assert.Equal(t, 4, li.LineCount())

	tests := []struct {
		offset     int
		line, char int
	}{
		{0, 0, 0},
		{3, 0, 3},
		{5, 1, 0},
		{8, 1, 3},  // the emoji
		{12, 1, 5}, // after the emoji: 2 UTF-16 units
		{len("(a)\r\n(b 😀 c)\n"), 2, 0},
		{len(text), 3, 3},
	}
	for _, tt := range tests {
		line, char := li.Position(tt.offset)
		assert.Equal(t, tt.line, line, "line of %d", tt.offset)
		assert.Equal(t, tt.char, char, "char of %d", tt.offset)
		assert.Equal(t, tt.offset, li.Offset(tt.line, tt.char), "offset of %d:%d", tt.line, tt.char)
	}
}

func TestLineIndex_Clamping(t *testing.T) {
	t.Parallel()
	li := NewLineIndex("ab\ncd")
	assert.Equal(t, 2, li.Offset(0, 99))
	assert.Equal(t, 5, li.Offset(9, 0))
	assert.Equal(t, 0, li.Offset(-1, 0))

	line, char := li.Position(100)
	assert.Equal(t, 1, line)
	assert.Equal(t, 2, char)
	assert.Equal(t, 3, li.LineStart(1))
}
