package paredit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
)

// cursorText splits "(foo |) bar" into text and the cursor offset.
func cursorText(t *testing.T, s string) (string, int) {
	t.Helper()
	i := strings.IndexByte(s, '|')
	require.GreaterOrEqual(t, i, 0, "no cursor marker in %q", s)
	return s[:i] + s[i+1:], i
}

// run applies op at the marked cursor and returns the new text with the
// resulting cursor marked.
func run(t *testing.T, op Op, s string) (string, bool) {
	t.Helper()
	text, off := cursorText(t, s)
	res, ok := Do(op, syntax.Parse(text), textedit.Cursor(off))
	if !ok {
		return s, false
	}
	out, err := textedit.Apply(text, res.Edits)
	require.NoError(t, err)
	a := res.Selection.Active
	require.True(t, a >= 0 && a <= len(out), "cursor %d outside %q", a, out)
	return out[:a] + "|" + out[a:], true
}

func TestNavigation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		op      Op
		in, out string
	}{
		{OpForwardSexp, "(f|oo bar)", "(foo| bar)"},
		{OpForwardSexp, "(foo| bar)", "(foo bar|)"},
		{OpForwardSexp, "(foo |(a b) c)", "(foo (a b)| c)"},
		{OpForwardSexp, "(foo (a b)| c)", "(foo (a b) c|)"},
		{OpForwardSexp, "(foo bar|)", "(foo bar)|"},
		{OpForwardSexp, "(a |\"s t\")", "(a \"s t\"|)"},
		{OpForwardSexp, "|(a b)", "(a b)|"},

		{OpBackwardSexp, "(foo ba|r)", "(foo |bar)"},
		{OpBackwardSexp, "(foo bar|)", "(foo |bar)"},
		{OpBackwardSexp, "(foo (a b) |c)", "(foo |(a b) c)"},
		{OpBackwardSexp, "(foo |bar)", "(|foo bar)"},
		{OpBackwardSexp, "(|foo bar)", "|(foo bar)"},
		{OpBackwardSexp, "(x (|a b))", "(x |(a b))"},
	}
	for _, tt := range tests {
		t.Run(string(tt.op)+" "+tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := run(t, tt.op, tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.out, got)
		})
	}
}

func TestNavigation_NeedsEnclosingList(t *testing.T) {
	t.Parallel()
	for _, op := range []Op{OpForwardSexp, OpBackwardSexp, OpSelectForwardSexp, OpSelectBackwardSexp} {
		_, ok := run(t, op, "foo| bar")
		assert.False(t, ok, op)
		_, ok = run(t, op, "(a) | (b)")
		assert.False(t, ok, op)
		_, ok = run(t, op, "(a (b| c")
		assert.False(t, ok, op)
	}
}

func TestSelectSexp_KeepsAnchor(t *testing.T) {
	t.Parallel()
	text := "(foo bar baz)"
	tree := syntax.Parse(text)

	res, ok := SelectForwardSexp(tree, textedit.Selection{Anchor: 1, Active: 4})
	require.True(t, ok)
	assert.Equal(t, textedit.Selection{Anchor: 1, Active: 8}, res.Selection)
	assert.Empty(t, res.Edits)

	res, ok = SelectBackwardSexp(tree, textedit.Selection{Anchor: 12, Active: 8})
	require.True(t, ok)
	assert.Equal(t, textedit.Selection{Anchor: 12, Active: 5}, res.Selection)
}

func TestSlurpForward(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in, out string
	}{
		{"scenario", "(foo |) bar", "(foo| bar)"},
		{"no gap", "(fo|o)bar", "(fo|o bar)"},
		{"list victim", "(a| b) (c d) e", "(a| b (c d)) e"},
		{"empty list", "(|) bar", "(|bar)"},
		{"brackets", "[a|] b", "[a| b]"},
		{"skips comment", "(a|) ; note\n b", "(a| ; note\n b)"},
		{"trailing comment", "(a| ; note\n) b", "(a| ; note\n b)"},
		{"nested", "(x (a|) b)", "(x (a| b))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := run(t, OpSlurpForward, tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.out, got)
		})
	}
}

func TestSlurpForward_NoOps(t *testing.T) {
	t.Parallel()
	for _, in := range []string{
		"(a|)",
		"(a|) ; only a comment",
		"foo| bar",
		"(b|) (c",
		"(a (b|",
	} {
		_, ok := run(t, OpSlurpForward, in)
		assert.False(t, ok, in)
	}
}

func TestBarfForward(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in, out string
	}{
		{"scenario", "(foo bar |)", "(foo |) bar"},
		{"tight", "(fo|o bar)", "(fo|o ) bar"},
		{"single child", "(a|)", "(|) a"},
		{"list child", "(a| (b c))", "(a| ) (b c)"},
		{"comment last", "(a| ; note\n)", "(a| ) ; note\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := run(t, OpBarfForward, tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.out, got)
		})
	}

	_, ok := run(t, OpBarfForward, "(|)")
	assert.False(t, ok)
}

func TestWrap(t *testing.T) {
	t.Parallel()
	got, ok := run(t, OpWrap, "(display fo|o)")
	require.True(t, ok)
	assert.Equal(t, "(display (fo|o))", got)

	got, ok = run(t, OpWrap, "top|")
	require.True(t, ok)
	assert.Equal(t, "(top|)", got)

	got, ok = run(t, OpWrap, "(a |)")
	require.True(t, ok)
	assert.Equal(t, "(a (|))", got)

	text := "(+ 1 2 3)"
	res, ok := Wrap(syntax.Parse(text), textedit.Selection{Anchor: 3, Active: 6})
	require.True(t, ok)
	out, err := textedit.Apply(text, res.Edits)
	require.NoError(t, err)
	assert.Equal(t, "(+ (1 2) 3)", out)
	assert.Equal(t, "1 2", out[res.Selection.Start():res.Selection.End()])
}

func TestSplice(t *testing.T) {
	t.Parallel()
	got, ok := run(t, OpSplice, "(foo (bar| baz) qux)")
	require.True(t, ok)
	assert.Equal(t, "(foo bar| baz qux)", got)

	got, ok = run(t, OpSplice, "[|]")
	require.True(t, ok)
	assert.Equal(t, "|", got)

	_, ok = run(t, OpSplice, "(foo (bar| baz)")
	assert.False(t, ok)
}

// apply runs op against text at offset and returns the new text.
func apply(t *testing.T, op Op, text string, offset int) string {
	t.Helper()
	res, ok := Do(op, syntax.Parse(text), textedit.Cursor(offset))
	require.True(t, ok, "%s on %q", op, text)
	out, err := textedit.Apply(text, res.Edits)
	require.NoError(t, err)
	return out
}

func TestSlurpBarfInverse(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		text   string
		offset int
	}{
		{"(foo ) bar", 2},
		{"(a b ) (c d)", 1},
		{"(x (a ) b) y", 4},
	} {
		slurped := apply(t, OpSlurpForward, tc.text, tc.offset)
		assert.Equal(t, tc.text, apply(t, OpBarfForward, slurped, tc.offset), "round trip of %q", tc.text)
	}
}

func TestWrapSpliceInverse(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		text   string
		offset int
	}{
		{"foo", 1},
		{"(display x)", 3},
		{"(a [b] c)", 8},
	} {
		wrapped := apply(t, OpWrap, tc.text, tc.offset)
		assert.Equal(t, tc.text, apply(t, OpSplice, wrapped, tc.offset+1), "round trip of %q", tc.text)
	}
}

func TestParseOp(t *testing.T) {
	t.Parallel()
	for _, op := range Ops {
		got, err := ParseOp(string(op))
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
	_, err := ParseOp("transpose")
	assert.Error(t, err)
}
