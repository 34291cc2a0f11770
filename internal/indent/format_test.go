package indent

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
)

func format(t *testing.T, f *Formatter, text string) string {
	t.Helper()
	out, err := textedit.Apply(text, f.Format(syntax.Parse(text)))
	require.NoError(t, err)
	return out
}

func TestFormat_MissingSpaces(t *testing.T) {
	t.Parallel()
	edits := New().Format(syntax.Parse("(define(add a b)(+ a b))"))
	assert.Equal(t, []textedit.Edit{
		textedit.Insert(7, " "),
		textedit.Insert(16, " "),
	}, edits)
}

func TestFormat_UnbalancedIsNoOp(t *testing.T) {
	t.Parallel()
	assert.Empty(t, New().Format(syntax.Parse("(foo (bar")))
	assert.Empty(t, New().Format(syntax.Parse("(define (f)\n      1")))
}

func TestFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "body forms",
			in:   "(define (f x)\n(let ((y 1))\n(+ x\ny)))",
			want: "(define (f x)\n  (let ((y 1))\n    (+ x\n       y)))",
		},
		{
			name: "align without first argument on head line",
			in:   "(foo\nbar\n      baz)",
			want: "(foo\n  bar\n  baz)",
		},
		{
			name: "data list aligns to first element",
			in:   "((a 1)\n      (b 2))",
			want: "((a 1)\n (b 2))",
		},
		{
			name: "keyword argument",
			in:   "(make-thing a\n#:key 1)",
			want: "(make-thing a\n  #:key 1)",
		},
		{
			name: "same-line spacing",
			in:   "(a    b\tc  )",
			want: "(a b c)",
		},
		{
			name: "root blank lines",
			in:   "\n\n(a)\n\n\n\n(b)   \n\n",
			want: "(a)\n\n(b)\n",
		},
		{
			name: "blank lines inside lists collapse",
			in:   "(define (f)\n\n\n  1)",
			want: "(define (f)\n  1)",
		},
		{
			name: "quote prefixes glue",
			in:   "(list ' (a b) ` (c) #(1 2) # (3))",
			want: "(list '(a b) `(c) #(1 2) # (3))",
		},
		{
			name: "quote does not merge atoms",
			in:   "(list ' a)",
			want: "(list ' a)",
		},
		{
			name: "glued list anchors at prefix",
			in:   "'(a\nb)",
			want: "'(a\n  b)",
		},
		{
			name: "comment before closer",
			in:   "(define (f)\n  1 ; one\n     )",
			want: "(define (f)\n  1 ; one\n  )",
		},
		{
			name: "string interiors untouched",
			in:   "(display \"a   b\n   c\"   x)",
			want: "(display \"a   b\n   c\" x)",
		},
		{
			name: "crlf preserved",
			in:   "(define x\r\n    1)",
			want: "(define x\r\n  1)",
		},
		{
			name: "first child on a new line",
			in:   "(\n   foo)",
			want: "(\n foo)",
		},
		{
			name: "stray closers left alone",
			in:   ") (a)  )",
			want: ") (a)  )",
		},
		{
			name: "display width",
			in:   "(foo \"漢字\" (bar\nx))",
			want: "(foo \"漢字\" (bar\n" + strings.Repeat(" ", 14) + "x))",
		},
		{
			name: "empty list",
			in:   "( )",
			want: "()",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, format(t, New(), tt.in))
		})
	}
}

func TestFormat_SoftWrap(t *testing.T) {
	t.Parallel()
	in := "(foo aaaaaaaaaa bbbbbbbbbb (c\nd))"

	wrapped := format(t, New(WithMaxWidth(20)), in)
	assert.Equal(t, "(foo aaaaaaaaaa bbbbbbbbbb (c\n"+strings.Repeat(" ", 7)+"d))", wrapped)

	unwrapped := format(t, New(WithMaxWidth(0)), in)
	assert.Equal(t, "(foo aaaaaaaaaa bbbbbbbbbb (c\n"+strings.Repeat(" ", 29)+"d))", unwrapped)
}

func TestFormat_ConfiguredForms(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "(when x\n      y)", format(t, New(), "(when x\ny)"))
	assert.Equal(t, "(when x\n  y)", format(t, New(WithBodyForms("when")), "(when x\ny)"))
	assert.Equal(t, "(define-foo a\n            b)", format(t, New(WithAlignForms("define-foo")), "(define-foo a\nb)"))
	assert.Equal(t, "(let a\n     b)", format(t, New(WithRules(map[string]Style{"let": StyleAlign})), "(let a\nb)"))
}

var idempotenceInputs = []string{
	"(define(add a b)(+ a b))",
	"(define-module (app main)\n#:use-module (ice-9 match)\n      #:export (main))\n\n\n\n(define (main args)\n(match args\n((_ file) (display file))\n(_ (usage))))\n",
	"(let loop ((i 0)\n(acc '()))\n(if (< i 10)\n(loop (+ i 1) (cons i acc))\nacc))",
	"(list ' (a\nb) `(,x ,@ys) #u8(1 2) #vu8(3))",
	"(foo ; trailing\n bar ; another\n)",
	"(call-with-output-string\n(lambda (port)\n(display \"multi\nline\" port)))",
	"(foo aaaaaaaaaa bbbbbbbbbb cccccccccc dddddddddd eeeeeeeeee ffffffffff gggggggggg hhhhhhhhhh iiiiiiiiii (j\nk))",
	"\r\n(a\r\nb)\r\n\r\n\r\n(c)",
	") stray ] (a\n   b)",
	"",
	"   \n\n",
}

// Formatting twice yields no further edits, and only whitespace changes.
func TestFormat_Idempotent(t *testing.T) {
	t.Parallel()
	f := New(WithMaxWidth(40))
	for _, in := range idempotenceInputs {
		once := format(t, f, in)
		assert.Empty(t, f.Format(syntax.Parse(once)), "second pass over %q", once)
		assert.Equal(t, stripSpace(in), stripSpace(once), "non-whitespace change in %q", in)
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
