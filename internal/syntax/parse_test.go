package syntax

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kinds returns the kinds of Root's direct children.
func kinds(t *Tree) []Kind {
	var out []Kind
	for _, c := range t.Children(RootID) {
		out = append(out, t.Node(c).Kind)
	}
	return out
}

// =============================================================================
// Tokens
// =============================================================================

func TestParse_Empty(t *testing.T) {
	t.Parallel()
	tree := Parse("")
	require.Len(t, tree.Nodes, 1)
	root := tree.Node(RootID)
	assert.Equal(t, Root, root.Kind)
	assert.Equal(t, 0, root.Start)
	assert.Equal(t, 0, root.End)
	assert.Equal(t, NoNode, root.Parent)
}

func TestParse_TopLevelKinds(t *testing.T) {
	t.Parallel()
	tree := Parse(`foo "bar" ; baz` + "\n(qux)")
	assert.Equal(t, []Kind{Atom, String, Comment, List}, kinds(tree))

	c := tree.Children(RootID)
	assert.Equal(t, "foo", tree.NodeText(c[0]))
	assert.Equal(t, `"bar"`, tree.NodeText(c[1]))
	assert.Equal(t, "; baz", tree.NodeText(c[2]))
	assert.Equal(t, "(qux)", tree.NodeText(c[3]))
}

func TestParse_CommentStopsAtCarriageReturn(t *testing.T) {
	t.Parallel()
	tree := Parse("; one\r\n; two")
	c := tree.Children(RootID)
	require.Len(t, c, 2)
	assert.Equal(t, "; one", tree.NodeText(c[0]))
	assert.Equal(t, "; two", tree.NodeText(c[1]))
}

func TestParse_StringEscapes(t *testing.T) {
	t.Parallel()
	tree := Parse(`"a \"quoted\" word" x`)
	c := tree.Children(RootID)
	require.Len(t, c, 2)
	assert.Equal(t, `"a \"quoted\" word"`, tree.NodeText(c[0]))
	assert.Equal(t, "x", tree.NodeText(c[1]))
}

func TestParse_UnclosedStringRunsToEnd(t *testing.T) {
	t.Parallel()
	tree := Parse(`(display "oops)`)
	list := tree.Children(RootID)[0]
	assert.Equal(t, -1, tree.Node(list).End)
	str := tree.Children(list)[1]
	assert.Equal(t, String, tree.Node(str).Kind)
	assert.Equal(t, len(tree.Text), tree.Node(str).End)
}

func TestParse_AtomDelimiters(t *testing.T) {
	t.Parallel()
	tree := Parse(`a(b)c"d"e;f`)
	var texts []string
	for _, c := range tree.Children(RootID) {
		texts = append(texts, tree.NodeText(c))
	}
	assert.Equal(t, []string{"a", "(b)", "c", `"d"`, "e", ";f"}, texts)
}

func TestParse_QuotePrefixes(t *testing.T) {
	t.Parallel()
	tree := Parse(`'(a b) 'sym #(1 2) ,@rest`)
	var texts []string
	for _, c := range tree.Children(RootID) {
		texts = append(texts, tree.NodeText(c))
	}
	assert.Equal(t, []string{"'", "(a b)", "'sym", "#", "(1 2)", ",@rest"}, texts)
}

func TestParse_UnicodeWhitespaceAndAtoms(t *testing.T) {
	t.Parallel()
	tree := Parse("(λ x)")
	list := tree.Children(RootID)[0]
	kids := tree.Children(list)
	require.Len(t, kids, 2)
	assert.Equal(t, "λ", tree.NodeText(kids[0]))
	assert.Equal(t, "x", tree.NodeText(kids[1]))
}

// =============================================================================
// Lists
// =============================================================================

func TestParse_NestedLists(t *testing.T) {
	t.Parallel()
	tree := Parse("(define (add a b) [+ a b])")
	outer := tree.Children(RootID)[0]
	n := tree.Node(outer)
	assert.Equal(t, List, n.Kind)
	assert.Equal(t, byte('('), n.Open)
	assert.Equal(t, byte(')'), n.Close)
	require.Len(t, n.Children, 3)

	body := n.Children[2]
	assert.Equal(t, byte('['), tree.Node(body).Open)
	assert.Equal(t, byte(']'), tree.Node(body).Close)
	assert.Equal(t, "[+ a b]", tree.NodeText(body))
	assert.Equal(t, outer, tree.Parent(body))
}

func TestParse_MismatchedCloserAccepted(t *testing.T) {
	t.Parallel()
	tree := Parse("(a]")
	list := tree.Children(RootID)[0]
	assert.Equal(t, 3, tree.Node(list).End)
	assert.Equal(t, byte(']'), tree.Node(list).Close)
	assert.False(t, tree.Unterminated())
}

func TestParse_StrayCloserAtRootSkipped(t *testing.T) {
	t.Parallel()
	tree := Parse(") (a) ]")
	require.Len(t, tree.Children(RootID), 1)
	assert.Equal(t, "(a)", tree.NodeText(tree.Children(RootID)[0]))
}

func TestParse_Unterminated(t *testing.T) {
	t.Parallel()
	tree := Parse("(foo (bar")
	outer := tree.Children(RootID)[0]
	inner := tree.Children(outer)[1]
	assert.Equal(t, -1, tree.Node(outer).End)
	assert.Equal(t, -1, tree.Node(inner).End)
	assert.Equal(t, byte(0), tree.Node(inner).Close)
	assert.True(t, tree.Unterminated())
	assert.Equal(t, "(bar", tree.NodeText(inner))
}

// =============================================================================
// Properties
// =============================================================================

var propertyInputs = []string{
	"",
	"(define (f x) (* x x))\n\n; comment\n(f 2)\n",
	"(let ((a 1) [b 2]) \"str (not a list)\" 'q `(,a ,@b))",
	"((((",
	"))))(a)",
	"(a (b (c) d) \"x\\\" ;y\" ; z\n e)",
	"#(1 2 3) #u8(1 2) #:key :kw 'λ",
	"(unterminated \"string",
}

// Root's children plus the whitespace-only gaps between them rebuild the
// text, except where stray closers sit in the gaps.
func TestParse_CoverageReconstructsText(t *testing.T) {
	t.Parallel()
	for _, in := range propertyInputs {
		tree := Parse(in)
		var b strings.Builder
		pos := 0
		for _, c := range tree.Children(RootID) {
			n := tree.Node(c)
			b.WriteString(in[pos:n.Start])
			b.WriteString(tree.NodeText(c))
			if n.End < 0 {
				pos = len(in)
			} else {
				pos = n.End
			}
		}
		b.WriteString(in[pos:])
		assert.Equal(t, in, b.String(), "input %q", in)
	}
}

func TestParse_StructuralInvariants(t *testing.T) {
	t.Parallel()
	for _, in := range propertyInputs {
		tree := Parse(in)
		for id := range tree.Nodes {
			n := tree.Node(NodeID(id))
			if n.Kind != List && n.Kind != Root {
				assert.Empty(t, n.Children, "leaf with children in %q", in)
			}
			prevEnd := n.Start
			if n.Kind == List {
				prevEnd = n.Start + 1
			}
			for _, c := range n.Children {
				cn := tree.Node(c)
				assert.Equal(t, NodeID(id), cn.Parent)
				assert.GreaterOrEqual(t, cn.Start, prevEnd, "overlap in %q", in)
				if n.End >= 0 && cn.End >= 0 {
					assert.LessOrEqual(t, cn.End, n.End, "escape in %q", in)
				}
				prevEnd = cn.End
				if cn.End < 0 {
					prevEnd = len(in)
				}
			}
		}
	}
}

// Terminated lists match an independent bracket count; each unmatched
// opener leaves one unterminated list.
func TestParse_BracketCountAgreement(t *testing.T) {
	t.Parallel()
	for _, in := range propertyInputs {
		tree := Parse(in)
		var terminated, unterminated int
		for i := range tree.Nodes {
			n := &tree.Nodes[i]
			if n.Kind != List {
				continue
			}
			if n.End < 0 {
				unterminated++
			} else {
				terminated++
			}
		}

		// Independent pass over code characters only.
		depth, pairs := 0, 0
		code := codeOnly(tree)
		for i := 0; i < len(code); i++ {
			switch code[i] {
			case '(', '[':
				depth++
			case ')', ']':
				if depth > 0 {
					depth--
					pairs++
				}
			}
		}
		assert.Equal(t, pairs, terminated, "input %q", in)
		assert.Equal(t, depth, unterminated, "input %q", in)
	}
}

// codeOnly blanks out strings and comments.
func codeOnly(tree *Tree) string {
	b := []byte(tree.Text)
	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		if n.Kind == String || n.Kind == Comment {
			for j := n.Start; j < n.End; j++ {
				b[j] = ' '
			}
		}
	}
	return string(b)
}
