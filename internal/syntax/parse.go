package syntax

import (
	"unicode"
	"unicode/utf8"
)

// Parse builds the tree for text. It never fails: a list that is still open
// at the end of the text is left with End == -1, and a closing delimiter
// with nothing to close is skipped.
//
// Closers are not checked against the opener's type, so "(a]" parses as a
// terminated list.
func Parse(text string) *Tree {
	t := &Tree{
		Text:  text,
		Nodes: make([]Node, 1, 16+len(text)/4),
	}
	t.Nodes[0] = Node{Kind: Root, Start: 0, End: len(text), Parent: NoNode}

	stack := []NodeID{RootID}
	add := func(n Node) NodeID {
		cur := stack[len(stack)-1]
		n.Parent = cur
		id := NodeID(len(t.Nodes))
		t.Nodes = append(t.Nodes, n)
		t.Nodes[cur].Children = append(t.Nodes[cur].Children, id)
		return id
	}

	i := 0
	for i < len(text) {
		c := text[i]
		switch c {
		case ';':
			end := i + 1
			for end < len(text) && text[end] != '\n' && text[end] != '\r' {
				end++
			}
			add(Node{Kind: Comment, Start: i, End: end})
			i = end
		case '"':
			end := i + 1
			for end < len(text) {
				if text[end] == '"' && text[end-1] != '\\' {
					end++
					break
				}
				end++
			}
			add(Node{Kind: String, Start: i, End: end})
			i = end
		case '(', '[':
			id := add(Node{Kind: List, Start: i, End: -1, Open: c})
			stack = append(stack, id)
			i++
		case ')', ']':
			if len(stack) > 1 {
				cur := stack[len(stack)-1]
				t.Nodes[cur].End = i + 1
				t.Nodes[cur].Close = c
				stack = stack[:len(stack)-1]
			}
			i++
		default:
			r, size := utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) {
				i += size
				continue
			}
			end := i
			for end < len(text) {
				r, size := utf8.DecodeRuneInString(text[end:])
				if isDelimiter(r) {
					break
				}
				end += size
			}
			add(Node{Kind: Atom, Start: i, End: end})
			i = end
		}
	}
	return t
}

// isDelimiter reports whether r ends an atom.
func isDelimiter(r rune) bool {
	switch r {
	case '(', ')', '[', ']', '"', ';':
		return true
	}
	return unicode.IsSpace(r)
}

// IsAtomRune reports whether r can appear inside an atom.
func IsAtomRune(r rune) bool {
	return !isDelimiter(r)
}
