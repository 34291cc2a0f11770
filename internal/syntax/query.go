package syntax

import "unicode/utf8"

// NodeAt returns the deepest node whose span contains offset
// (start <= offset < end), or NoNode when offset is outside the text.
// End is used literally: an offset equal to a node's end is not inside it,
// and an unterminated list (End == -1) never contains anything.
func NodeAt(t *Tree, offset int) NodeID {
	if !contains(&t.Nodes[RootID], offset) {
		return NoNode
	}
	cur := RootID
	for {
		next := NoNode
		for _, c := range t.Nodes[cur].Children {
			n := &t.Nodes[c]
			if n.Start > offset {
				break
			}
			if contains(n, offset) {
				next = c
				break
			}
		}
		if next == NoNode {
			return cur
		}
		cur = next
	}
}

func contains(n *Node, offset int) bool {
	return n.Start <= offset && offset < n.End
}

// EnclosingList returns the nearest List at or above the node at offset.
// NodeAt never descends into an unterminated list, so a non-NoNode result
// is always terminated.
func EnclosingList(t *Tree, offset int) NodeID {
	id := NodeAt(t, offset)
	for id != NoNode && t.Nodes[id].Kind != List {
		id = t.Nodes[id].Parent
	}
	return id
}

// TopLevelForm returns the direct child of Root that contains offset.
func TopLevelForm(t *Tree, offset int) NodeID {
	id := NodeAt(t, offset)
	if id == NoNode || id == RootID {
		return NoNode
	}
	for t.Nodes[id].Parent != RootID {
		id = t.Nodes[id].Parent
	}
	return id
}

// Ancestors returns the chain from id up to and including Root.
func Ancestors(t *Tree, id NodeID) []NodeID {
	var out []NodeID
	for id != NoNode {
		out = append(out, id)
		id = t.Nodes[id].Parent
	}
	return out
}

// WordAt returns the span of the run of atom characters touching offset.
// A cursor just after a word still selects it. ok is false when there is no
// word on either side of the cursor.
func WordAt(text string, offset int) (start, end int, ok bool) {
	if offset < 0 || offset > len(text) {
		return 0, 0, false
	}
	start, end = offset, offset
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !IsAtomRune(r) {
			break
		}
		start -= size
	}
	for end < len(text) {
		r, size := utf8.DecodeRuneInString(text[end:])
		if !IsAtomRune(r) {
			break
		}
		end += size
	}
	return start, end, start < end
}
