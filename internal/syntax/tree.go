// Package syntax parses Scheme source into a position-indexed tree and answers
// structural queries over it.
//
// Trees are arenas: every node lives in Tree.Nodes and refers to its parent
// and children by NodeID. A tree is immutable once Parse returns it.
package syntax

// Kind classifies a syntax node.
type Kind uint8

const (
	Root Kind = iota
	List
	String
	Comment
	Atom
)

func (k Kind) String() string {
	switch k {
	case Root:
		return "root"
	case List:
		return "list"
	case String:
		return "string"
	case Comment:
		return "comment"
	case Atom:
		return "atom"
	}
	return "unknown"
}

// NodeID indexes Tree.Nodes.
type NodeID int32

// NoNode is returned when a query has no match.
const NoNode NodeID = -1

// Node is a single element of the tree. Spans are half-open byte offsets
// into Tree.Text. An unterminated List has End == -1 and Close == 0.
type Node struct {
	Kind     Kind
	Start    int
	End      int
	Parent   NodeID
	Children []NodeID

	// Open and Close are the delimiters consumed by a List.
	Open  byte
	Close byte
}

// Tree is the result of parsing one text snapshot.
type Tree struct {
	Text  string
	Nodes []Node
}

// RootID is the ID of the Root node of every tree.
const RootID NodeID = 0

// Node returns the node with the given ID.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Parent returns the parent of id, or NoNode for Root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.Nodes[id].Parent
}

// Children returns the ordered children of id.
func (t *Tree) Children(id NodeID) []NodeID {
	return t.Nodes[id].Children
}

// Terminated reports whether id is a List with a closing delimiter.
func (t *Tree) Terminated(id NodeID) bool {
	n := &t.Nodes[id]
	return n.Kind == List && n.End >= 0
}

// NodeText returns the source text of id. For an unterminated List it
// returns everything from the opening delimiter to the end of the text.
func (t *Tree) NodeText(id NodeID) string {
	n := &t.Nodes[id]
	if n.End < 0 {
		return t.Text[n.Start:]
	}
	return t.Text[n.Start:n.End]
}

// Inner returns the text strictly between a terminated List's delimiters.
func (t *Tree) Inner(id NodeID) string {
	n := &t.Nodes[id]
	if n.Kind != List || n.End < 0 {
		return ""
	}
	return t.Text[n.Start+1 : n.End-1]
}

// Head returns the first child of a List when it is an Atom.
func (t *Tree) Head(id NodeID) (NodeID, bool) {
	n := &t.Nodes[id]
	if n.Kind != List || len(n.Children) == 0 {
		return NoNode, false
	}
	first := n.Children[0]
	if t.Nodes[first].Kind != Atom {
		return NoNode, false
	}
	return first, true
}

// HeadName returns the text of the head atom of a List, or "".
func (t *Tree) HeadName(id NodeID) string {
	h, ok := t.Head(id)
	if !ok {
		return ""
	}
	return t.NodeText(h)
}

// Index returns the position of id among its parent's children, or -1.
func (t *Tree) Index(id NodeID) int {
	p := t.Nodes[id].Parent
	if p == NoNode {
		return -1
	}
	for i, c := range t.Nodes[p].Children {
		if c == id {
			return i
		}
	}
	return -1
}

// Unterminated reports whether any List in the tree lacks a closer.
func (t *Tree) Unterminated() bool {
	for i := range t.Nodes {
		if t.Nodes[i].Kind == List && t.Nodes[i].End < 0 {
			return true
		}
	}
	return false
}

// Walk visits id and its descendants in document order. Returning false from
// fn skips the node's children.
func (t *Tree) Walk(id NodeID, fn func(id NodeID, depth int) bool) {
	t.walk(id, 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(NodeID, int) bool) {
	if !fn(id, depth) {
		return
	}
	for _, c := range t.Nodes[id].Children {
		t.walk(c, depth+1, fn)
	}
}
