package paredit

import (
	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
)

// ForwardSexp moves the cursor past the next expression.
func ForwardSexp(t *syntax.Tree, sel textedit.Selection) (Result, bool) {
	target, ok := forwardTarget(t, sel.Active)
	if !ok {
		return Result{}, false
	}
	return Result{Selection: textedit.Cursor(target)}, true
}

// BackwardSexp moves the cursor to the start of the previous expression.
func BackwardSexp(t *syntax.Tree, sel textedit.Selection) (Result, bool) {
	target, ok := backwardTarget(t, sel.Active)
	if !ok {
		return Result{}, false
	}
	return Result{Selection: textedit.Cursor(target)}, true
}

// SelectForwardSexp extends the selection past the next expression.
func SelectForwardSexp(t *syntax.Tree, sel textedit.Selection) (Result, bool) {
	target, ok := forwardTarget(t, sel.Active)
	if !ok {
		return Result{}, false
	}
	return Result{Selection: textedit.Selection{Anchor: sel.Anchor, Active: target}}, true
}

// SelectBackwardSexp extends the selection to the start of the previous
// expression.
func SelectBackwardSexp(t *syntax.Tree, sel textedit.Selection) (Result, bool) {
	target, ok := backwardTarget(t, sel.Active)
	if !ok {
		return Result{}, false
	}
	return Result{Selection: textedit.Selection{Anchor: sel.Anchor, Active: target}}, true
}

// forwardTarget returns the end of the expression following offset. A
// leaf under the cursor is finished first; a list whose opener is at the
// cursor is skipped whole; otherwise the next child starting at or after
// the cursor is skipped, or the cursor leaves the container.
func forwardTarget(t *syntax.Tree, offset int) (int, bool) {
	if _, ok := enclosing(t, offset); !ok {
		return 0, false
	}
	id := syntax.NodeAt(t, offset)
	n := t.Node(id)

	if !isContainer(n.Kind) && offset < n.End {
		return n.End, true
	}
	if n.Kind == syntax.List && offset == n.Start {
		return n.End, true
	}
	if offset == n.End && n.Parent != syntax.NoNode {
		id = n.Parent
		n = t.Node(id)
	}
	for _, c := range n.Children {
		cn := t.Node(c)
		if cn.Start >= offset {
			if cn.End < 0 {
				return 0, false
			}
			return cn.End, true
		}
	}
	if n.Kind == syntax.List {
		return n.End, true
	}
	return 0, false
}

// backwardTarget mirrors forwardTarget: climb while the cursor sits on a
// node's start, finish a leaf under the cursor, else jump to the start of
// the last child ending at or before the cursor, or the container's start.
func backwardTarget(t *syntax.Tree, offset int) (int, bool) {
	if _, ok := enclosing(t, offset); !ok {
		return 0, false
	}
	id := syntax.NodeAt(t, offset)
	for t.Node(id).Parent != syntax.NoNode && offset == t.Node(id).Start {
		id = t.Node(id).Parent
	}
	n := t.Node(id)

	if !isContainer(n.Kind) && offset > n.Start {
		return n.Start, true
	}
	for i := len(n.Children) - 1; i >= 0; i-- {
		cn := t.Node(n.Children[i])
		if cn.End >= 0 && cn.End <= offset {
			return cn.Start, true
		}
	}
	return n.Start, true
}
