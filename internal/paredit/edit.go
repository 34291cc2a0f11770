package paredit

import (
	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
)

// SlurpForward pulls the expression after the enclosing list into it:
//
//	(foo |) bar  =>  (foo | bar)
//
// Comments between the list and the next expression are pulled in along
// with it; a comment is never the one slurped, since a closer placed after
// it would be commented out.
func SlurpForward(t *syntax.Tree, sel textedit.Selection) (Result, bool) {
	list, ok := enclosing(t, sel.Active)
	if !ok {
		return Result{}, false
	}
	ln := t.Node(list)
	siblings := t.Children(ln.Parent)

	victim := syntax.NoNode
	crossesComment := false
	for _, s := range siblings[t.Index(list)+1:] {
		if t.Node(s).Kind == syntax.Comment {
			crossesComment = true
			continue
		}
		victim = s
		break
	}
	if victim == syntax.NoNode {
		return Result{}, false
	}
	vn := t.Node(victim)
	if vn.End < 0 {
		return Result{}, false
	}

	closeAt := ln.End - 1
	closer := string(ln.Close)
	var edits []textedit.Edit
	switch {
	case crossesComment:
		edits = append(edits, textedit.Delete(closeAt, ln.End))
	case len(ln.Children) == 0:
		// "( ) bar" becomes "(bar)".
		edits = append(edits, textedit.Delete(ln.Start+1, vn.Start))
	default:
		last := t.Node(ln.Children[len(ln.Children)-1])
		if last.Kind == syntax.Comment {
			edits = append(edits, textedit.Delete(closeAt, ln.End))
			break
		}
		gap := ""
		if ln.End == vn.Start {
			gap = " "
		}
		edits = append(edits, textedit.Edit{Start: last.End, End: ln.End, NewText: gap})
	}
	edits = append(edits, textedit.Insert(vn.End, closer))
	return result(edits, sel), true
}

// BarfForward pushes the last expression of the enclosing list out of it:
//
//	(foo bar |)  =>  (foo |) bar
func BarfForward(t *syntax.Tree, sel textedit.Selection) (Result, bool) {
	list, ok := enclosing(t, sel.Active)
	if !ok {
		return Result{}, false
	}
	ln := t.Node(list)
	if len(ln.Children) == 0 {
		return Result{}, false
	}
	last := t.Node(ln.Children[len(ln.Children)-1])
	closer := string(ln.Close)

	edits := []textedit.Edit{textedit.Insert(last.Start, closer+" ")}
	if last.Kind == syntax.Comment {
		// Keep the line break that ends the comment.
		edits = append(edits, textedit.Delete(ln.End-1, ln.End))
	} else {
		edits = append(edits, textedit.Delete(last.End, ln.End))
	}

	res := result(edits, sel)
	// A cursor that was on or after the ejected expression stays inside.
	if sel.Active >= last.Start {
		res.Selection = textedit.Cursor(last.Start)
	}
	return res, true
}

// Wrap encloses the selection, or the word at the cursor, in parentheses.
// With neither it inserts "()" and places the cursor between them. Wrap
// works on the text alone and needs no enclosing list.
func Wrap(t *syntax.Tree, sel textedit.Selection) (Result, bool) {
	if !sel.Empty() {
		start, end := sel.Start(), sel.End()
		if start < 0 || end > len(t.Text) {
			return Result{}, false
		}
		return Result{
			Edits: []textedit.Edit{textedit.Insert(start, "("), textedit.Insert(end, ")")},
			Selection: textedit.Selection{
				Anchor: sel.Anchor + 1,
				Active: sel.Active + 1,
			},
		}, true
	}

	if start, end, ok := syntax.WordAt(t.Text, sel.Active); ok {
		return Result{
			Edits:     []textedit.Edit{textedit.Insert(start, "("), textedit.Insert(end, ")")},
			Selection: textedit.Cursor(sel.Active + 1),
		}, true
	}
	if sel.Active < 0 || sel.Active > len(t.Text) {
		return Result{}, false
	}
	return Result{
		Edits:     []textedit.Edit{textedit.Insert(sel.Active, "()")},
		Selection: textedit.Cursor(sel.Active + 1),
	}, true
}

// Splice replaces the enclosing list with its contents:
//
//	(foo (bar| baz) qux)  =>  (foo bar| baz qux)
func Splice(t *syntax.Tree, sel textedit.Selection) (Result, bool) {
	list, ok := enclosing(t, sel.Active)
	if !ok {
		return Result{}, false
	}
	ln := t.Node(list)
	edits := []textedit.Edit{
		textedit.Delete(ln.Start, ln.Start+1),
		textedit.Delete(ln.End-1, ln.End),
	}
	return result(edits, sel), true
}

func result(edits []textedit.Edit, sel textedit.Selection) Result {
	return Result{
		Edits: edits,
		Selection: textedit.Selection{
			Anchor: textedit.Shift(sel.Anchor, edits),
			Active: textedit.Shift(sel.Active, edits),
		},
	}
}
