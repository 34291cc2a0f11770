// Package analyzer derives cursor context from a syntax tree.
package analyzer

import "github.com/GigiaJ/Beguile/internal/syntax"

// ContextStack returns the head symbols of every list enclosing offset,
// outermost first. Lists whose first child is not an atom contribute
// nothing. The result is nil when offset is outside the text.
//
// Inside (package (inputs (list x))) with the cursor on x the stack is
// ["package" "inputs" "list"].
func ContextStack(t *syntax.Tree, offset int) []string {
	id := syntax.NodeAt(t, offset)
	var stack []string
	for id != syntax.NoNode {
		if t.Node(id).Kind == syntax.List {
			if head := t.HeadName(id); head != "" {
				stack = append(stack, head)
			}
		}
		id = t.Parent(id)
	}
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	return stack
}

// DetectModule returns the name of the first define-module form in the
// tree, such as "(gnu packages base)", or "" when there is none.
func DetectModule(t *syntax.Tree) string {
	for _, d := range syntax.Definitions(t) {
		if d.Kind == syntax.KindModule {
			return d.Name
		}
	}
	return ""
}

// SymbolAt returns the atom text touching offset, if any.
func SymbolAt(t *syntax.Tree, offset int) (string, bool) {
	start, end, ok := syntax.WordAt(t.Text, offset)
	if !ok {
		return "", false
	}
	return t.Text[start:end], true
}
