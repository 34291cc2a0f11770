// Package paredit computes structural edits over a syntax tree.
//
// Every operation is a pure function of a tree and a selection. It returns
// the edits to apply, as one batch against the tree's text, and the
// selection to show afterwards. The caller must reparse before computing
// the next operation.
package paredit

import (
	"fmt"

	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
)

// Result is the outcome of a structural operation. Edits refer to offsets
// in the original text; Selection refers to offsets after the edits.
type Result struct {
	Edits     []textedit.Edit     `json:"edits"`
	Selection textedit.Selection `json:"selection"`
}

// Op names a structural operation.
type Op string

const (
	OpForwardSexp        Op = "forwardSexp"
	OpBackwardSexp       Op = "backwardSexp"
	OpSelectForwardSexp  Op = "selectForwardSexp"
	OpSelectBackwardSexp Op = "selectBackwardSexp"
	OpSlurpForward       Op = "slurpForward"
	OpBarfForward        Op = "barfForward"
	OpWrap               Op = "wrap"
	OpSplice             Op = "splice"
)

// Ops lists every operation in a stable order.
var Ops = []Op{
	OpForwardSexp, OpBackwardSexp, OpSelectForwardSexp, OpSelectBackwardSexp,
	OpSlurpForward, OpBarfForward, OpWrap, OpSplice,
}

var handlers = map[Op]func(*syntax.Tree, textedit.Selection) (Result, bool){
	OpForwardSexp:        ForwardSexp,
	OpBackwardSexp:       BackwardSexp,
	OpSelectForwardSexp:  SelectForwardSexp,
	OpSelectBackwardSexp: SelectBackwardSexp,
	OpSlurpForward:       SlurpForward,
	OpBarfForward:        BarfForward,
	OpWrap:               Wrap,
	OpSplice:             Splice,
}

// ParseOp validates an operation name.
func ParseOp(name string) (Op, error) {
	op := Op(name)
	if _, ok := handlers[op]; !ok {
		return "", fmt.Errorf("paredit: unknown operation %q", name)
	}
	return op, nil
}

// Do runs op. The boolean is false when the operation does not apply at
// the selection.
func Do(op Op, t *syntax.Tree, sel textedit.Selection) (Result, bool) {
	h, ok := handlers[op]
	if !ok {
		return Result{}, false
	}
	return h(t, sel)
}

// enclosing returns the terminated list around offset.
func enclosing(t *syntax.Tree, offset int) (syntax.NodeID, bool) {
	id := syntax.EnclosingList(t, offset)
	if id == syntax.NoNode || !t.Terminated(id) {
		return syntax.NoNode, false
	}
	return id, true
}

func isContainer(k syntax.Kind) bool {
	return k == syntax.List || k == syntax.Root
}
