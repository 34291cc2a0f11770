package lsp

import (
	lsp "github.com/sourcegraph/go-lsp"

	"github.com/GigiaJ/Beguile"
	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
)

func fromLSPPosition(p lsp.Position) beguile.Position {
	return beguile.Position{Line: p.Line, Character: p.Character}
}

func fromLSPRange(r lsp.Range) beguile.Range {
	return beguile.Range{Start: fromLSPPosition(r.Start), End: fromLSPPosition(r.End)}
}

func toLSPPosition(li *syntax.LineIndex, offset int) lsp.Position {
	line, char := li.Position(offset)
	return lsp.Position{Line: line, Character: char}
}

// charRange is the range covering the one-byte delimiter at offset.
func charRange(li *syntax.LineIndex, offset int) lsp.Range {
	return lsp.Range{Start: toLSPPosition(li, offset), End: toLSPPosition(li, offset+1)}
}

// toLSPEdits converts byte-offset edits against text into LSP text edits.
// All ranges refer to text, as LSP requires.
func toLSPEdits(text string, edits []textedit.Edit) []lsp.TextEdit {
	li := syntax.NewLineIndex(text)
	out := make([]lsp.TextEdit, len(edits))
	for i, e := range edits {
		out[i] = lsp.TextEdit{
			Range:   lsp.Range{Start: toLSPPosition(li, e.Start), End: toLSPPosition(li, e.End)},
			NewText: e.NewText,
		}
	}
	return out
}

func toLSPSelection(li *syntax.LineIndex, sel textedit.Selection) selection {
	return selection{Anchor: toLSPPosition(li, sel.Anchor), Active: toLSPPosition(li, sel.Active)}
}
