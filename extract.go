package beguile

import (
	"fmt"

	"github.com/GigiaJ/Beguile/internal/analyzer"
	"github.com/GigiaJ/Beguile/internal/store"
	"github.com/GigiaJ/Beguile/internal/syntax"
)

// extractFile parses one file and buffers its definitions, imports and
// module name into the item's batch.
func extractFile(item workItem) error {
	return extractInto(item.batch, item.fileID, item.content)
}

func extractInto(ds store.DataStore, fileID int64, text string) error {
	t := syntax.Parse(text)
	lines := syntax.NewLineIndex(text)
	exports := exportSet(syntax.ModuleExports(t))

	for _, d := range syntax.Definitions(t) {
		if d.Kind == syntax.KindModule {
			continue
		}
		form := t.Node(d.Form)
		startLine, startCol := lines.Position(form.Start)
		endLine, endCol := lines.Position(form.End)
		exported := d.Exported || exports[d.Name]
		sym := &store.Symbol{
			FileID:        fileID,
			Name:          d.Name,
			Kind:          d.Kind,
			Signature:     d.Signature,
			Exported:      exported,
			SignatureHash: store.ComputeSignatureHash(d.Name, d.Kind, d.Signature, exported),
			StartLine:     startLine,
			StartCol:      startCol,
			EndLine:       endLine,
			EndCol:        endCol,
		}
		if _, err := ds.InsertSymbol(sym); err != nil {
			return fmt.Errorf("symbol %s: %w", d.Name, err)
		}
	}

	for _, m := range syntax.ModuleImports(t) {
		if _, err := ds.InsertImport(&store.Import{FileID: fileID, Module: m.Module, Kind: m.Kind}); err != nil {
			return fmt.Errorf("import %s: %w", m.Module, err)
		}
	}

	if b, ok := ds.(*store.BatchedStore); ok {
		b.Module = analyzer.DetectModule(t)
	}
	return nil
}

func exportSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func lineCount(text string) int {
	return syntax.NewLineIndex(text).LineCount()
}
