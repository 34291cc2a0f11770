package syntax

import "strings"

// LocalDefinedSymbols returns the names bound by top-level define forms in
// text. Only direct children of Root are examined. Each name appears once;
// the order is unspecified.
func LocalDefinedSymbols(text string) []string {
	t := Parse(text)
	seen := make(map[string]bool)
	var out []string
	for _, c := range t.Nodes[RootID].Children {
		n := &t.Nodes[c]
		if n.Kind != List || len(n.Children) < 2 {
			continue
		}
		if !strings.HasPrefix(t.HeadName(c), "define") {
			continue
		}
		second := n.Children[1]
		var name string
		switch sn := &t.Nodes[second]; sn.Kind {
		case List:
			if len(sn.Children) == 0 {
				continue
			}
			name = t.NodeText(sn.Children[0])
		case Atom:
			name = t.NodeText(second)
		default:
			continue
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Definition kinds.
const (
	KindProcedure = "procedure"
	KindVariable  = "variable"
	KindSyntax    = "syntax"
	KindRecord    = "record"
	KindModule    = "module"
	KindOther     = "other"
)

// Definition is a top-level binding form.
type Definition struct {
	Name      string
	Kind      string
	Form      NodeID // the (define ...) list
	NameNode  NodeID
	Signature string
	Exported  bool
}

// Definitions returns every top-level define-family form in document order.
// Unlike LocalDefinedSymbols it descends through curried heads such as
// (define ((f a) b) ...) to find the bound name.
func Definitions(t *Tree) []Definition {
	var defs []Definition
	for _, c := range t.Nodes[RootID].Children {
		if !t.Terminated(c) {
			continue
		}
		head := t.HeadName(c)
		if !strings.HasPrefix(head, "define") {
			continue
		}
		kids := t.Nodes[c].Children
		if len(kids) < 2 {
			continue
		}
		target := kids[1]

		if head == "define-module" {
			if t.Nodes[target].Kind == List {
				defs = append(defs, Definition{
					Name:      collapseSpace(t.NodeText(target)),
					Kind:      KindModule,
					Form:      c,
					NameNode:  target,
					Signature: collapseSpace(t.NodeText(target)),
				})
			}
			continue
		}

		nameNode := target
		for t.Nodes[nameNode].Kind == List && len(t.Nodes[nameNode].Children) > 0 {
			nameNode = t.Nodes[nameNode].Children[0]
		}
		if t.Nodes[nameNode].Kind != Atom {
			continue
		}

		d := Definition{
			Name:     t.NodeText(nameNode),
			Kind:     definitionKind(head, t.Nodes[target].Kind == List),
			Form:     c,
			NameNode: nameNode,
			Exported: strings.HasSuffix(head, "-public"),
		}
		if t.Nodes[target].Kind == List {
			d.Signature = collapseSpace(t.NodeText(target))
		} else {
			d.Signature = d.Name
		}
		defs = append(defs, d)
	}
	return defs
}

func definitionKind(head string, listTarget bool) string {
	switch {
	case strings.HasPrefix(head, "define-syntax"), head == "define-macro":
		return KindSyntax
	case head == "define-record-type":
		return KindRecord
	case head == "define", head == "define*", head == "define-public", head == "define*-public",
		head == "define-inlinable":
		if listTarget {
			return KindProcedure
		}
		return KindVariable
	}
	return KindOther
}

// Import kinds recorded by ModuleImports.
const (
	ImportUseModules = "use-modules"
	ImportUseModule  = "use-module"
	ImportLibrary    = "import"
)

// ModuleImport is one module a file depends on.
type ModuleImport struct {
	Module string
	Kind   string
}

// ModuleImports returns the modules a file pulls in through (use-modules
// ...) forms, #:use-module clauses of define-module and R6RS/R7RS (import
// ...) forms, in document order.
func ModuleImports(t *Tree) []ModuleImport {
	var out []ModuleImport
	add := func(id NodeID, kind string) {
		if name := moduleName(t, id); name != "" {
			out = append(out, ModuleImport{Module: name, Kind: kind})
		}
	}
	for _, c := range t.Nodes[RootID].Children {
		if !t.Terminated(c) {
			continue
		}
		kids := t.Nodes[c].Children
		switch t.HeadName(c) {
		case "use-modules":
			for _, k := range kids[1:] {
				add(k, ImportUseModules)
			}
		case "import":
			for _, k := range kids[1:] {
				add(importSet(t, k), ImportLibrary)
			}
		case "define-module":
			for i := 2; i+1 < len(kids); i++ {
				if t.Nodes[kids[i]].Kind == Atom && t.NodeText(kids[i]) == "#:use-module" {
					add(kids[i+1], ImportUseModule)
				}
			}
		}
	}
	return out
}

func moduleName(t *Tree, id NodeID) string {
	n := &t.Nodes[id]
	if n.Kind != List || n.End < 0 {
		return ""
	}
	// ((ice-9 match) #:select (match)) names the inner list.
	if len(n.Children) > 0 && t.Nodes[n.Children[0]].Kind == List {
		return collapseSpace(t.NodeText(n.Children[0]))
	}
	return collapseSpace(t.NodeText(id))
}

// importSet unwraps (only (srfi :1) fold) style import sets to the library
// name they modify.
func importSet(t *Tree, id NodeID) NodeID {
	for t.Nodes[id].Kind == List && len(t.Nodes[id].Children) > 1 {
		switch t.HeadName(id) {
		case "only", "except", "prefix", "rename", "for":
			id = t.Nodes[id].Children[1]
		default:
			return id
		}
	}
	return id
}

// ModuleExports returns the names a file exports through #:export,
// #:export-syntax, #:replace and #:re-export clauses of define-module and
// top-level (export ...) forms.
func ModuleExports(t *Tree) []string {
	var out []string
	names := func(id NodeID) {
		if t.Nodes[id].Kind != List {
			return
		}
		for _, k := range t.Nodes[id].Children {
			switch t.Nodes[k].Kind {
			case Atom:
				out = append(out, t.NodeText(k))
			case List:
				// (old . new) renames export the new name.
				if kids := t.Nodes[k].Children; len(kids) == 3 && t.NodeText(kids[1]) == "." {
					out = append(out, t.NodeText(kids[2]))
				}
			}
		}
	}
	for _, c := range t.Nodes[RootID].Children {
		if !t.Terminated(c) {
			continue
		}
		kids := t.Nodes[c].Children
		switch t.HeadName(c) {
		case "define-module":
			for i := 2; i+1 < len(kids); i++ {
				switch t.NodeText(kids[i]) {
				case "#:export", "#:export-syntax", "#:replace", "#:re-export":
					names(kids[i+1])
				}
			}
		case "export", "export-syntax":
			for _, k := range kids[1:] {
				if t.Nodes[k].Kind == Atom {
					out = append(out, t.NodeText(k))
				}
			}
		}
	}
	return out
}

// collapseSpace joins the fields of s with single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
