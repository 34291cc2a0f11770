package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GigiaJ/Beguile/internal/analyzer"
	"github.com/GigiaJ/Beguile/internal/syntax"
)

func init() {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(symbolsCmd)
}

// readSource reads the file named by arg, or stdin for "-".
func readSource(arg string) (path, text string, err error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "<stdin>", string(data), nil
	}
	path, err = resolveFilePath(arg)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}
	return path, string(data), nil
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseOffsetArg parses a byte offset that must lie within text.
func parseOffsetArg(value string, text string) (int, error) {
	n, err := parseIntArg(value, "offset")
	if err != nil {
		return 0, err
	}
	if n > len(text) {
		return 0, fmt.Errorf("invalid offset %d: text is %d bytes", n, len(text))
	}
	return n, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	var n int
	if _, err := fmt.Sscan(value, &n); err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// nodeToCLI converts a node, and with deep set its descendants.
func nodeToCLI(t *syntax.Tree, id syntax.NodeID, deep bool) CLINode {
	n := t.Node(id)
	out := CLINode{Kind: n.Kind.String(), Start: n.Start, End: n.End}
	switch n.Kind {
	case syntax.List:
		out.Terminated = t.Terminated(id)
		out.Head = t.HeadName(id)
		if !out.Terminated {
			out.End = len(t.Text)
		}
	case syntax.Root:
	default:
		out.Text = t.NodeText(id)
	}
	if deep {
		for _, c := range n.Children {
			out.Children = append(out.Children, nodeToCLI(t, c, true))
		}
	}
	return out
}

func optionalNode(t *syntax.Tree, id syntax.NodeID) *CLINode {
	if id == syntax.NoNode {
		return nil
	}
	n := nodeToCLI(t, id, false)
	return &n
}

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Print the syntax tree of a file",
	Long:  "Parses the file and prints every node with its byte span. Unbalanced input still parses; unterminated lists are marked.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, text, err := readSource(args[0])
		if err != nil {
			return outputError("parse", err)
		}
		t := syntax.Parse(text)
		return outputResult(CLIResult{Command: "parse", Results: nodeToCLI(t, syntax.RootID, true)})
	},
}

var nodeCmd = &cobra.Command{
	Use:   "node <file|-> <offset>",
	Short: "Describe the node at a byte offset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, text, err := readSource(args[0])
		if err != nil {
			return outputError("node", err)
		}
		off, err := parseOffsetArg(args[1], text)
		if err != nil {
			return outputError("node", err)
		}
		t := syntax.Parse(text)
		res := CLINodeAt{
			Offset:    off,
			Node:      optionalNode(t, syntax.NodeAt(t, off)),
			Enclosing: optionalNode(t, syntax.EnclosingList(t, off)),
			TopLevel:  optionalNode(t, syntax.TopLevelForm(t, off)),
		}
		res.Symbol, _ = analyzer.SymbolAt(t, off)
		return outputResult(CLIResult{Command: "node", Results: res})
	},
}

var contextCmd = &cobra.Command{
	Use:   "context <file|-> <offset>",
	Short: "Print the operators of the lists around an offset, outermost first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, text, err := readSource(args[0])
		if err != nil {
			return outputError("context", err)
		}
		off, err := parseOffsetArg(args[1], text)
		if err != nil {
			return outputError("context", err)
		}
		stack := analyzer.ContextStack(syntax.Parse(text), off)
		if stack == nil {
			stack = []string{}
		}
		return outputResult(CLIResult{Command: "context", Results: stack})
	},
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file|->",
	Short: "List the definitions, imports and exports of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, text, err := readSource(args[0])
		if err != nil {
			return outputError("symbols", err)
		}
		return outputResult(CLIResult{Command: "symbols", Results: fileSymbols(path, text)})
	},
}

func fileSymbols(path, text string) CLIFileSymbols {
	t := syntax.Parse(text)
	lines := syntax.NewLineIndex(text)
	exports := syntax.ModuleExports(t)
	exported := make(map[string]bool, len(exports))
	for _, name := range exports {
		exported[name] = true
	}

	res := CLIFileSymbols{
		File:        path,
		Module:      analyzer.DetectModule(t),
		Definitions: []CLISymbol{},
		Names:       syntax.LocalDefinedSymbols(text),
		Imports:     []CLIImport{},
		Exports:     exports,
	}
	for _, d := range syntax.Definitions(t) {
		if d.Kind == syntax.KindModule {
			continue
		}
		form := t.Node(d.Form)
		end := form.End
		if end < 0 {
			end = len(text)
		}
		sl, sc := lines.Position(form.Start)
		el, ec := lines.Position(end)
		res.Definitions = append(res.Definitions, CLISymbol{
			Name:      d.Name,
			Kind:      d.Kind,
			Signature: d.Signature,
			Exported:  d.Exported || exported[d.Name],
			Location:  CLILocation{File: path, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec},
		})
	}
	for _, imp := range syntax.ModuleImports(t) {
		res.Imports = append(res.Imports, CLIImport{FilePath: path, Module: imp.Module, Kind: imp.Kind})
	}
	if res.Names == nil {
		res.Names = []string{}
	}
	if res.Exports == nil {
		res.Exports = []string{}
	}
	return res
}
