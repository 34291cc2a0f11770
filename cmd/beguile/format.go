package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// stdout is where results go. Tests swap it.
var stdout io.Writer = os.Stdout

// outputResult writes a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// outputResultText renders result for humans.
func outputResultText(result CLIResult) error {
	w := stdout

	switch v := result.Results.(type) {
	case CLINode:
		formatTreeText(w, v, 0)
	case CLINodeAt:
		formatNodeAtText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case []CLILocation:
		formatLocationsText(w, v)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case CLIFileSymbols:
		formatFileSymbolsText(w, v)
	case []CLIImport:
		formatImportsText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case CLIEditResult:
		fmt.Fprint(w, v.Text)
		if !strings.HasSuffix(v.Text, "\n") {
			fmt.Fprintln(w)
		}
	case []CLIFormatResult:
		formatFormatResultsText(w, v)
	case []CLIDelimiter:
		formatDelimitersText(w, v)
	case CLIEvalResult:
		fmt.Fprintln(w, v.Output)
	case nil:
		// No output for nil results.
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		if shown := resultLen(result.Results); shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLILocation:
		return len(r)
	case []CLISymbol:
		return len(r)
	case []CLIImport:
		return len(r)
	case []CLIFile:
		return len(r)
	case []string:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// formatTreeText prints one node per line, indented by depth.
func formatTreeText(w io.Writer, n CLINode, depth int) {
	pad := strings.Repeat("  ", depth)
	switch {
	case n.Kind == "list" && !n.Terminated:
		fmt.Fprintf(w, "%s%s [%d,%d) unterminated\n", pad, n.Kind, n.Start, n.End)
	case n.Text != "":
		fmt.Fprintf(w, "%s%s [%d,%d) %q\n", pad, n.Kind, n.Start, n.End, n.Text)
	default:
		fmt.Fprintf(w, "%s%s [%d,%d)\n", pad, n.Kind, n.Start, n.End)
	}
	for _, c := range n.Children {
		formatTreeText(w, c, depth+1)
	}
}

func formatNodeAtText(w io.Writer, v CLINodeAt) {
	line := func(label string, n *CLINode) {
		if n == nil {
			fmt.Fprintf(w, "%s: -\n", label)
			return
		}
		fmt.Fprintf(w, "%s: %s [%d,%d)", label, n.Kind, n.Start, n.End)
		if n.Head != "" {
			fmt.Fprintf(w, " head=%s", n.Head)
		}
		fmt.Fprintln(w)
	}
	line("node", v.Node)
	line("enclosing", v.Enclosing)
	line("top-level", v.TopLevel)
	if v.Symbol != "" {
		fmt.Fprintf(w, "symbol: %s\n", v.Symbol)
	}
}

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tEXPORTED\tSIGNATURE\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%d\n",
			s.Name, s.Kind, s.Exported, s.Signature, s.Location.File, s.Location.StartLine)
	}
	tw.Flush()
}

func formatFileSymbolsText(w io.Writer, fs CLIFileSymbols) {
	if fs.Module != "" {
		fmt.Fprintf(w, "Module: %s\n", fs.Module)
	}
	if len(fs.Exports) > 0 {
		fmt.Fprintf(w, "Exports: %s\n", strings.Join(fs.Exports, " "))
	}
	if len(fs.Imports) > 0 {
		fmt.Fprintln(w, "Imports:")
		for _, imp := range fs.Imports {
			fmt.Fprintf(w, "  %s (%s)\n", imp.Module, imp.Kind)
		}
	}
	fmt.Fprintln(w)
	formatSymbolsText(w, fs.Definitions)
}

// formatImportsText formats CLIImport results as aligned columns.
func formatImportsText(w io.Writer, imports []CLIImport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tKIND\tFILE")
	for _, imp := range imports {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", imp.Module, imp.Kind, imp.FilePath)
	}
	tw.Flush()
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tMODULE\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", f.ID, f.Path, f.Module, f.LineCount)
	}
	tw.Flush()
}

func formatFormatResultsText(w io.Writer, results []CLIFormatResult) {
	for _, r := range results {
		switch {
		case r.Diff != "":
			fmt.Fprint(w, r.Diff)
		case r.Written:
			fmt.Fprintf(w, "formatted %s\n", r.File)
		case r.Changed:
			fmt.Fprintf(w, "%s needs formatting (%d edits)\n", r.File, r.Edits)
		}
	}
}

func formatDelimitersText(w io.Writer, delims []CLIDelimiter) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFSET\tCHAR\tDEPTH\tCOLOR")
	for _, d := range delims {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", d.Offset, d.Char, d.Depth, d.Color)
	}
	tw.Flush()
}
