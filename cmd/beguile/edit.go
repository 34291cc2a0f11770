package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/GigiaJ/Beguile/internal/highlight"
	"github.com/GigiaJ/Beguile/internal/indent"
	"github.com/GigiaJ/Beguile/internal/paredit"
	"github.com/GigiaJ/Beguile/internal/runtime"
	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
	"github.com/GigiaJ/Beguile/scripts"
)

var (
	flagWrite  bool
	flagCheck  bool
	flagDiff   bool
	flagRules  []string
	flagAnchor int
	flagColor  string
)

func init() {
	formatCmd.Flags().BoolVarP(&flagWrite, "write", "w", false, "write the result back to the file")
	formatCmd.Flags().BoolVar(&flagCheck, "check", false, "exit non-zero when a file needs formatting")
	formatCmd.Flags().BoolVar(&flagDiff, "diff", false, "show a diff instead of the formatted text")
	formatCmd.Flags().StringSliceVar(&flagRules, "rules", nil, "bundled indent rule sets to apply (guile, guix)")

	editCmd.Flags().IntVar(&flagAnchor, "anchor", -1, "selection anchor offset (default: the cursor)")
	editCmd.Flags().BoolVarP(&flagWrite, "write", "w", false, "write the result back to the file")

	highlightCmd.Flags().StringVar(&flagColor, "color", "auto", "colour output: auto|always|never")

	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(highlightCmd)
}

// formatterOptions builds formatter options from the config, the config's
// rules script and the bundled rule sets named by --rules.
func formatterOptions(ctx context.Context, bundled []string) ([]indent.Option, error) {
	f := settings.Format
	opts := []indent.Option{
		indent.WithMaxWidth(f.MaxWidth),
		indent.WithBodyForms(f.BodyForms...),
		indent.WithAlignForms(f.AlignForms...),
	}
	rt := runtime.NewRuntime(nil, "", runtime.WithRuntimeFS(scripts.FS), runtime.WithRuntimeLogger(logger))
	for _, name := range bundled {
		rules, err := rt.LoadIndentRules(ctx, "indent/"+strings.TrimSuffix(name, ".risor")+".risor")
		if err != nil {
			return nil, fmt.Errorf("rule set %q: %w", name, err)
		}
		opts = append(opts, indent.WithRules(rules))
	}
	if f.RulesScript != "" {
		rules, err := runtime.NewRuntime(nil, "", runtime.WithRuntimeLogger(logger)).LoadIndentRules(ctx, f.RulesScript)
		if err != nil {
			return nil, err
		}
		opts = append(opts, indent.WithRules(rules))
	}
	return opts, nil
}

var formatCmd = &cobra.Command{
	Use:   "format <file|->...",
	Short: "Re-indent Scheme source",
	Long:  "Re-indents files using body and align styles. Without --write, --check or --diff the formatted text is printed. Unbalanced files are left alone.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFormat,
}

func runFormat(cmd *cobra.Command, args []string) error {
	opts, err := formatterOptions(cmd.Context(), flagRules)
	if err != nil {
		return outputError("format", err)
	}
	formatter := indent.New(opts...)
	// Plain text mode behaves like a filter and prints the formatted source.
	printText := flagFormat == "text" && !flagWrite && !flagCheck && !flagDiff

	var results []CLIFormatResult
	var dirty []string
	for _, arg := range args {
		path, text, err := readSource(arg)
		if err != nil {
			return outputError("format", err)
		}
		edits := formatter.Format(syntax.Parse(text))
		out, err := textedit.Apply(text, edits)
		if err != nil {
			return outputError("format", fmt.Errorf("%s: %w", path, err))
		}
		res := CLIFormatResult{File: path, Changed: out != text, Edits: len(edits)}
		if res.Changed {
			dirty = append(dirty, path)
		}

		switch {
		case flagDiff:
			res.Diff = unifiedDiff(path, text, out)
		case flagWrite && res.Changed && arg != "-":
			if err := writePreservingMode(path, out); err != nil {
				return outputError("format", err)
			}
			res.Written = true
		case printText:
			fmt.Fprint(stdout, out)
		}
		results = append(results, res)
	}

	if !printText {
		if err := outputResult(CLIResult{Command: "format", Results: results}); err != nil {
			return err
		}
	}
	if flagCheck && len(dirty) > 0 {
		errorHandled = true
		return fmt.Errorf("%d file(s) need formatting: %s", len(dirty), strings.Join(dirty, ", "))
	}
	return nil
}

func writePreservingMode(path, text string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), info.Mode().Perm())
}

var editCmd = &cobra.Command{
	Use:   "edit <op> <file|-> <offset>",
	Short: "Apply a structural edit at a cursor",
	Long: "Runs one paredit operation with the cursor at offset (and the selection anchor at --anchor) " +
		"and prints the resulting text and selection. Operations: " + opNames() + ".",
	Args: cobra.ExactArgs(3),
	RunE: runEdit,
}

func opNames() string {
	names := make([]string, len(paredit.Ops))
	for i, op := range paredit.Ops {
		names[i] = string(op)
	}
	return strings.Join(names, ", ")
}

func runEdit(cmd *cobra.Command, args []string) error {
	op, err := paredit.ParseOp(args[0])
	if err != nil {
		return outputError("edit", err)
	}
	path, text, err := readSource(args[1])
	if err != nil {
		return outputError("edit", err)
	}
	active, err := parseOffsetArg(args[2], text)
	if err != nil {
		return outputError("edit", err)
	}
	sel := textedit.Cursor(active)
	if flagAnchor >= 0 {
		if flagAnchor > len(text) {
			return outputError("edit", fmt.Errorf("invalid anchor %d: text is %d bytes", flagAnchor, len(text)))
		}
		sel.Anchor = flagAnchor
	}

	res := CLIEditResult{Op: string(op), Edits: []CLIEdit{}, Selection: CLISelection{Anchor: sel.Anchor, Active: sel.Active}, Text: text}
	if r, ok := paredit.Do(op, syntax.Parse(text), sel); ok {
		out, err := textedit.Apply(text, r.Edits)
		if err != nil {
			return outputError("edit", err)
		}
		res.Applied = true
		res.Text = out
		res.Selection = CLISelection{Anchor: r.Selection.Anchor, Active: r.Selection.Active}
		for _, e := range r.Edits {
			res.Edits = append(res.Edits, CLIEdit{Start: e.Start, End: e.End, NewText: e.NewText})
		}
	}
	if flagWrite && res.Applied && len(res.Edits) > 0 && args[1] != "-" {
		if err := writePreservingMode(path, res.Text); err != nil {
			return outputError("edit", err)
		}
	}
	return outputResult(CLIResult{Command: "edit", Results: res})
}

var highlightCmd = &cobra.Command{
	Use:   "highlight <file|->",
	Short: "Show delimiters coloured by nesting depth",
	Long:  "In text mode prints the source with rainbow delimiters; in JSON mode lists every delimiter with its depth and colour.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, text, err := readSource(args[0])
		if err != nil {
			return outputError("highlight", err)
		}
		t := syntax.Parse(text)
		if flagFormat == "text" {
			enabled, err := colorEnabled(flagColor, os.Stdout.Fd())
			if err != nil {
				return outputError("highlight", err)
			}
			return highlight.Render(stdout, t, enabled)
		}
		delims := []CLIDelimiter{}
		for _, d := range highlight.Rainbow(t) {
			delims = append(delims, CLIDelimiter{
				Offset: d.Offset,
				Char:   text[d.Offset : d.Offset+1],
				Depth:  d.Depth,
				Color:  highlight.Colors[d.Color()],
			})
		}
		return outputResult(CLIResult{Command: "highlight", Results: delims})
	},
}

// colorEnabled resolves --color. auto colours only terminals.
func colorEnabled(mode string, fd uintptr) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), nil
	}
	return false, fmt.Errorf("invalid color mode %q: must be auto, always or never", mode)
}
