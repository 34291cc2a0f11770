package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GigiaJ/Beguile"
	"github.com/GigiaJ/Beguile/internal/backend"
	"github.com/GigiaJ/Beguile/internal/textedit"
)

var (
	flagCode   string
	flagModule string
)

func init() {
	evalCmd.Flags().StringVar(&flagCode, "code", "", "evaluate this code instead of a form from a file")
	evalCmd.Flags().StringVar(&flagModule, "module", "", "module to evaluate --code in")
	evalCmd.Flags().IntVar(&flagAnchor, "anchor", -1, "evaluate the text between --anchor and offset")
	rootCmd.AddCommand(evalCmd)
}

// startBackend spawns the configured Guile backend.
func startBackend() (*backend.Client, error) {
	b := settings.Backend
	if b.Disabled {
		return nil, fmt.Errorf("%w: disabled in config", backend.ErrNotStarted)
	}
	return backend.Start(backend.Config{
		Command: b.Command,
		Args:    b.Args,
		Dir:     b.Dir,
		Timeout: b.Timeout,
	}, backend.WithLogger(logger))
}

var evalCmd = &cobra.Command{
	Use:   "eval [<file|-> <offset>]",
	Short: "Evaluate code in the Guile backend",
	Long:  "Evaluates --code, or the top-level form at offset in a file within the module the file declares.",
	Args: func(cmd *cobra.Command, args []string) error {
		if flagCode != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runEval,
}

func runEval(cmd *cobra.Command, args []string) error {
	client, err := startBackend()
	if err != nil {
		return outputError("eval", err)
	}
	defer client.Close()

	if flagCode != "" {
		out, err := client.Eval(cmd.Context(), flagCode, flagModule)
		if err != nil {
			return outputError("eval", err)
		}
		return outputResult(CLIResult{Command: "eval", Results: CLIEvalResult{Code: flagCode, Module: flagModule, Output: out}})
	}

	path, text, err := readSource(args[0])
	if err != nil {
		return outputError("eval", err)
	}
	off, err := parseOffsetArg(args[1], text)
	if err != nil {
		return outputError("eval", err)
	}
	sel := textedit.Cursor(off)
	if flagAnchor >= 0 {
		sel.Anchor = min(flagAnchor, len(text))
	}

	ws := beguile.NewWorkspace(beguile.WithBackend(client), beguile.WithWorkspaceLogger(logger))
	uri := beguile.PathToURI(path)
	ws.Open(uri, 1, text)
	res, err := ws.Eval(cmd.Context(), uri, sel)
	if errors.Is(err, beguile.ErrNothingToEval) {
		return outputError("eval", fmt.Errorf("no form at offset %d", off))
	}
	if err != nil {
		return outputError("eval", err)
	}
	return outputResult(CLIResult{Command: "eval", Results: CLIEvalResult(res)})
}
