package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/GigiaJ/Beguile"
	"github.com/GigiaJ/Beguile/internal/backend"
	"github.com/GigiaJ/Beguile/internal/lsp"
)

var flagNoIndex bool

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the language server on stdin and stdout",
	Long:  "Speaks the Language Server Protocol over stdio. The Guile backend and the workspace index are used when available; without them hover, completion and definition fall back to the open document.",
	Args:  cobra.NoArgs,
	RunE:  runLSP,
}

func init() {
	lspCmd.Flags().BoolVar(&flagNoIndex, "no-index", false, "do not index the workspace")
	lspCmd.Flags().StringSliceVar(&flagRules, "rules", nil, "bundled indent rule sets to apply (guile, guix)")
	rootCmd.AddCommand(lspCmd)
}

func runLSP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmtOpts, err := formatterOptions(ctx, flagRules)
	if err != nil {
		return err
	}
	wsOpts := []beguile.WorkspaceOption{
		beguile.WithWorkspaceLogger(logger),
		beguile.WithFormatOptions(fmtOpts...),
	}
	var serverOpts []lsp.Option

	client, err := startBackend()
	switch {
	case err == nil:
		defer client.Close()
		wsOpts = append(wsOpts, beguile.WithBackend(client))
	case errors.Is(err, backend.ErrNotStarted):
		logger.Warn("running without a Guile backend", "error", err)
	default:
		return err
	}

	if !flagNoIndex {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		engine, err := openEngine(resolveDBPath(findRepoRoot(cwd)))
		if err != nil {
			logger.Warn("running without a workspace index", "error", err)
		} else {
			defer engine.Close()
			wsOpts = append(wsOpts, beguile.WithEngine(engine))
			serverOpts = append(serverOpts, lsp.WithEngine(engine))
		}
	}

	ws := beguile.NewWorkspace(wsOpts...)
	serverOpts = append(serverOpts, lsp.WithLogger(logger))
	logger.Info("lsp server starting")
	return lsp.Serve(ctx, lsp.Stdio(), ws, serverOpts...)
}
