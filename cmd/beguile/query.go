package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GigiaJ/Beguile"
)

var (
	flagLimit  int
	flagOffset int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the workspace index",
	Long:  "Run queries against an indexed project. All line and column numbers are 0-based; columns count UTF-16 units.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")

	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(completeCmd)
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(fileSymbolsCmd)
	queryCmd.AddCommand(dependentsCmd)
	queryCmd.AddCommand(moduleCmd)
	queryCmd.AddCommand(depsCmd)
}

// --- Helpers ---

// openIndex opens the engine over an existing index found from the working
// directory.
func openIndex() (*beguile.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s (run 'beguile index' first)", errNoIndex, dbPath)
	}
	return openEngine(dbPath)
}

// paginate clamps the --limit/--offset window to n items.
func paginate(n int) (lo, hi int) {
	limit := flagLimit
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	lo = min(max(flagOffset, 0), n)
	hi = min(lo+limit, n)
	return lo, hi
}

// outputPage writes a window of items with the total count.
func outputPage[T any](command string, items []T) error {
	total := len(items)
	lo, hi := paginate(total)
	page := items[lo:hi]
	if page == nil {
		page = []T{}
	}
	return outputResult(CLIResult{Command: command, Results: page, TotalCount: &total})
}

func matchToCLI(m beguile.Match) CLISymbol {
	return CLISymbol{
		Name:      m.Name,
		Kind:      m.Kind,
		Signature: m.Signature,
		Exported:  m.Exported,
		Location:  CLILocation(m.Location),
	}
}

func matchesToCLI(ms []beguile.Match) []CLISymbol {
	out := make([]CLISymbol, len(ms))
	for i, m := range ms {
		out[i] = matchToCLI(m)
	}
	return out
}

func filesToCLI(files []*beguile.File) []CLIFile {
	out := make([]CLIFile, len(files))
	for i, f := range files {
		out[i] = CLIFile{ID: f.ID, Path: f.Path, Language: f.Language, Module: f.Module, LineCount: f.LineCount}
	}
	return out
}

// queryCommand wraps a query that produces a page of items from the index.
func queryCommand[T any](name string, run func(q *beguile.QueryBuilder, args []string) ([]T, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		engine, err := openIndex()
		if err != nil {
			return outputError(name, err)
		}
		defer engine.Close()
		items, err := run(engine.Query(), args)
		if err != nil {
			return outputError(name, err)
		}
		return outputPage(name, items)
	}
}

// --- Commands ---

var definitionCmd = &cobra.Command{
	Use:   "definition <name>",
	Short: "Find where a symbol is defined",
	Args:  cobra.ExactArgs(1),
	RunE: queryCommand("definition", func(q *beguile.QueryBuilder, args []string) ([]CLISymbol, error) {
		ms, err := q.Definitions(args[0])
		return matchesToCLI(ms), err
	}),
}

var completeCmd = &cobra.Command{
	Use:   "complete <prefix>",
	Short: "List definitions whose names start with a prefix",
	Args:  cobra.ExactArgs(1),
	RunE: queryCommand("complete", func(q *beguile.QueryBuilder, args []string) ([]CLISymbol, error) {
		ms, err := q.Complete(args[0], 0)
		return matchesToCLI(ms), err
	}),
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE: queryCommand("files", func(q *beguile.QueryBuilder, _ []string) ([]CLIFile, error) {
		files, err := q.Files()
		return filesToCLI(files), err
	}),
}

var fileSymbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "List the indexed definitions of a file",
	Args:  cobra.ExactArgs(1),
	RunE: queryCommand("symbols", func(q *beguile.QueryBuilder, args []string) ([]CLISymbol, error) {
		path, err := resolveFilePath(args[0])
		if err != nil {
			return nil, err
		}
		ms, err := q.SymbolsInFile(path)
		return matchesToCLI(ms), err
	}),
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <module>",
	Short: "List files that import a module, e.g. \"(ice-9 match)\"",
	Args:  cobra.ExactArgs(1),
	RunE: queryCommand("dependents", func(q *beguile.QueryBuilder, args []string) ([]CLIFile, error) {
		files, err := q.Dependents(args[0])
		return filesToCLI(files), err
	}),
}

var moduleCmd = &cobra.Command{
	Use:   "module <module>",
	Short: "List files that define a module",
	Args:  cobra.ExactArgs(1),
	RunE: queryCommand("module", func(q *beguile.QueryBuilder, args []string) ([]CLIFile, error) {
		files, err := q.ModuleFiles(args[0])
		return filesToCLI(files), err
	}),
}

var depsCmd = &cobra.Command{
	Use:   "deps <file>",
	Short: "List the modules a file imports",
	Args:  cobra.ExactArgs(1),
	RunE: queryCommand("deps", func(q *beguile.QueryBuilder, args []string) ([]CLIImport, error) {
		path, err := resolveFilePath(args[0])
		if err != nil {
			return nil, err
		}
		imps, err := q.Dependencies(path)
		out := make([]CLIImport, len(imps))
		for i, imp := range imps {
			out[i] = CLIImport{FilePath: path, Module: imp.Module, Kind: imp.Kind}
		}
		return out, err
	}),
}
