package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GigiaJ/Beguile"
	"github.com/GigiaJ/Beguile/internal/config"
	"github.com/GigiaJ/Beguile/scripts"
)

var (
	flagDB     string
	flagFormat string
	flagConfig string
)

// Set by the root command before any subcommand runs.
var (
	settings *config.Config
	logger   *slog.Logger
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "beguile",
	Short:         "Structural editing, formatting and indexing for Scheme and Guile",
	Long:          "Beguile parses Scheme and Guile source into a lossless tree, applies paredit-style edits, re-indents code and indexes definitions across a project into SQLite.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return loadSettings()
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: index.db_path from the config, relative to the repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: nearest "+config.FileName+")")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
}

// validateFormat checks the --format flag.
func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("invalid format %q: must be json or text", format)
}

// loadSettings reads the config named by --config, or the nearest one
// above the working directory, and builds the logger from it.
func loadSettings() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	var cfg *config.Config
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, err = config.LoadFrom(cwd)
	}
	if err != nil {
		return err
	}
	cfg.Resolve(findRepoRoot(cwd))
	settings = cfg
	logger = cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return nil
}

var (
	flagForce      bool
	flagScriptsDir string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a project's definitions and imports",
	Long:  "Parses every Scheme source file under path (git-tracked files when path is in a repository) and writes definitions, exports and module imports to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load scripts from disk path instead of embedded")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(findRepoRoot(targetDir))

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	engine, err := openEngine(dbPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.IndexDirectory(context.Background(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	affected, err := engine.Affected()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s\n", targetDir, time.Since(start).Round(time.Millisecond))
	if len(affected) > 0 {
		paths := make([]string, len(affected))
		for i, f := range affected {
			paths[i] = f.Path
		}
		fmt.Fprintf(os.Stderr, "Dependents of changed exports: %s\n", strings.Join(paths, ", "))
	}
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// openEngine opens (creating if needed) the index at dbPath with the
// configured options.
func openEngine(dbPath string) (*beguile.Engine, error) {
	opts := []beguile.Option{
		beguile.WithLogger(logger),
		beguile.WithParallel(settings.Index.Parallel),
	}
	// Script source: --scripts-dir overrides embedded FS.
	if flagScriptsDir != "" {
		opts = append(opts, beguile.WithScriptsDir(flagScriptsDir))
	} else {
		opts = append(opts, beguile.WithScriptsFS(scripts.FS))
	}
	engine, err := beguile.New(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the
// config file. A relative --db, and the default, are taken against
// repoRoot.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	if settings != nil && settings.Path != "" && settings.Index.DBPath != "" {
		return settings.Index.DBPath
	}
	return filepath.Join(repoRoot, ".beguile", "index.db")
}

// errNoIndex is wrapped by openIndex when the database is missing.
var errNoIndex = errors.New("database not found")
