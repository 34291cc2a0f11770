// Package runtime embeds a Risor VM for project scripts. Scripts see the
// Scheme syntax tree, indentation declarations and the workspace index
// through host functions.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/GigiaJ/Beguile/internal/indent"
	"github.com/GigiaJ/Beguile/internal/store"
)

// Runtime evaluates Risor scripts with syntax host functions and, when a
// Store is configured, read access to the index.
type Runtime struct {
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger sets the logger behind the log global.
func WithRuntimeLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime wired to the given Store and scripts
// directory. s may be nil, in which case the index functions are absent.
func NewRuntime(s *store.Store, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	_, err = r.eval(ctx, src, scriptPath, extraGlobals)
	return err
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	_, err := r.eval(ctx, source, "<inline>", extraGlobals)
	return err
}

// LoadIndentRules runs the rules script at scriptPath and returns the
// indentation styles it declared. Later declarations win.
func (r *Runtime) LoadIndentRules(ctx context.Context, scriptPath string) (map[string]indent.Style, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.IndentRulesFromSource(ctx, src)
}

// IndentRulesFromSource is LoadIndentRules for inline source.
func (r *Runtime) IndentRulesFromSource(ctx context.Context, source string) (map[string]indent.Style, error) {
	rules, err := r.eval(ctx, source, "<rules>", nil)
	if err != nil {
		return nil, err
	}
	return rules.snapshot(), nil
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (*ruleSet, error) {
	rules := newRuleSet()
	globals := r.buildGlobals(rules, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return rules, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(rules *ruleSet, extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse_src":     makeParseSrcFn(),
		"node_at":       makeNodeAtFn(),
		"context_stack": makeContextStackFn(),
		"local_symbols": makeLocalSymbolsFn(),
		"indent_body":   makeIndentFn("indent_body", rules, indent.StyleBody),
		"indent_align":  makeIndentFn("indent_align", rules, indent.StyleAlign),
		"indent_style":  makeIndentStyleFn(rules),
		"log":           mustProxy(&logObject{logger: r.logger.With("component", "script")}),
	}

	// Index access only exists when a Store is configured.
	if r.store != nil {
		globals["symbols_by_name"] = makeSymbolsByNameFn(r.store)
		globals["symbols_by_file"] = makeSymbolsByFileFn(r.store)
		globals["complete"] = makeCompleteFn(r.store)
		globals["files"] = makeFilesFn(r.store)
		globals["imports_by_file"] = makeImportsByFileFn(r.store)
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
