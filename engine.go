package beguile

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/GigiaJ/Beguile/internal/runtime"
	"github.com/GigiaJ/Beguile/internal/store"
)

// extractorVersion is bumped whenever extraction output changes shape, so
// an index built by an older binary is rebuilt instead of trusted.
const extractorVersion = "2"

// Engine maintains the workspace symbol index: file discovery, change
// detection, definition extraction and query access.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	logger     *slog.Logger
	scriptsDir string
	scriptsFS  fs.FS
	languages  map[string]bool // nil means all languages

	// affected accumulates files whose imported modules changed their
	// exported definitions during the last IndexFiles call.
	affected map[int64]bool

	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which dialects the Engine will index
// ("scheme", "r6rs", "r7rs").
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel extraction. When true (default), IndexFiles
// parses files in a worker pool and a single goroutine commits batches to
// SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithScriptsDir sets the directory Risor scripts are loaded from.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS loads Risor scripts from fsys instead of the scripts
// directory on disk.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithLogger sets the Engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine backed by a SQLite database at dbPath. The parent
// directory is created when missing.
func New(dbPath string, opts ...Option) (*Engine, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("beguile: create index dir: %w", err)
		}
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("beguile: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("beguile: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		logger:      slog.Default(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.logger)}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(s, e.scriptsDir, rtOpts...)

	if e.Outdated() {
		e.logger.Info("index built by another extractor version; rebuilding", "db", dbPath)
		if err := s.Reset(); err != nil {
			s.Close()
			return nil, fmt.Errorf("beguile: reset index: %w", err)
		}
		if err := s.SetMetadata("extractor_version", extractorVersion); err != nil {
			s.Close()
			return nil, fmt.Errorf("beguile: %w", err)
		}
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Runtime returns the script runtime bound to this Engine's index.
func (e *Engine) Runtime() *runtime.Runtime {
	return e.runtime
}

// Outdated reports whether the index was built by a different extractor
// version. A database with no recorded version counts as outdated.
func (e *Engine) Outdated() bool {
	stored, err := e.store.GetMetadata("extractor_version")
	if err != nil || stored == "" {
		return true
	}
	return stored != extractorVersion
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// uses a worker pool for concurrent extraction with batched SQLite writes.
// Otherwise falls back to the serial path.
//
// For each file:
//  1. Detect the dialect from the extension
//  2. Skip unsupported or filtered-out dialects
//  3. Skip unchanged files (same content hash)
//  4. Capture old exported definitions
//  5. Delete stale data, insert the file record
//  6. Parse and extract definitions, imports and the module name
//  7. Commit, then mark dependents of changed modules as affected
//
// Errors on individual files are collected; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	e.affected = make(map[int64]bool)
	if e.useParallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.indexFile(path); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) indexFile(path string) error {
	item, skip, err := e.prepareFile(path)
	if err != nil || skip {
		return err
	}
	if err := extractFile(item); err != nil {
		return err
	}
	return e.commit(item)
}

// commit writes an extracted batch and records which dependents are
// affected by changes to the file's exported definitions.
func (e *Engine) commit(item workItem) error {
	if err := e.store.CommitBatch(item.fileID, item.batch); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	newSymbols, err := e.captureSymbols(item.fileID)
	if err != nil {
		return fmt.Errorf("capture new symbols: %w", err)
	}
	for _, fid := range e.dependentsOfChange(item, newSymbols) {
		e.affected[fid] = true
	}
	return nil
}

// capturedSymbol holds an exported definition's identity and hash.
type capturedSymbol struct {
	Name          string
	Kind          string
	SignatureHash string
}

// captureSymbols captures the exported definitions of a file.
func (e *Engine) captureSymbols(fileID int64) ([]capturedSymbol, error) {
	syms, err := e.store.SymbolsByFile(fileID)
	if err != nil {
		return nil, err
	}
	var captured []capturedSymbol
	for _, sym := range syms {
		if !sym.Exported {
			continue
		}
		captured = append(captured, capturedSymbol{
			Name:          sym.Name,
			Kind:          sym.Kind,
			SignatureHash: store.ComputeSignatureHash(sym.Name, sym.Kind, sym.Signature, sym.Exported),
		})
	}
	sort.Slice(captured, func(i, j int) bool { return captured[i].Name < captured[j].Name })
	return captured, nil
}

// dependentsOfChange returns the files importing the committed file's
// module when its exported definitions were added, removed or changed.
func (e *Engine) dependentsOfChange(item workItem, newSyms []capturedSymbol) []int64 {
	module := item.batch.Module
	if module == "" {
		module = item.oldModule
	}
	if module == "" || sameSymbols(item.oldSymbols, newSyms) {
		return nil
	}
	ids, err := e.store.FilesImportingModule(module)
	if err != nil {
		e.logger.Warn("dependents lookup failed", "module", module, "error", err)
		return nil
	}
	out := ids[:0]
	for _, id := range ids {
		if id != item.fileID {
			out = append(out, id)
		}
	}
	return out
}

func sameSymbols(a, b []capturedSymbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Affected returns the files whose imported modules changed their exported
// definitions during the last IndexFiles call, sorted by path.
func (e *Engine) Affected() ([]*File, error) {
	ids := make([]int64, 0, len(e.affected))
	for id := range e.affected {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return e.store.FilesByIDs(ids)
}

// RemoveFile drops a file and everything extracted from it. Unknown paths
// are ignored.
func (e *Engine) RemoveFile(path string) error {
	f, err := e.store.FileByPath(path)
	if err != nil {
		return fmt.Errorf("beguile: remove %s: %w", path, err)
	}
	if f == nil {
		return nil
	}
	if err := e.store.DeleteFile(f.ID); err != nil {
		return fmt.Errorf("beguile: remove %s: %w", path, err)
	}
	return nil
}

// skipDirs are excluded from directory walks.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"_build":       true,
}

// IndexDirectory indexes every Scheme file under root and drops indexed
// files under root that no longer exist. If root is inside a git
// repository, uses git ls-files to respect .gitignore; otherwise walks the
// filesystem, skipping hidden directories.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("beguile: %w", err)
	}
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git listing unavailable; walking", "root", root, "error", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	if err := e.pruneMissing(root, paths); err != nil {
		return err
	}
	return e.IndexFiles(ctx, paths)
}

// pruneMissing removes index entries under root that are not in present.
func (e *Engine) pruneMissing(root string, present []string) error {
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("beguile: list indexed files: %w", err)
	}
	prefix := root + string(filepath.Separator)
	for _, f := range files {
		if !strings.HasPrefix(f.Path, prefix) || keep[f.Path] {
			continue
		}
		if err := e.store.DeleteFile(f.ID); err != nil {
			return fmt.Errorf("beguile: prune %s: %w", f.Path, err)
		}
		e.logger.Debug("pruned missing file", "path", f.Path)
	}
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported dialects.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := runtime.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := runtime.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
