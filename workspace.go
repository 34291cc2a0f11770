package beguile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/GigiaJ/Beguile/internal/analyzer"
	"github.com/GigiaJ/Beguile/internal/backend"
	"github.com/GigiaJ/Beguile/internal/indent"
	"github.com/GigiaJ/Beguile/internal/paredit"
	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
	"github.com/GigiaJ/Beguile/internal/treecache"
)

var (
	// ErrUnknownDocument is returned for URIs that were never opened.
	ErrUnknownDocument = errors.New("beguile: unknown document")
	// ErrNoBackend is returned by operations that need a Guile backend
	// when none is configured.
	ErrNoBackend = errors.New("beguile: no backend")
	// ErrNothingToEval is returned by Eval when the selection is blank and
	// the cursor is not on a top-level form.
	ErrNothingToEval = errors.New("beguile: nothing to evaluate")
)

// minCompletionPrefix is the shortest word that triggers completion.
const minCompletionPrefix = 2

// Backend answers the questions a parse cannot. *backend.Client
// implements it.
type Backend interface {
	IndentStyle(ctx context.Context, symbol string) (string, error)
	Completions(ctx context.Context, prefix string) ([]string, error)
	Docs(ctx context.Context, symbol, text string, stack []string) (string, bool, error)
	Definition(ctx context.Context, symbol, text string, stack []string) (backend.Location, bool, error)
	Eval(ctx context.Context, code, module string) (string, error)
}

var _ Backend = (*backend.Client)(nil)

// Workspace is an editing session: open documents, their trees, the
// formatter, and the optional backend and index used for semantic
// features. It is safe for concurrent use.
type Workspace struct {
	mu   sync.RWMutex
	docs map[string]*document

	trees      *treecache.Cache
	formatter  *indent.Formatter
	hints      *indent.Hints
	formatOpts []indent.Option
	backend    Backend
	engine     *Engine
	logger     *slog.Logger
	readFile   func(string) ([]byte, error)
}

type document struct {
	version int32
	text    string
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithBackend enables docs, completion, definition lookup, evaluation and
// learned indent styles.
func WithBackend(b Backend) WorkspaceOption {
	return func(w *Workspace) { w.backend = b }
}

// WithEngine adds the workspace index as a completion and definition source.
func WithEngine(e *Engine) WorkspaceOption {
	return func(w *Workspace) { w.engine = e }
}

// WithFormatOptions configures the indentation formatter.
func WithFormatOptions(opts ...indent.Option) WorkspaceOption {
	return func(w *Workspace) { w.formatOpts = append(w.formatOpts, opts...) }
}

// WithWorkspaceLogger sets the logger for degraded backend calls.
func WithWorkspaceLogger(l *slog.Logger) WorkspaceOption {
	return func(w *Workspace) { w.logger = l }
}

// WithFileReader replaces os.ReadFile for reading definition targets.
func WithFileReader(read func(string) ([]byte, error)) WorkspaceOption {
	return func(w *Workspace) { w.readFile = read }
}

// NewWorkspace creates an empty session.
func NewWorkspace(opts ...WorkspaceOption) *Workspace {
	w := &Workspace{
		docs:     make(map[string]*document),
		trees:    treecache.New(),
		logger:   slog.Default(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.backend != nil {
		w.hints = indent.NewHints(w.backend, indent.WithLogger(w.logger))
		w.formatOpts = append(w.formatOpts, indent.WithHints(w.hints))
	}
	w.formatter = indent.New(w.formatOpts...)
	return w
}

// Hints returns the learned indent styles, or nil without a backend.
func (w *Workspace) Hints() *indent.Hints {
	return w.hints
}

// Open starts tracking a document.
func (w *Workspace) Open(uri string, version int32, text string) *syntax.Tree {
	w.mu.Lock()
	w.docs[uri] = &document{version: version, text: text}
	w.mu.Unlock()
	return w.trees.Refresh(uri, text)
}

// Position is a 0-based line and UTF-16 character offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open span of Positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Change replaces Range with Text, or the whole document when Range is nil.
type Change struct {
	Range *Range
	Text  string
}

// Change applies edits to an open document in order, each against the
// result of the previous one.
func (w *Workspace) Change(uri string, version int32, changes ...Change) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.docs[uri]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	text := doc.text
	for _, c := range changes {
		if c.Range == nil {
			text = c.Text
			continue
		}
		li := syntax.NewLineIndex(text)
		start := li.Offset(c.Range.Start.Line, c.Range.Start.Character)
		end := li.Offset(c.Range.End.Line, c.Range.End.Character)
		if end < start {
			start, end = end, start
		}
		text = text[:start] + c.Text + text[end:]
	}
	doc.text, doc.version = text, version
	w.trees.Refresh(uri, text)
	return nil
}

// Close stops tracking a document.
func (w *Workspace) Close(uri string) {
	w.mu.Lock()
	delete(w.docs, uri)
	w.mu.Unlock()
	w.trees.Evict(uri)
}

// Text returns the current text and version of a document.
func (w *Workspace) Text(uri string) (string, int32, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[uri]
	if !ok {
		return "", 0, false
	}
	return doc.text, doc.version, true
}

// Tree returns the syntax tree of an open document.
func (w *Workspace) Tree(uri string) (*syntax.Tree, error) {
	text, _, ok := w.Text(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	return w.trees.Get(uri, text), nil
}

// Offset converts a position in an open document to a byte offset.
func (w *Workspace) Offset(uri string, pos Position) (int, error) {
	text, _, ok := w.Text(uri)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	return syntax.NewLineIndex(text).Offset(pos.Line, pos.Character), nil
}

// Position converts a byte offset in an open document to a position.
func (w *Workspace) Position(uri string, offset int) (Position, error) {
	text, _, ok := w.Text(uri)
	if !ok {
		return Position{}, fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	line, char := syntax.NewLineIndex(text).Position(offset)
	return Position{Line: line, Character: char}, nil
}

// Plan runs a structural operation without changing the document. Hosts
// that apply edits themselves (an editor over LSP) use Plan and report the
// result back through Change.
func (w *Workspace) Plan(op paredit.Op, uri string, sel textedit.Selection) (paredit.Result, bool, error) {
	t, err := w.Tree(uri)
	if err != nil {
		return paredit.Result{}, false, err
	}
	res, ok := paredit.Do(op, t, sel)
	return res, ok, nil
}

// Paredit runs a structural operation and applies its edits to the
// document. The boolean is false when the operation does not apply; the
// document is then unchanged.
func (w *Workspace) Paredit(op paredit.Op, uri string, sel textedit.Selection) (paredit.Result, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.docs[uri]
	if !ok {
		return paredit.Result{}, false, fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	t := w.trees.Get(uri, doc.text)
	res, ok := paredit.Do(op, t, sel)
	if !ok {
		return paredit.Result{}, false, nil
	}
	if len(res.Edits) > 0 {
		text, err := textedit.Apply(doc.text, res.Edits)
		if err != nil {
			return paredit.Result{}, false, fmt.Errorf("beguile: %s: %w", op, err)
		}
		doc.text = text
		doc.version++
		w.trees.Refresh(uri, text)
	}
	return res, true, nil
}

// Format returns the edits that re-indent a document. Styles learned from
// the backend apply to later calls; Format itself never waits.
func (w *Workspace) Format(uri string) ([]textedit.Edit, error) {
	t, err := w.Tree(uri)
	if err != nil {
		return nil, err
	}
	return w.formatter.Format(t), nil
}

// ContextStack returns the operators of the lists around offset,
// outermost first.
func (w *Workspace) ContextStack(uri string, offset int) ([]string, error) {
	t, err := w.Tree(uri)
	if err != nil {
		return nil, err
	}
	return analyzer.ContextStack(t, offset), nil
}

// Hover returns markdown describing the symbol at offset. Backend docs
// win; otherwise the signature of a local or indexed definition is shown.
func (w *Workspace) Hover(ctx context.Context, uri string, offset int) (string, bool, error) {
	t, err := w.Tree(uri)
	if err != nil {
		return "", false, err
	}
	word, ok := analyzer.SymbolAt(t, offset)
	if !ok {
		return "", false, nil
	}

	if w.backend != nil {
		doc, found, err := w.backend.Docs(ctx, word, t.Text, analyzer.ContextStack(t, offset))
		switch {
		case err != nil:
			w.logger.Warn("hover: backend docs failed", "symbol", word, "error", err)
		case found:
			return codeBlock(doc), true, nil
		}
	}

	for _, d := range syntax.Definitions(t) {
		if d.Name == word {
			return codeBlock(d.Signature), true, nil
		}
	}
	if w.engine != nil {
		matches, err := w.engine.Query().Definitions(word)
		if err != nil {
			w.logger.Warn("hover: index lookup failed", "symbol", word, "error", err)
		} else if len(matches) > 0 {
			m := matches[0]
			return codeBlock(m.Signature) + "\n\nDefined in `" + m.Location.File + "`", true, nil
		}
	}
	return "", false, nil
}

func codeBlock(s string) string {
	return "```scheme\n" + s + "\n```"
}

// CompletionItem is one completion candidate.
type CompletionItem struct {
	Label  string `json:"label"`
	Source string `json:"source"` // "local", "backend" or "index"
	Detail string `json:"detail,omitempty"`
}

// Complete returns candidates for the word at offset. Words shorter than
// two characters get nothing. Local definitions come first, then backend
// and index symbols; labels are unique.
func (w *Workspace) Complete(ctx context.Context, uri string, offset int) ([]CompletionItem, error) {
	t, err := w.Tree(uri)
	if err != nil {
		return nil, err
	}
	word, ok := analyzer.SymbolAt(t, offset)
	if !ok || utf8.RuneCountInString(word) < minCompletionPrefix {
		return nil, nil
	}

	var items []CompletionItem
	seen := make(map[string]bool)
	add := func(label, source, detail string) {
		if seen[label] {
			return
		}
		seen[label] = true
		items = append(items, CompletionItem{Label: label, Source: source, Detail: detail})
	}

	signatures := make(map[string]string)
	for _, d := range syntax.Definitions(t) {
		signatures[d.Name] = d.Signature
	}
	for _, name := range syntax.LocalDefinedSymbols(t.Text) {
		if strings.HasPrefix(name, word) {
			add(name, "local", signatures[name])
		}
	}
	if w.backend != nil {
		names, err := w.backend.Completions(ctx, word)
		if err != nil {
			w.logger.Warn("complete: backend failed", "prefix", word, "error", err)
		}
		for _, name := range names {
			add(name, "backend", "")
		}
	}
	if w.engine != nil {
		matches, err := w.engine.Query().Complete(word, 50)
		if err != nil {
			w.logger.Warn("complete: index lookup failed", "prefix", word, "error", err)
		}
		for _, m := range matches {
			add(m.Name, "index", m.Signature)
		}
	}
	return items, nil
}

// ResolveCompletion fetches documentation for a completion label. detail
// is the signature line of the docs with its markdown emphasis removed.
func (w *Workspace) ResolveCompletion(ctx context.Context, label string) (detail, doc string, err error) {
	if w.backend == nil {
		return "", "", nil
	}
	doc, found, err := w.backend.Docs(ctx, label, "", nil)
	if err != nil || !found {
		return "", "", err
	}
	first, _, _ := strings.Cut(doc, "\n")
	if strings.HasPrefix(first, "**") {
		detail = strings.ReplaceAll(first, "**", "")
	}
	return detail, doc, nil
}

// Definition locates the definition of the symbol at offset. The backend
// is asked first; when it knows only the file (line 0) the file is
// searched for the symbol. Without a backend answer, definitions in the
// document itself and then the workspace index are used.
func (w *Workspace) Definition(ctx context.Context, uri string, offset int) ([]Location, error) {
	t, err := w.Tree(uri)
	if err != nil {
		return nil, err
	}
	word, ok := analyzer.SymbolAt(t, offset)
	if !ok {
		return nil, nil
	}

	if w.backend != nil {
		loc, found, err := w.backend.Definition(ctx, word, t.Text, analyzer.ContextStack(t, offset))
		switch {
		case err != nil:
			w.logger.Warn("definition: backend failed", "symbol", word, "error", err)
		case found:
			return []Location{w.refine(loc, word)}, nil
		}
	}

	var locs []Location
	lines := syntax.NewLineIndex(t.Text)
	path := URIToPath(uri)
	for _, d := range syntax.Definitions(t) {
		if d.Name != word {
			continue
		}
		n := t.Node(d.NameNode)
		sl, sc := lines.Position(n.Start)
		el, ec := lines.Position(n.End)
		locs = append(locs, Location{File: path, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec})
	}
	if len(locs) > 0 || w.engine == nil {
		return locs, nil
	}

	matches, err := w.engine.Query().Definitions(word)
	if err != nil {
		return nil, fmt.Errorf("beguile: definition: %w", err)
	}
	for _, m := range matches {
		locs = append(locs, m.Location)
	}
	return locs, nil
}

// refine turns a backend location into a Location, searching the target
// file for word when the backend reported line 0.
func (w *Workspace) refine(loc backend.Location, word string) Location {
	out := Location{File: loc.File, StartLine: loc.Line, StartCol: loc.Column, EndLine: loc.Line, EndCol: loc.Column}
	if loc.Line != 0 {
		return out
	}
	data, err := w.readFile(loc.File)
	if err != nil {
		w.logger.Debug("definition: cannot read target", "file", loc.File, "error", err)
		return out
	}
	text := string(data)
	if i := findSymbol(text, word); i >= 0 {
		line, char := syntax.NewLineIndex(text).Position(i)
		out.StartLine, out.StartCol, out.EndLine, out.EndCol = line, char, line, char
	}
	return out
}

// findSymbol returns the offset of the first occurrence of word not
// embedded in a longer atom, or -1.
func findSymbol(text, word string) int {
	if word == "" {
		return -1
	}
	for from := 0; from <= len(text)-len(word); {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		before, _ := utf8.DecodeLastRuneInString(text[:i])
		after, _ := utf8.DecodeRuneInString(text[i+len(word):])
		if (i == 0 || !syntax.IsAtomRune(before)) && (i+len(word) == len(text) || !syntax.IsAtomRune(after)) {
			return i
		}
		from = i + 1
	}
	return -1
}

// EvalResult is what Eval sent and got back.
type EvalResult struct {
	Code   string `json:"code"`
	Module string `json:"module,omitempty"`
	Output string `json:"output"`
}

// Eval evaluates the selected text, or the top-level form under the
// cursor when the selection is blank, in the module the document declares.
func (w *Workspace) Eval(ctx context.Context, uri string, sel textedit.Selection) (EvalResult, error) {
	if w.backend == nil {
		return EvalResult{}, ErrNoBackend
	}
	t, err := w.Tree(uri)
	if err != nil {
		return EvalResult{}, err
	}
	code, ok := EvalTarget(t, sel)
	if !ok {
		return EvalResult{}, ErrNothingToEval
	}
	res := EvalResult{Code: code, Module: analyzer.DetectModule(t)}
	if res.Output, err = w.backend.Eval(ctx, code, res.Module); err != nil {
		return res, fmt.Errorf("beguile: eval: %w", err)
	}
	return res, nil
}

// EvalTarget returns the code Eval would send: the selected text, or the
// top-level list at (or just before) the cursor.
func EvalTarget(t *syntax.Tree, sel textedit.Selection) (string, bool) {
	start, end := max(sel.Start(), 0), min(sel.End(), len(t.Text))
	if start < end {
		if code := t.Text[start:end]; strings.TrimSpace(code) != "" {
			return code, true
		}
	}
	for _, off := range []int{sel.Active, sel.Active - 1} {
		id := syntax.TopLevelForm(t, off)
		if id != syntax.NoNode && t.Node(id).Kind == syntax.List {
			return t.NodeText(id), true
		}
	}
	return "", false
}

// URIToPath returns the filesystem path of a file URI. Other strings are
// returned unchanged.
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}

// PathToURI returns the file URI of path.
func PathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
