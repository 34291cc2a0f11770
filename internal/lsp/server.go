package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/GigiaJ/Beguile"
	"github.com/GigiaJ/Beguile/internal/highlight"
	"github.com/GigiaJ/Beguile/internal/paredit"
	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

const (
	commandPrefix       = "beguile."
	commandEval         = "beguile.eval"
	commandContextStack = "beguile.contextStack"
)

type server struct {
	ctx    context.Context
	ws     *beguile.Workspace
	engine *beguile.Engine
	logger *slog.Logger
}

func newServer(ctx context.Context, ws *beguile.Workspace, opts ...Option) *server {
	s := &server{ctx: ctx, ws: ws, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *server) handler() jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"initialize":                      s.initialize,
		"shutdown":                        noop,
		"exit":                            s.exit,
		"textDocument/didOpen":            s.didOpen,
		"textDocument/didChange":          s.didChange,
		"textDocument/didClose":           s.didClose,
		"textDocument/hover":              s.hover,
		"textDocument/completion":         s.completion,
		"completionItem/resolve":          s.resolveCompletion,
		"textDocument/definition":         s.definition,
		"textDocument/formatting":         s.formatting,
		"workspace/executeCommand":        s.executeCommand,
		"beguile/matchPair":               s.matchPair,
		"beguile/rainbow":                 s.rainbow,
		"initialized":                     noop,
		"textDocument/didSave":            noop,
		"$/cancelRequest":                 noop,
		"workspace/didChangeWatchedFiles": noop,
	})
}

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error)

func noop(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return nil, nil
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

// Handler implementations. These are all called synchronously, in the order
// the client sent them; anything that waits on the client runs in its own
// goroutine.

func (s *server) commands() []string {
	cmds := make([]string, 0, len(paredit.Ops)+2)
	for _, op := range paredit.Ops {
		cmds = append(cmds, commandPrefix+string(op))
	}
	return append(cmds, commandEval, commandContextStack)
}

func (s *server) initialize(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.InitializeParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	if s.engine != nil && (params.RootURI != "" || params.RootPath != "") {
		root := beguile.URIToPath(string(params.Root()))
		go func() {
			if err := s.engine.IndexDirectory(s.ctx, root); err != nil {
				s.logger.Warn("workspace indexing failed", "root", root, "error", err)
				return
			}
			s.logger.Info("workspace indexed", "root", root)
		}()
	}
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKIncremental,
				},
			},
			HoverProvider:              true,
			CompletionProvider:         &lsp.CompletionOptions{ResolveProvider: true},
			DefinitionProvider:         true,
			DocumentFormattingProvider: true,
			ExecuteCommandProvider:     &lsp.ExecuteCommandOptions{Commands: s.commands()},
		},
	}, nil
}

func (s *server) exit(_ context.Context, conn jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return nil, conn.Close()
}

func (s *server) didOpen(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	doc := params.TextDocument
	s.ws.Open(string(doc.URI), int32(doc.Version), doc.Text)
	return nil, nil
}

func (s *server) didChange(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	changes := make([]beguile.Change, len(params.ContentChanges))
	for i, c := range params.ContentChanges {
		changes[i].Text = c.Text
		if c.Range != nil {
			r := fromLSPRange(*c.Range)
			changes[i].Range = &r
		}
	}
	return nil, s.ws.Change(string(params.TextDocument.URI), int32(params.TextDocument.Version), changes...)
}

func (s *server) didClose(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	s.ws.Close(string(params.TextDocument.URI))
	return nil, nil
}

// position decodes document position params into a URI and byte offset.
func (s *server) position(rawParams json.RawMessage) (string, int, error) {
	var params lsp.TextDocumentPositionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return "", 0, errInvalidParams
	}
	uri := string(params.TextDocument.URI)
	off, err := s.ws.Offset(uri, fromLSPPosition(params.Position))
	return uri, off, err
}

func (s *server) hover(ctx context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	uri, off, err := s.position(rawParams)
	if err != nil {
		return nil, err
	}
	md, ok, err := s.ws.Hover(ctx, uri, off)
	if err != nil || !ok {
		return nil, err
	}
	return lsp.Hover{Contents: []lsp.MarkedString{lsp.RawMarkedString(md)}}, nil
}

func (s *server) completion(ctx context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.CompletionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	uri := string(params.TextDocument.URI)
	off, err := s.ws.Offset(uri, fromLSPPosition(params.Position))
	if err != nil {
		return nil, err
	}
	items, err := s.ws.Complete(ctx, uri, off)
	if err != nil {
		return nil, err
	}
	out := make([]lsp.CompletionItem, len(items))
	for i, item := range items {
		out[i] = lsp.CompletionItem{Label: item.Label, Kind: completionKind(item), Detail: item.Detail}
	}
	return lsp.CompletionList{Items: out}, nil
}

// completionKind guesses a kind from the signature: procedures carry a
// parenthesized one.
func completionKind(item beguile.CompletionItem) lsp.CompletionItemKind {
	switch {
	case strings.HasPrefix(item.Detail, "("):
		return lsp.CIKFunction
	case item.Detail != "":
		return lsp.CIKVariable
	default:
		return lsp.CIKText
	}
}

func (s *server) resolveCompletion(ctx context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var item lsp.CompletionItem
	if json.Unmarshal(rawParams, &item) != nil {
		return nil, errInvalidParams
	}
	detail, doc, err := s.ws.ResolveCompletion(ctx, item.Label)
	if err != nil {
		s.logger.Debug("completion resolve failed", "label", item.Label, "error", err)
		return item, nil
	}
	if detail != "" {
		item.Detail = detail
	}
	if doc != "" {
		item.Documentation = doc
	}
	return item, nil
}

func (s *server) definition(ctx context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	uri, off, err := s.position(rawParams)
	if err != nil {
		return nil, err
	}
	locs, err := s.ws.Definition(ctx, uri, off)
	if err != nil {
		return nil, err
	}
	out := make([]lsp.Location, len(locs))
	for i, l := range locs {
		out[i] = lsp.Location{
			URI: lsp.DocumentURI(beguile.PathToURI(l.File)),
			Range: lsp.Range{
				Start: lsp.Position{Line: l.StartLine, Character: l.StartCol},
				End:   lsp.Position{Line: l.EndLine, Character: l.EndCol},
			},
		}
	}
	return out, nil
}

func (s *server) formatting(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DocumentFormattingParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	uri := string(params.TextDocument.URI)
	edits, err := s.ws.Format(uri)
	if err != nil {
		return nil, err
	}
	text, _, _ := s.ws.Text(uri)
	return toLSPEdits(text, edits), nil
}

// selectionArgs is the argument object of the beguile.* commands.
type selectionArgs struct {
	URI    lsp.DocumentURI `json:"uri"`
	Anchor lsp.Position    `json:"anchor"`
	Active lsp.Position    `json:"active"`
}

// editResult answers a paredit command.
type editResult struct {
	Applied   bool           `json:"applied"`
	Edits     []lsp.TextEdit `json:"edits"`
	Selection selection      `json:"selection"`
}

type selection struct {
	Anchor lsp.Position `json:"anchor"`
	Active lsp.Position `json:"active"`
}

func (s *server) executeCommand(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.ExecuteCommandParams
	if json.Unmarshal(rawParams, &params) != nil || len(params.Arguments) == 0 {
		return nil, errInvalidParams
	}
	var args selectionArgs
	if raw, err := json.Marshal(params.Arguments[0]); err != nil || json.Unmarshal(raw, &args) != nil {
		return nil, errInvalidParams
	}
	uri := string(args.URI)
	text, _, ok := s.ws.Text(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", beguile.ErrUnknownDocument, uri)
	}
	li := syntax.NewLineIndex(text)
	sel := textedit.Selection{
		Anchor: li.Offset(args.Anchor.Line, args.Anchor.Character),
		Active: li.Offset(args.Active.Line, args.Active.Character),
	}

	switch params.Command {
	case commandContextStack:
		return s.ws.ContextStack(uri, sel.Active)
	case commandEval:
		return s.eval(ctx, conn, uri, sel)
	}

	op, err := paredit.ParseOp(strings.TrimPrefix(params.Command, commandPrefix))
	if err != nil || !strings.HasPrefix(params.Command, commandPrefix) {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "unknown command " + params.Command}
	}
	res, ok, err := s.ws.Plan(op, uri, sel)
	if err != nil {
		return nil, err
	}
	if !ok {
		return editResult{Selection: toLSPSelection(li, sel), Edits: []lsp.TextEdit{}}, nil
	}

	after := text
	if len(res.Edits) > 0 {
		if after, err = textedit.Apply(text, res.Edits); err != nil {
			return nil, err
		}
	}
	out := editResult{
		Applied:   true,
		Edits:     toLSPEdits(text, res.Edits),
		Selection: toLSPSelection(syntax.NewLineIndex(after), res.Selection),
	}
	if len(out.Edits) > 0 {
		go s.applyEdit(conn, uri, string(op), out.Edits)
	}
	return out, nil
}

// applyEdit asks the client to apply edits. The client reports the new
// text back through didChange.
func (s *server) applyEdit(conn jsonrpc2.JSONRPC2, uri, label string, edits []lsp.TextEdit) {
	params := struct {
		Label string            `json:"label,omitempty"`
		Edit  lsp.WorkspaceEdit `json:"edit"`
	}{Label: label, Edit: lsp.WorkspaceEdit{Changes: map[string][]lsp.TextEdit{uri: edits}}}
	var result struct {
		Applied       bool   `json:"applied"`
		FailureReason string `json:"failureReason,omitempty"`
	}
	if err := conn.Call(s.ctx, "workspace/applyEdit", params, &result); err != nil {
		s.logger.Warn("applyEdit failed", "uri", uri, "error", err)
		return
	}
	if !result.Applied {
		s.logger.Info("client rejected edit", "uri", uri, "reason", result.FailureReason)
	}
}

func (s *server) eval(ctx context.Context, conn jsonrpc2.JSONRPC2, uri string, sel textedit.Selection) (any, error) {
	res, err := s.ws.Eval(ctx, uri, sel)
	switch {
	case errors.Is(err, beguile.ErrNothingToEval):
		return nil, nil
	case errors.Is(err, beguile.ErrNoBackend), errors.Is(err, beguile.ErrUnknownDocument):
		return nil, err
	}
	label := ""
	if res.Module != "" {
		label = "[" + res.Module + "] "
	}
	msg := lsp.LogMessageParams{Type: lsp.Info, Message: "> " + label + res.Code + "\n" + res.Output}
	if err != nil {
		msg = lsp.LogMessageParams{Type: lsp.MTError, Message: "> " + label + res.Code + "\nERR: " + err.Error()}
	}
	if nerr := conn.Notify(ctx, "window/logMessage", msg); nerr != nil {
		s.logger.Debug("logMessage failed", "error", nerr)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// pairResult locates a matching pair of delimiters.
type pairResult struct {
	Open  lsp.Range `json:"open"`
	Close lsp.Range `json:"close"`
}

func (s *server) matchPair(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	uri, off, err := s.position(rawParams)
	if err != nil {
		return nil, err
	}
	t, err := s.ws.Tree(uri)
	if err != nil {
		return nil, err
	}
	p, ok := highlight.MatchPair(t, off)
	if !ok {
		return nil, nil
	}
	li := syntax.NewLineIndex(t.Text)
	return pairResult{Open: charRange(li, p.Open), Close: charRange(li, p.Close)}, nil
}

// rainbowDelimiter is one bracket with its nesting depth.
type rainbowDelimiter struct {
	Range lsp.Range `json:"range"`
	Depth int       `json:"depth"`
	Color string    `json:"color"`
}

func (s *server) rainbow(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params struct {
		TextDocument lsp.TextDocumentIdentifier `json:"textDocument"`
	}
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	t, err := s.ws.Tree(string(params.TextDocument.URI))
	if err != nil {
		return nil, err
	}
	li := syntax.NewLineIndex(t.Text)
	delims := highlight.Rainbow(t)
	out := make([]rainbowDelimiter, len(delims))
	for i, d := range delims {
		out[i] = rainbowDelimiter{Range: charRange(li, d.Offset), Depth: d.Depth, Color: highlight.Colors[d.Color()]}
	}
	return out, nil
}
