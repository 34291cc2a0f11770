package lsp

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GigiaJ/Beguile"
)

const testURI = "file:///tmp/test.scm"

// fakeClient records the requests and notifications the server sends.
type fakeClient struct {
	mu       sync.Mutex
	applied  []json.RawMessage
	messages []lsp.LogMessageParams
	edits    chan struct{}
}

func (c *fakeClient) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch req.Method {
	case "workspace/applyEdit":
		c.applied = append(c.applied, *req.Params)
		c.edits <- struct{}{}
		return map[string]bool{"applied": true}, nil
	case "window/logMessage":
		var msg lsp.LogMessageParams
		if err := json.Unmarshal(*req.Params, &msg); err == nil {
			c.messages = append(c.messages, msg)
		}
	}
	return nil, nil
}

func setup(t *testing.T, ws *beguile.Workspace) (*jsonrpc2.Conn, *fakeClient) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverSide, clientSide := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, Serve(ctx, serverSide, ws))
	}()

	fc := &fakeClient{edits: make(chan struct{}, 8)}
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(fc.handle))
	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return conn, fc
}

func call(t *testing.T, conn *jsonrpc2.Conn, method string, params, result any) {
	t.Helper()
	require.NoError(t, conn.Call(context.Background(), method, params, result))
}

func open(t *testing.T, conn *jsonrpc2.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.Notify(context.Background(), "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: testURI, LanguageID: "scheme", Version: 1, Text: text},
	}))
}

func positionParams(line, char int) lsp.TextDocumentPositionParams {
	return lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
		Position:     lsp.Position{Line: line, Character: char},
	}
}

func TestServer_Initialize(t *testing.T) {
	t.Parallel()
	conn, _ := setup(t, beguile.NewWorkspace())
	var res lsp.InitializeResult
	call(t, conn, "initialize", lsp.InitializeParams{}, &res)

	caps := res.Capabilities
	require.NotNil(t, caps.TextDocumentSync)
	require.NotNil(t, caps.TextDocumentSync.Options)
	assert.Equal(t, lsp.TDSKIncremental, caps.TextDocumentSync.Options.Change)
	assert.True(t, caps.HoverProvider)
	assert.True(t, caps.DefinitionProvider)
	assert.True(t, caps.DocumentFormattingProvider)
	require.NotNil(t, caps.ExecuteCommandProvider)
	assert.Contains(t, caps.ExecuteCommandProvider.Commands, "beguile.slurpForward")
	assert.Contains(t, caps.ExecuteCommandProvider.Commands, "beguile.eval")
	assert.Contains(t, caps.ExecuteCommandProvider.Commands, "beguile.contextStack")
}

func TestServer_UnknownMethod(t *testing.T) {
	t.Parallel()
	conn, _ := setup(t, beguile.NewWorkspace())
	err := conn.Call(context.Background(), "textDocument/rename", struct{}{}, nil)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)
}

func TestServer_DocumentSync(t *testing.T) {
	t.Parallel()
	ws := beguile.NewWorkspace()
	conn, _ := setup(t, ws)
	open(t, conn, "(foo)\n(bar)")

	rng := lsp.Range{Start: lsp.Position{Line: 1, Character: 1}, End: lsp.Position{Line: 1, Character: 4}}
	require.NoError(t, conn.Notify(context.Background(), "textDocument/didChange", lsp.DidChangeTextDocumentParams{
		TextDocument:   lsp.VersionedTextDocumentIdentifier{TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: testURI}, Version: 2},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{{Range: &rng, Text: "baz"}},
	}))

	// Requests are handled in order, so the change is visible to this call.
	var stack []string
	call(t, conn, "workspace/executeCommand", lsp.ExecuteCommandParams{
		Command:   commandContextStack,
		Arguments: []any{selectionArgs{URI: testURI, Anchor: lsp.Position{Line: 1, Character: 2}, Active: lsp.Position{Line: 1, Character: 2}}},
	}, &stack)
	assert.Equal(t, []string{"baz"}, stack)
	text, version, ok := ws.Text(testURI)
	require.True(t, ok)
	assert.Equal(t, "(foo)\n(baz)", text)
	assert.Equal(t, int32(2), version)

	require.NoError(t, conn.Notify(context.Background(), "textDocument/didClose", lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
	}))
	var pair *pairResult
	err := conn.Call(context.Background(), "beguile/matchPair", positionParams(0, 0), &pair)
	assert.Error(t, err, "closed documents are unknown")
}

func TestServer_HoverAndCompletion(t *testing.T) {
	t.Parallel()
	conn, _ := setup(t, beguile.NewWorkspace())
	open(t, conn, "(define (square x) (* x x))\n(squ")

	var hover lsp.Hover
	call(t, conn, "textDocument/hover", positionParams(0, 10), &hover)
	require.Len(t, hover.Contents, 1)
	assert.Equal(t, "```scheme\n(square x)\n```", hover.Contents[0].Value)

	var list lsp.CompletionList
	call(t, conn, "textDocument/completion", lsp.CompletionParams{TextDocumentPositionParams: positionParams(1, 4)}, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "square", list.Items[0].Label)
	assert.Equal(t, lsp.CIKFunction, list.Items[0].Kind)

	var defs []lsp.Location
	call(t, conn, "textDocument/definition", positionParams(1, 2), &defs)
	assert.Empty(t, defs, "an incomplete word has no definition")
	call(t, conn, "textDocument/definition", positionParams(0, 20), &defs)
	assert.Empty(t, defs)
	call(t, conn, "textDocument/definition", positionParams(0, 10), &defs)
	require.Len(t, defs, 1)
	assert.Equal(t, lsp.Position{Line: 0, Character: 9}, defs[0].Range.Start)
	assert.Equal(t, lsp.DocumentURI(testURI), defs[0].URI)
}

func TestServer_Formatting(t *testing.T) {
	t.Parallel()
	conn, _ := setup(t, beguile.NewWorkspace())
	open(t, conn, "(define(add a b)(+ a b))")

	var edits []lsp.TextEdit
	call(t, conn, "textDocument/formatting", lsp.DocumentFormattingParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
	}, &edits)
	at := func(c int) lsp.Range {
		return lsp.Range{Start: lsp.Position{Character: c}, End: lsp.Position{Character: c}}
	}
	assert.Equal(t, []lsp.TextEdit{
		{Range: at(7), NewText: " "},
		{Range: at(16), NewText: " "},
	}, edits)
}

func TestServer_PareditSendsApplyEdit(t *testing.T) {
	t.Parallel()
	ws := beguile.NewWorkspace()
	conn, fc := setup(t, ws)
	open(t, conn, "(foo) bar")

	var res editResult
	cursor := lsp.Position{Character: 3}
	call(t, conn, "workspace/executeCommand", lsp.ExecuteCommandParams{
		Command:   "beguile.slurpForward",
		Arguments: []any{selectionArgs{URI: testURI, Anchor: cursor, Active: cursor}},
	}, &res)
	assert.True(t, res.Applied)
	assert.NotEmpty(t, res.Edits)
	assert.Equal(t, cursor, res.Selection.Active)

	select {
	case <-fc.edits:
	case <-time.After(5 * time.Second):
		t.Fatal("server never sent workspace/applyEdit")
	}
	fc.mu.Lock()
	var params struct {
		Edit lsp.WorkspaceEdit `json:"edit"`
	}
	require.NoError(t, json.Unmarshal(fc.applied[0], &params))
	fc.mu.Unlock()
	assert.Equal(t, res.Edits, params.Edit.Changes[testURI])

	// The client owns the text; the server waits for didChange.
	text, _, _ := ws.Text(testURI)
	assert.Equal(t, "(foo) bar", text)
}

func TestServer_PareditNavigationAndErrors(t *testing.T) {
	t.Parallel()
	conn, fc := setup(t, beguile.NewWorkspace())
	open(t, conn, "(foo) bar")

	var res editResult
	start := lsp.Position{}
	call(t, conn, "workspace/executeCommand", lsp.ExecuteCommandParams{
		Command:   "beguile.forwardSexp",
		Arguments: []any{selectionArgs{URI: testURI, Anchor: start, Active: start}},
	}, &res)
	assert.Empty(t, res.Edits)
	assert.Equal(t, lsp.Position{Character: 5}, res.Selection.Active)

	err := conn.Call(context.Background(), "workspace/executeCommand", lsp.ExecuteCommandParams{
		Command:   "beguile.transpose",
		Arguments: []any{selectionArgs{URI: testURI}},
	}, &res)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeInvalidParams), rpcErr.Code)

	err = conn.Call(context.Background(), "workspace/executeCommand", lsp.ExecuteCommandParams{Command: "beguile.wrap"}, &res)
	require.ErrorAs(t, err, &rpcErr)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Empty(t, fc.applied)
}

func TestServer_EvalWithoutBackend(t *testing.T) {
	t.Parallel()
	conn, _ := setup(t, beguile.NewWorkspace())
	open(t, conn, "(+ 1 2)")
	err := conn.Call(context.Background(), "workspace/executeCommand", lsp.ExecuteCommandParams{
		Command:   commandEval,
		Arguments: []any{selectionArgs{URI: testURI}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")
}

func TestServer_MatchPairAndRainbow(t *testing.T) {
	t.Parallel()
	conn, _ := setup(t, beguile.NewWorkspace())
	open(t, conn, "(a\n (b))")

	var pair *pairResult
	call(t, conn, "beguile/matchPair", positionParams(1, 1), &pair)
	require.NotNil(t, pair)
	assert.Equal(t, lsp.Position{Line: 1, Character: 1}, pair.Open.Start)
	assert.Equal(t, lsp.Position{Line: 1, Character: 3}, pair.Close.Start)
	assert.Equal(t, lsp.Position{Line: 1, Character: 4}, pair.Close.End)

	pair = nil
	call(t, conn, "beguile/matchPair", positionParams(0, 2), &pair)
	assert.Nil(t, pair, "a cursor touching no delimiter has no pair")

	var delims []rainbowDelimiter
	call(t, conn, "beguile/rainbow", map[string]any{"textDocument": map[string]string{"uri": testURI}}, &delims)
	require.Len(t, delims, 4)
	assert.Equal(t, delims[0].Depth, delims[3].Depth)
	assert.Equal(t, delims[1].Depth, delims[2].Depth)
	assert.NotEqual(t, delims[0].Color, delims[1].Color)
	assert.Equal(t, lsp.Position{Line: 1, Character: 4}, delims[3].Range.Start)
}
