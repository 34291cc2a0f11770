package beguile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexedEngine indexes util.scm and main.scm in a fresh directory.
func indexedEngine(t *testing.T) (e *Engine, util, main string) {
	t.Helper()
	e = newTestEngine(t)
	dir := t.TempDir()
	util = writeFile(t, dir, "app/util.scm", utilSource)
	main = writeFile(t, dir, "main.scm", mainSource)
	require.NoError(t, e.IndexFiles(context.Background(), []string{util, main}))
	return e, util, main
}

func TestQuery_Definitions(t *testing.T) {
	e, util, _ := indexedEngine(t)

	got, err := e.Query().Definitions("square")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Match{
		Name:      "square",
		Kind:      "procedure",
		Signature: "(square x)",
		Exported:  true,
		Location:  Location{File: util, StartLine: 4, StartCol: 0, EndLine: 4, EndCol: 27},
	}, got[0])

	none, err := e.Query().Definitions("nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQuery_Complete(t *testing.T) {
	e, _, _ := indexedEngine(t)

	got, err := e.Query().Complete("cu", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cube", got[0].Name)

	all, err := e.Query().Complete("", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestQuery_SymbolsInFile(t *testing.T) {
	e, _, main := indexedEngine(t)

	got, err := e.Query().SymbolsInFile(main)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "main", got[0].Name)
	assert.Equal(t, main, got[0].Location.File)

	none, err := e.Query().SymbolsInFile("/not/indexed.scm")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestQuery_DependentsAndDependencies(t *testing.T) {
	e, util, main := indexedEngine(t)
	q := e.Query()

	deps, err := q.Dependents("(app util)")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, main, deps[0].Path)

	srfi, err := q.Dependents("(srfi srfi-1)")
	require.NoError(t, err)
	require.Len(t, srfi, 1)
	assert.Equal(t, util, srfi[0].Path)

	none, err := q.Dependents("(web client)")
	require.NoError(t, err)
	assert.Empty(t, none)

	imps, err := q.Dependencies(main)
	require.NoError(t, err)
	require.Len(t, imps, 2)
	assert.Equal(t, "(app util)", imps[0].Module)
	assert.Equal(t, "use-modules", imps[0].Kind)

	decl, err := q.ModuleFiles("(app util)")
	require.NoError(t, err)
	require.Len(t, decl, 1)
	assert.Equal(t, util, decl[0].Path)
}
