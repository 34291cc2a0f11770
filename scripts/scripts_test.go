package scripts_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GigiaJ/Beguile"
	"github.com/GigiaJ/Beguile/internal/indent"
	"github.com/GigiaJ/Beguile/internal/runtime"
	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
	"github.com/GigiaJ/Beguile/scripts"
)

func TestFS_Layout(t *testing.T) {
	t.Parallel()
	indentScripts, err := fs.Glob(scripts.FS, "indent/*.risor")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"indent/guile.risor", "indent/guix.risor"}, indentScripts)

	reports, err := fs.Glob(scripts.FS, "report/*.risor")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"report/exports.risor", "report/summary.risor"}, reports)
}

func TestIndentRules(t *testing.T) {
	t.Parallel()
	rt := runtime.NewRuntime(nil, "", runtime.WithRuntimeFS(scripts.FS))

	tests := []struct {
		script string
		name   string
		want   indent.Style
	}{
		{"indent/guix.risor", "modify-phases", indent.StyleBody},
		{"indent/guix.risor", "package", indent.StyleBody},
		{"indent/guile.risor", "syntax-case", indent.StyleBody},
		{"indent/guile.risor", "with-continuation-barrier", indent.StyleAlign},
	}
	for _, tt := range tests {
		t.Run(tt.script+"/"+tt.name, func(t *testing.T) {
			rules, err := rt.LoadIndentRules(context.Background(), tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rules[tt.name])
		})
	}
}

func TestIndentRules_FormatModifyPhases(t *testing.T) {
	t.Parallel()
	rt := runtime.NewRuntime(nil, "", runtime.WithRuntimeFS(scripts.FS))
	rules, err := rt.LoadIndentRules(context.Background(), "indent/guix.risor")
	require.NoError(t, err)

	in := "(modify-phases %standard-phases\n(delete 'check))"
	format := func(f *indent.Formatter) string {
		out, err := textedit.Apply(in, f.Format(syntax.Parse(in)))
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, "(modify-phases %standard-phases\n               (delete 'check))", format(indent.New()))
	assert.Equal(t, "(modify-phases %standard-phases\n  (delete 'check))", format(indent.New(indent.WithRules(rules))))
}

func TestReports_RunAgainstIndex(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	write := func(name, src string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	write("util.scm", "(define-module (app util)\n  #:export (square))\n(define (square x) (* x x))\n")
	write("main.scm", "(use-modules (app util))\n(display (square 3))\n")

	e, err := beguile.New(filepath.Join(t.TempDir(), "index.db"), beguile.WithScriptsFS(scripts.FS))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	require.NoError(t, e.IndexFiles(context.Background(), []string{
		filepath.Join(dir, "util.scm"), filepath.Join(dir, "main.scm"),
	}))

	for _, report := range []string{"report/summary.risor", "report/exports.risor"} {
		assert.NoError(t, e.Runtime().RunScript(context.Background(), report, nil), report)
	}
}
