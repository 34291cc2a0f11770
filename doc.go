// Package beguile is a structural editing engine for Scheme and Guile
// source. It parses text into a position-indexed syntax tree, answers
// cursor queries, performs paredit-style edits, re-derives canonical
// indentation and keeps a SQLite index of definitions across a project.
//
// # Editing sessions
//
// A [Workspace] tracks open documents by URI. Each change reparses the
// whole document; structural operations and formatting always see the
// latest tree:
//
//	w := beguile.NewWorkspace(beguile.WithBackend(client))
//	w.Open(uri, 1, text)
//	res, ok, err := w.Paredit(paredit.OpSlurpForward, uri, textedit.Cursor(12))
//	edits, err := w.Format(uri)
//
// Semantic features (hover, completion, definition, evaluation) ask a
// running Guile process through [Backend] and degrade to local
// definitions and the index when it is missing or fails.
//
// # Index
//
// An [Engine] indexes top-level definitions and module imports:
//
//	e, err := beguile.New(".beguile/index.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	err = e.IndexDirectory(ctx, "path/to/project")
//	matches, err := e.Query().Definitions("square")
//
// [Engine.IndexFiles] skips unchanged files by content hash. When a
// module's exported definitions change, the files importing it are
// reported by [Engine.Affected].
//
// # Scripts
//
// Indent rules and ad-hoc index queries can be written as Risor scripts.
// See the internal/runtime package for the globals exposed to scripts.
package beguile
