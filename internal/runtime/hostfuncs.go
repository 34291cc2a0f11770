package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/risor-io/risor/object"

	"github.com/GigiaJ/Beguile/internal/analyzer"
	"github.com/GigiaJ/Beguile/internal/indent"
	"github.com/GigiaJ/Beguile/internal/syntax"
)

// ruleSet collects the indentation declarations of one script run.
type ruleSet struct {
	mu    sync.Mutex
	rules map[string]indent.Style
}

func newRuleSet() *ruleSet {
	return &ruleSet{rules: make(map[string]indent.Style)}
}

func (rs *ruleSet) set(name string, s indent.Style) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.rules[name] = s
}

func (rs *ruleSet) snapshot() map[string]indent.Style {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return maps.Clone(rs.rules)
}

// makeIndentFn creates indent_body / indent_align. Each takes one or more
// operator names, or a list of them.
//
// indent_body("with-store", "mlet") → nil
func makeIndentFn(name string, rules *ruleSet, style indent.Style) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) == 0 {
			return object.Errorf("%s: expected at least 1 argument", name)
		}
		for _, arg := range args {
			names, err := toStrings(arg)
			if err != nil {
				return object.Errorf("%s: %v", name, err)
			}
			for _, n := range names {
				rules.set(n, style)
			}
		}
		return object.Nil
	})
}

// makeIndentStyleFn creates indent_style(name, style) where style is
// "body" or "align".
func makeIndentStyleFn(rules *ruleSet) *object.Builtin {
	return object.NewBuiltin("indent_style", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("indent_style", 2, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("indent_style: %v", err)
		}
		styleName, err := toString(args[1])
		if err != nil {
			return object.Errorf("indent_style: %v", err)
		}
		style, ok := indent.ParseStyle(styleName)
		if !ok {
			return object.Errorf("indent_style: unknown style %q", styleName)
		}
		rules.set(name, style)
		return object.Nil
	})
}

// makeParseSrcFn creates "parse_src" which parses Scheme text into nested
// maps: {kind, start, end, text, children} plus head/open/close for lists.
//
// parse_src(text) → map
func makeParseSrcFn() *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse_src", 1, len(args))
		}
		text, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_src: %v", err)
		}
		t := syntax.Parse(text)
		return nodeToObject(t, syntax.RootID, true)
	})
}

// makeNodeAtFn creates "node_at" returning the deepest node at a byte
// offset, without its children, or nil.
//
// node_at(text, offset) → map or nil
func makeNodeAtFn() *object.Builtin {
	return object.NewBuiltin("node_at", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_at", 2, len(args))
		}
		text, err := toString(args[0])
		if err != nil {
			return object.Errorf("node_at: %v", err)
		}
		offset, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("node_at: %v", err)
		}
		t := syntax.Parse(text)
		id := syntax.NodeAt(t, int(offset))
		if id == syntax.NoNode {
			return object.Nil
		}
		return nodeToObject(t, id, false)
	})
}

// context_stack(text, offset) → list of head symbols, outermost first
func makeContextStackFn() *object.Builtin {
	return object.NewBuiltin("context_stack", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("context_stack", 2, len(args))
		}
		text, err := toString(args[0])
		if err != nil {
			return object.Errorf("context_stack: %v", err)
		}
		offset, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("context_stack: %v", err)
		}
		return stringsToList(analyzer.ContextStack(syntax.Parse(text), int(offset)))
	})
}

// local_symbols(text) → list of names bound by define forms
func makeLocalSymbolsFn() *object.Builtin {
	return object.NewBuiltin("local_symbols", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("local_symbols", 1, len(args))
		}
		text, err := toString(args[0])
		if err != nil {
			return object.Errorf("local_symbols: %v", err)
		}
		return stringsToList(syntax.LocalDefinedSymbols(text))
	})
}

func nodeToObject(t *syntax.Tree, id syntax.NodeID, deep bool) object.Object {
	n := t.Node(id)
	m := map[string]object.Object{
		"kind":  object.NewString(n.Kind.String()),
		"start": object.NewInt(int64(n.Start)),
		"end":   object.NewInt(int64(n.End)),
		"text":  object.NewString(t.NodeText(id)),
	}
	if n.Kind == syntax.List {
		m["head"] = object.NewString(t.HeadName(id))
		m["open"] = object.NewString(string(n.Open))
		if n.Close != 0 {
			m["close"] = object.NewString(string(n.Close))
		} else {
			m["close"] = object.Nil
		}
	}
	if deep {
		children := make([]object.Object, 0, len(n.Children))
		for _, c := range n.Children {
			children = append(children, nodeToObject(t, c, true))
		}
		m["children"] = object.NewList(children)
	} else {
		m["child_count"] = object.NewInt(int64(len(n.Children)))
	}
	return object.NewMap(m)
}

func stringsToList(ss []string) object.Object {
	items := make([]object.Object, len(ss))
	for i, s := range ss {
		items[i] = object.NewString(s)
	}
	return object.NewList(items)
}

// toStrings accepts a string or a list of strings.
func toStrings(obj object.Object) ([]string, error) {
	switch v := obj.(type) {
	case *object.String:
		return []string{v.Value()}, nil
	case *object.List:
		var out []string
		for _, item := range v.Value() {
			s, err := toString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected string or list, got %s", obj.Type())
}

// logObject provides log.Info/Warn/Error/Debug methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Debug(msg string) { l.logger.Debug(msg) }

func (l *logObject) Info(msg string) { l.logger.Info(msg) }

func (l *logObject) Warn(msg string) { l.logger.Warn(msg) }

func (l *logObject) Error(msg string) { l.logger.Error(msg) }
