package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/GigiaJ/Beguile/internal/store"
)

// Index accessors. Risor cannot hold Go struct pointers usefully, so every
// function returns maps with primitive values.

// symbols_by_name(name) → list of symbol maps
func makeSymbolsByNameFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("symbols_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbols_by_name", 1, len(args))
		}
		nameStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("symbols_by_name: expected string, got %s", args[0].Type())
		}

		syms, err := s.SymbolsByName(nameStr.Value())
		if err != nil {
			return object.Errorf("symbols_by_name: %v", err)
		}
		return symbolsToList(syms)
	})
}

// symbols_by_file(path_or_id) → list of symbol maps
func makeSymbolsByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("symbols_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbols_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			path, serr := toString(args[0])
			if serr != nil {
				return object.Errorf("symbols_by_file: expected file id or path, got %s", args[0].Type())
			}
			f, ferr := s.FileByPath(path)
			if ferr != nil {
				return object.Errorf("symbols_by_file: %v", ferr)
			}
			if f == nil {
				return object.NewList([]object.Object{})
			}
			fileID = f.ID
		}

		syms, queryErr := s.SymbolsByFile(fileID)
		if queryErr != nil {
			return object.Errorf("symbols_by_file: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

// complete(prefix, limit?) → list of symbol maps whose name starts with prefix
func makeCompleteFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("complete", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("complete: expected 1 or 2 arguments, got %d", len(args))
		}
		prefix, err := toString(args[0])
		if err != nil {
			return object.Errorf("complete: %v", err)
		}
		limit := int64(0)
		if len(args) == 2 {
			if limit, err = toInt64(args[1]); err != nil {
				return object.Errorf("complete: %v", err)
			}
		}
		syms, queryErr := s.SymbolsByPrefix(prefix, int(limit))
		if queryErr != nil {
			return object.Errorf("complete: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

// files() → list of file maps
func makeFilesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		files, err := s.Files()
		if err != nil {
			return object.Errorf("files: %v", err)
		}
		results := make([]object.Object, 0, len(files))
		for _, f := range files {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":         object.NewInt(f.ID),
				"path":       object.NewString(f.Path),
				"language":   object.NewString(f.Language),
				"module":     object.NewString(f.Module),
				"line_count": object.NewInt(int64(f.LineCount)),
			}))
		}
		return object.NewList(results)
	})
}

// imports_by_file(file_id) → list of module names
func makeImportsByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("imports_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("imports_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("imports_by_file: %v", err)
		}
		imps, queryErr := s.ImportsByFile(fileID)
		if queryErr != nil {
			return object.Errorf("imports_by_file: %v", queryErr)
		}
		mods := make([]string, len(imps))
		for i, imp := range imps {
			mods[i] = imp.Module
		}
		return stringsToList(mods)
	})
}

// makeDBQueryFn creates a db_query bridge that executes read-only SQL.
//
// db_query("SELECT name FROM symbols WHERE kind = ?", "macro") → list of row maps
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		var results []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

// symbolsToList converts a slice of store.Symbol to a Risor list of maps.
func symbolsToList(syms []*store.Symbol) object.Object {
	results := make([]object.Object, 0, len(syms))
	for _, sym := range syms {
		results = append(results, object.NewMap(map[string]object.Object{
			"id":         object.NewInt(sym.ID),
			"file_id":    object.NewInt(sym.FileID),
			"name":       object.NewString(sym.Name),
			"kind":       object.NewString(sym.Kind),
			"signature":  object.NewString(sym.Signature),
			"exported":   object.NewBool(sym.Exported),
			"start_line": object.NewInt(int64(sym.StartLine)),
			"start_col":  object.NewInt(int64(sym.StartCol)),
			"end_line":   object.NewInt(int64(sym.EndLine)),
			"end_col":    object.NewInt(int64(sym.EndCol)),
		}))
	}
	return object.NewList(results)
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
