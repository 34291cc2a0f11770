package beguile

import (
	"fmt"

	"github.com/GigiaJ/Beguile/internal/store"
)

// QueryBuilder provides read access to the workspace index.
type QueryBuilder struct {
	store *store.Store
}

// Location represents a source code position range. Lines are 0-based and
// columns count UTF-16 units.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// Match is an indexed definition together with where it lives.
type Match struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Signature string   `json:"signature"`
	Exported  bool     `json:"exported"`
	Location  Location `json:"location"`
}

// Definitions returns every indexed definition of name.
func (q *QueryBuilder) Definitions(name string) ([]Match, error) {
	syms, err := q.store.SymbolsByName(name)
	if err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	return q.matches(syms)
}

// Complete returns indexed definitions whose names start with prefix, at
// most limit of them (no limit when limit <= 0).
func (q *QueryBuilder) Complete(prefix string, limit int) ([]Match, error) {
	syms, err := q.store.SymbolsByPrefix(prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	return q.matches(syms)
}

// SymbolsInFile returns the definitions of an indexed file in source
// order. An unknown path yields nothing.
func (q *QueryBuilder) SymbolsInFile(path string) ([]Match, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("symbols in file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	syms, err := q.store.SymbolsByFile(f.ID)
	if err != nil {
		return nil, fmt.Errorf("symbols in file: %w", err)
	}
	return q.matches(syms)
}

// Files returns every indexed file ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	return q.store.Files()
}

// Dependents returns the files that import module, such as "(srfi srfi-1)".
func (q *QueryBuilder) Dependents(module string) ([]*File, error) {
	ids, err := q.store.FilesImportingModule(module)
	if err != nil {
		return nil, fmt.Errorf("dependents: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return q.store.FilesByIDs(ids)
}

// ModuleFiles returns the files that declare module with define-module.
func (q *QueryBuilder) ModuleFiles(module string) ([]*File, error) {
	return q.store.ModuleFiles(module)
}

// Dependencies returns the modules an indexed file imports.
func (q *QueryBuilder) Dependencies(path string) ([]*Import, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	return q.store.ImportsByFile(f.ID)
}

// matches attaches file paths to symbols, looking each file up once.
func (q *QueryBuilder) matches(syms []*store.Symbol) ([]Match, error) {
	paths := make(map[int64]string)
	out := make([]Match, 0, len(syms))
	for _, sym := range syms {
		path, ok := paths[sym.FileID]
		if !ok {
			f, err := q.store.FileByID(sym.FileID)
			if err != nil {
				return nil, fmt.Errorf("symbol location: %w", err)
			}
			if f != nil {
				path = f.Path
			}
			paths[sym.FileID] = path
		}
		out = append(out, Match{
			Name:      sym.Name,
			Kind:      sym.Kind,
			Signature: sym.Signature,
			Exported:  sym.Exported,
			Location: Location{
				File:      path,
				StartLine: sym.StartLine,
				StartCol:  sym.StartCol,
				EndLine:   sym.EndLine,
				EndCol:    sym.EndCol,
			},
		})
	}
	return out, nil
}
