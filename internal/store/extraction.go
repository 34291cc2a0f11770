package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, line_count, module, last_indexed) VALUES (?, ?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.LineCount, f.Module, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

// SetFileModule records the module a file declares.
func (s *Store) SetFileModule(fileID int64, module string) error {
	if _, err := s.db.Exec("UPDATE files SET module = ? WHERE id = ?", module, fileID); err != nil {
		return fmt.Errorf("set file module: %w", err)
	}
	return nil
}

const fileCols = "id, path, language, hash, line_count, module, last_indexed"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	err := scanner.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LineCount, &f.Module, &f.LastIndexed)
	return f, err
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FileByPath returns the file at path, or nil when it is not indexed.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// FileByID returns the file with id, or nil.
func (s *Store) FileByID(id int64) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return f, nil
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

// FilesByLanguage returns the files of one dialect.
func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	files, err := s.queryFiles("SELECT "+fileCols+" FROM files WHERE language = ? ORDER BY path", language)
	if err != nil {
		return nil, fmt.Errorf("files by language: %w", err)
	}
	return files, nil
}

// --- Symbol operations ---

func (s *Store) InsertSymbol(sym *Symbol) (int64, error) {
	id, err := insertSymbol(s.db, sym)
	if err != nil {
		return 0, fmt.Errorf("insert symbol: %w", err)
	}
	sym.ID = id
	return id, nil
}

// SymbolCols is the column list for symbol queries, exported for use by QueryBuilder.
const SymbolCols = `id, file_id, name, kind, signature, exported, signature_hash,
	start_line, start_col, end_line, end_col`

// ScanSymbolRow scans a single row selected with SymbolCols.
func ScanSymbolRow(scanner interface{ Scan(...any) error }) (*Symbol, error) {
	sym := &Symbol{}
	var sig, hash sql.NullString
	err := scanner.Scan(
		&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &sig, &sym.Exported, &hash,
		&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol,
	)
	if err != nil {
		return nil, err
	}
	sym.Signature, sym.SignatureHash = sig.String, hash.String
	return sym, nil
}

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var symbols []*Symbol
	for rows.Next() {
		sym, err := ScanSymbolRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

func (s *Store) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE file_id = ? ORDER BY start_line, start_col", fileID)
}

func (s *Store) SymbolsByName(name string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE name = ? ORDER BY file_id, start_line", name)
}

func (s *Store) SymbolsByKind(kind string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE kind = ? ORDER BY name", kind)
}

// SymbolsByPrefix returns up to limit symbols whose name starts with
// prefix, ordered by name. A limit of 0 means no limit.
func (s *Store) SymbolsByPrefix(prefix string, limit int) ([]*Symbol, error) {
	q := "SELECT " + SymbolCols + ` FROM symbols WHERE name LIKE ? ESCAPE '\' ORDER BY name, file_id`
	args := []any{likePrefix(prefix)}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return s.querySymbols(q, args...)
}

// --- Import operations ---

func (s *Store) InsertImport(imp *Import) (int64, error) {
	id, err := insertImport(s.db, imp)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}
	imp.ID = id
	return id, nil
}

func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	rows, err := s.db.Query("SELECT id, file_id, module, kind FROM imports WHERE file_id = ? ORDER BY id", fileID)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()
	var imports []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Module, &imp.Kind); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertSymbol(db execer, sym *Symbol) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO symbols (file_id, name, kind, signature, exported, signature_hash,
			start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.Name, sym.Kind, sym.Signature, sym.Exported, sym.SignatureHash,
		sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertImport(db execer, imp *Import) (int64, error) {
	kind := imp.Kind
	if kind == "" {
		kind = "use-modules"
	}
	res, err := db.Exec(
		"INSERT INTO imports (file_id, module, kind) VALUES (?, ?, ?)",
		imp.FileID, imp.Module, kind,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
