package store

import "fmt"

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction for the given file. Symbols go first, then
// imports, then the file's module name.
func (s *Store) CommitBatch(fileID int64, batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for _, sym := range batch.Symbols {
		sym.FileID = fileID
		if _, err := insertSymbol(tx, &sym); err != nil {
			return fmt.Errorf("commit batch: symbol %q: %w", sym.Name, err)
		}
	}
	for _, imp := range batch.Imports {
		imp.FileID = fileID
		if _, err := insertImport(tx, &imp); err != nil {
			return fmt.Errorf("commit batch: import %q: %w", imp.Module, err)
		}
	}
	if batch.Module != "" {
		if _, err := tx.Exec("UPDATE files SET module = ? WHERE id = ?", batch.Module, fileID); err != nil {
			return fmt.Errorf("commit batch: module: %w", err)
		}
	}
	return tx.Commit()
}
