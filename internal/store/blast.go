package store

import "fmt"

// FilesImportingModule returns the IDs of files that import module. These
// are the files affected when the module's exports change.
func (s *Store) FilesImportingModule(module string) ([]int64, error) {
	rows, err := s.db.Query("SELECT DISTINCT file_id FROM imports WHERE module = ? ORDER BY file_id", module)
	if err != nil {
		return nil, fmt.Errorf("files importing module: %w", err)
	}
	defer rows.Close()
	var fileIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan file id: %w", err)
		}
		fileIDs = append(fileIDs, id)
	}
	return fileIDs, rows.Err()
}

// FilesByIDs returns the files with the given IDs, ordered by path.
func (s *Store) FilesByIDs(ids []int64) ([]*File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	files, err := s.queryFiles(
		"SELECT "+fileCols+" FROM files WHERE id IN ("+placeholderList(len(ids))+") ORDER BY path",
		int64sToArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("files by ids: %w", err)
	}
	return files, nil
}

// ModuleFiles returns the files declaring module.
func (s *Store) ModuleFiles(module string) ([]*File, error) {
	files, err := s.queryFiles("SELECT "+fileCols+" FROM files WHERE module = ? ORDER BY path", module)
	if err != nil {
		return nil, fmt.Errorf("module files: %w", err)
	}
	return files, nil
}
