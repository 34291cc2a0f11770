package store

// DataStore is the interface for extraction-phase data access. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// extraction) implement this interface.
type DataStore interface {
	// Extraction inserts. Each returns the assigned ID.
	InsertSymbol(sym *Symbol) (int64, error)
	InsertImport(imp *Import) (int64, error)

	// Queries used by scripts for cross-file lookups.
	SymbolsByName(name string) ([]*Symbol, error)
	SymbolsByFile(fileID int64) ([]*Symbol, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
