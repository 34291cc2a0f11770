package store

import "sync"

// BatchedStore buffers extraction inserts in memory using fake (negative)
// IDs. It implements DataStore so extraction code can write to it without
// knowing whether it is hitting SQLite or an in-memory buffer.
//
// The mutex protects fake ID allocation and slice appends. Read queries
// pass through to the underlying Store, which is safe for concurrent reads.
type BatchedStore struct {
	store *Store
	mu    sync.Mutex

	Symbols []Symbol
	Imports []Import

	// Module is the module name the file declares, applied on commit.
	Module string

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertSymbol(sym *Symbol) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	sym.ID = fakeID
	b.Symbols = append(b.Symbols, *sym)
	return fakeID, nil
}

func (b *BatchedStore) InsertImport(imp *Import) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	imp.ID = fakeID
	b.Imports = append(b.Imports, *imp)
	return fakeID, nil
}

// SymbolsByName merges committed symbols with buffered ones of that name.
func (b *BatchedStore) SymbolsByName(name string) ([]*Symbol, error) {
	dbSyms, err := b.store.SymbolsByName(name)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Symbols {
		if b.Symbols[i].Name == name {
			dbSyms = append(dbSyms, &b.Symbols[i])
		}
	}
	return dbSyms, nil
}

// SymbolsByFile returns symbols for a file, merging any buffered (not yet
// committed) symbols with those already in the database.
func (b *BatchedStore) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	dbSyms, err := b.store.SymbolsByFile(fileID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Symbols {
		if b.Symbols[i].FileID == fileID {
			dbSyms = append(dbSyms, &b.Symbols[i])
		}
	}
	return dbSyms, nil
}
