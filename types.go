package beguile

import "github.com/GigiaJ/Beguile/internal/store"

// Public type aliases for internal store types used in the QueryBuilder API.
// These are Go type aliases (=), identical to the internal types at compile
// time, so external consumers need no conversion.

type Store = store.Store
type Symbol = store.Symbol
type File = store.File
type Import = store.Import
