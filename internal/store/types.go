package store

import "time"

// File is one indexed source file.
type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LineCount   int
	Module      string // module name declared by the file, "" if none
	LastIndexed time.Time
}

// Symbol is a top-level definition. Positions are 0-based lines and
// UTF-16 columns, matching the editor protocol.
type Symbol struct {
	ID            int64
	FileID        int64
	Name          string
	Kind          string
	Signature     string
	Exported      bool
	SignatureHash string
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
}

// Import records a module a file depends on.
type Import struct {
	ID     int64
	FileID int64
	Module string
	Kind   string // "use-modules", "use-module" or "import"
}
