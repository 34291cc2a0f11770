package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLINode is a JSON-friendly syntax node. Children is only filled by parse.
type CLINode struct {
	Kind       string    `json:"kind"`
	Start      int       `json:"start"`
	End        int       `json:"end"`
	Terminated bool      `json:"terminated,omitempty"`
	Head       string    `json:"head,omitempty"`
	Text       string    `json:"text,omitempty"`
	Children   []CLINode `json:"children,omitempty"`
}

// CLINodeAt describes the node under an offset and its surroundings.
type CLINodeAt struct {
	Offset    int      `json:"offset"`
	Node      *CLINode `json:"node"`
	Enclosing *CLINode `json:"enclosing"`
	TopLevel  *CLINode `json:"top_level"`
	Symbol    string   `json:"symbol,omitempty"`
}

// CLILocation is a 0-based span in a file.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLISymbol is a JSON-friendly definition.
type CLISymbol struct {
	Name      string      `json:"name"`
	Kind      string      `json:"kind"`
	Signature string      `json:"signature,omitempty"`
	Exported  bool        `json:"exported"`
	Location  CLILocation `json:"location"`
}

// CLIFileSymbols is the symbols command's result for one file.
type CLIFileSymbols struct {
	File        string      `json:"file"`
	Module      string      `json:"module,omitempty"`
	Definitions []CLISymbol `json:"definitions"`
	Names       []string    `json:"names"`
	Imports     []CLIImport `json:"imports"`
	Exports     []string    `json:"exports"`
}

// CLIImport is a JSON-friendly import representation.
type CLIImport struct {
	FilePath string `json:"file_path,omitempty"`
	Module   string `json:"module"`
	Kind     string `json:"kind"`
}

// CLIFile is a JSON-friendly file representation.
type CLIFile struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Language  string `json:"language"`
	Module    string `json:"module,omitempty"`
	LineCount int    `json:"line_count"`
}

// CLIEdit is a byte-offset replacement.
type CLIEdit struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	NewText string `json:"new_text"`
}

// CLISelection is an anchor and an active end, as byte offsets.
type CLISelection struct {
	Anchor int `json:"anchor"`
	Active int `json:"active"`
}

// CLIEditResult is the outcome of a structural edit.
type CLIEditResult struct {
	Op        string       `json:"op"`
	Applied   bool         `json:"applied"`
	Edits     []CLIEdit    `json:"edits"`
	Selection CLISelection `json:"selection"`
	Text      string       `json:"text"`
}

// CLIFormatResult reports what format did to one file.
type CLIFormatResult struct {
	File    string `json:"file"`
	Changed bool   `json:"changed"`
	Edits   int    `json:"edits"`
	Written bool   `json:"written,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

// CLIDelimiter is one bracket with its nesting depth and colour.
type CLIDelimiter struct {
	Offset int    `json:"offset"`
	Char   string `json:"char"`
	Depth  int    `json:"depth"`
	Color  string `json:"color"`
}

// CLIEvalResult is what eval sent to the backend and the printed result.
type CLIEvalResult struct {
	Code   string `json:"code"`
	Module string `json:"module,omitempty"`
	Output string `json:"output"`
}
