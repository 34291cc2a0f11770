package indent

import "strings"

// Style is how a form indents the arguments that start on a new line.
type Style uint8

const (
	// StyleAlign lines arguments up under the first argument when it shares
	// the operator's line.
	StyleAlign Style = iota
	// StyleBody indents arguments two columns past the form's anchor.
	StyleBody
)

func (s Style) String() string {
	if s == StyleBody {
		return "body"
	}
	return "align"
}

// ParseStyle maps a style name to a Style. The backend answers "none" for
// symbols without a declaration; that is treated as align.
func ParseStyle(name string) (Style, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "body":
		return StyleBody, true
	case "align", "none", "":
		return StyleAlign, true
	}
	return StyleAlign, false
}

// declarationForms are module-level declarations indented as bodies.
var declarationForms = map[string]bool{
	"library": true,
	"module":  true,
	"program": true,
}

// staticBody reports whether name is a body form by naming convention
// alone.
func staticBody(name string) bool {
	switch name {
	case "let", "let*", "lambda":
		return true
	}
	return strings.HasPrefix(name, "def") ||
		strings.HasPrefix(name, "with-") ||
		declarationForms[name]
}

// isKeyword reports whether an atom is a keyword argument (#:key or :key).
func isKeyword(s string) bool {
	return strings.HasPrefix(s, "#:") || (len(s) > 1 && s[0] == ':')
}

// isSymbolName reports whether an atom names an operator rather than
// being a literal.
func isSymbolName(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '#', ':', '\'', '`', ',':
		return false
	}
	return !isNumber(s)
}

func isNumber(s string) bool {
	c := s[0]
	if c >= '0' && c <= '9' {
		return true
	}
	if (c == '+' || c == '-' || c == '.') && len(s) > 1 {
		return s[1] >= '0' && s[1] <= '9'
	}
	return false
}

// Prefixes glue to the expression that follows them. The quote family
// glues across spaces; the reader-macro family only when already adjacent.
var (
	quotePrefixes = map[string]bool{"'": true, "`": true, ",": true, ",@": true}
	hashPrefixes  = map[string]bool{
		"#'": true, "#`": true, "#,": true, "#,@": true,
		"#": true, "#u8": true, "#vu8": true,
	}
)
