// Package indent re-derives canonical indentation from a syntax tree.
//
// Format only rewrites the whitespace between nodes. Line breaks stay where
// they are, same-line siblings are separated by one space, and the leading
// whitespace of each line is set from the enclosing form's style. String
// and comment interiors are never touched.
package indent

import (
	"strings"

	"github.com/rivo/uniseg"

	"github.com/GigiaJ/Beguile/internal/syntax"
	"github.com/GigiaJ/Beguile/internal/textedit"
)

// DefaultMaxWidth is the column past which same-line arguments are laid out
// as if they had started a new line.
const DefaultMaxWidth = 100

// Formatter computes indentation edits. It is safe for concurrent use as
// long as its Hints are.
type Formatter struct {
	maxWidth   int
	bodyForms  map[string]bool
	alignForms map[string]bool
	rules      map[string]Style
	hints      *Hints
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithMaxWidth sets the soft wrap column. Zero disables soft wrapping.
func WithMaxWidth(n int) Option {
	return func(f *Formatter) { f.maxWidth = n }
}

// WithBodyForms adds operators indented as bodies.
func WithBodyForms(names ...string) Option {
	return func(f *Formatter) {
		for _, n := range names {
			f.bodyForms[n] = true
		}
	}
}

// WithAlignForms forces operators to align even when their name looks like
// a body form.
func WithAlignForms(names ...string) Option {
	return func(f *Formatter) {
		for _, n := range names {
			f.alignForms[n] = true
		}
	}
}

// WithRules sets explicit per-operator styles. They take precedence over
// everything else.
func WithRules(rules map[string]Style) Option {
	return func(f *Formatter) {
		for n, s := range rules {
			f.rules[n] = s
		}
	}
}

// WithHints consults h for operators no rule or heuristic covers.
func WithHints(h *Hints) Option {
	return func(f *Formatter) { f.hints = h }
}

// New returns a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		maxWidth:   DefaultMaxWidth,
		bodyForms:  make(map[string]bool),
		alignForms: make(map[string]bool),
		rules:      make(map[string]Style),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format returns the edits that bring t's text to canonical indentation,
// sorted by offset. It returns nil when the tree has an unterminated list.
//
// Operators whose style is unknown are looked up in the background after
// the pass; this pass uses the hints cached when it started.
func (f *Formatter) Format(t *syntax.Tree) []textedit.Edit {
	if t.Unterminated() {
		return nil
	}
	p := &pass{
		f:       f,
		t:       t,
		text:    t.Text,
		eol:     lineEnding(t.Text),
		unknown: make(map[string]bool),
	}
	if f.hints != nil {
		p.hints = f.hints.Snapshot()
	}
	p.root()
	if f.hints != nil {
		for sym := range p.unknown {
			f.hints.Request(sym)
		}
	}
	return p.edits
}

// styleOf classifies an operator. known is false when only the default
// applied and a hint could change the answer.
func (f *Formatter) styleOf(name string, hints map[string]Style) (s Style, known bool) {
	if s, ok := f.rules[name]; ok {
		return s, true
	}
	if f.alignForms[name] {
		return StyleAlign, true
	}
	if f.bodyForms[name] || staticBody(name) {
		return StyleBody, true
	}
	if s, ok := hints[name]; ok {
		return s, true
	}
	return StyleAlign, false
}

// pass is the state of one Format call. Columns come in two flavours: the
// real column a node lands on in the output, and the logical column used as
// an indentation anchor. They differ only after a soft wrap.
type pass struct {
	f       *Formatter
	t       *syntax.Tree
	text    string
	eol     string
	hints   map[string]Style
	unknown map[string]bool
	edits   []textedit.Edit
}

func (p *pass) root() {
	kids := p.t.Children(syntax.RootID)
	prevEnd, col, prevCol := 0, 0, 0
	for i, c := range kids {
		n := p.t.Node(c)
		gap := p.text[prevEnd:n.Start]
		anchor := -1
		switch {
		case !isBlank(gap):
			// Stray closers sit here; leave them alone.
			col = advance(col, gap)
		case i == 0:
			p.replace(prevEnd, n.Start, "")
			col = 0
		case hasNewline(gap):
			nl := p.eol
			if countNewlines(gap) > 1 {
				nl += p.eol
			}
			p.replace(prevEnd, n.Start, nl)
			col = 0
		case p.glued(kids[i-1], c, gap):
			p.replace(prevEnd, n.Start, "")
			anchor = prevCol
		default:
			p.replace(prevEnd, n.Start, " ")
			col++
		}
		if anchor < 0 {
			anchor = col
		}
		prevCol = anchor
		col = p.node(c, col, col, anchor)
		prevEnd = n.End
	}

	tail := p.text[prevEnd:]
	if isBlank(tail) {
		repl := ""
		if hasNewline(tail) {
			repl = p.eol
		}
		p.replace(prevEnd, len(p.text), repl)
	}
}

// node lays out id starting at the given columns and returns the real
// column just past its last character.
func (p *pass) node(id syntax.NodeID, real, logical, anchor int) int {
	if p.t.Node(id).Kind == syntax.List {
		return p.list(id, real, logical, anchor)
	}
	return advance(real, p.t.NodeText(id))
}

// list lays out a list whose opener is at (real, logical). anchor is the
// column indentation is measured from: the opener's logical column, or the
// column of a prefix glued in front of it.
func (p *pass) list(id syntax.NodeID, real, logical, anchor int) int {
	n := p.t.Node(id)
	kids := n.Children
	cols := make([]int, len(kids))

	prevEnd := n.Start + 1
	cur := real + 1
	shift := logical - real
	wrapped := false

	for i, c := range kids {
		cn := p.t.Node(c)
		gap := p.text[prevEnd:cn.Start]
		var cr, cl int
		childAnchor := -1

		switch {
		case hasNewline(gap):
			indent := anchor + 1
			if i > 0 {
				indent = p.indentFor(id, i, anchor, cols)
			}
			p.replace(prevEnd, cn.Start, p.eol+strings.Repeat(" ", indent))
			cr, cl = indent, indent
			shift, wrapped = 0, false
		case i == 0:
			p.replace(prevEnd, cn.Start, "")
			cr = cur
			cl = cr + shift
		case p.glued(kids[i-1], c, gap):
			p.replace(prevEnd, cn.Start, "")
			cr = cur
			cl = cols[i-1]
			childAnchor = cols[i-1]
		default:
			p.replace(prevEnd, cn.Start, " ")
			cr = cur + 1
			if !wrapped && p.f.maxWidth > 0 && cr+p.width(c) > p.f.maxWidth {
				wrapped = true
			}
			if wrapped {
				cl = p.indentFor(id, i, anchor, cols)
			} else {
				cl = cr + shift
			}
		}

		cols[i] = cl
		if childAnchor < 0 {
			childAnchor = cl
		}
		cur = p.node(c, cr, cl, childAnchor)
		prevEnd = cn.End
	}

	closeAt := n.End - 1
	if len(kids) > 0 && p.t.Node(kids[len(kids)-1]).Kind == syntax.Comment {
		indent := p.indentFor(id, len(kids), anchor, cols)
		p.replace(prevEnd, closeAt, p.eol+strings.Repeat(" ", indent))
		cur = indent
	} else {
		p.replace(prevEnd, closeAt, "")
	}
	return cur + 1
}

// indentFor returns the column of child i of list when it starts a line.
// cols holds the logical columns of the children before i.
func (p *pass) indentFor(list syntax.NodeID, i, anchor int, cols []int) int {
	kids := p.t.Children(list)
	if i < len(kids) {
		if c := p.t.Node(kids[i]); c.Kind == syntax.Atom && isKeyword(p.t.NodeText(kids[i])) {
			return anchor + 2
		}
	}

	head := kids[0]
	if p.t.Node(head).Kind != syntax.Atom || !isSymbolName(p.t.NodeText(head)) {
		// Data: line up with the first element.
		return cols[0]
	}

	name := p.t.NodeText(head)
	style, known := p.f.styleOf(name, p.hints)
	if !known {
		p.unknown[name] = true
	}
	if style == StyleBody {
		return anchor + 2
	}
	if i >= 2 && p.t.Node(kids[1]).Kind != syntax.Comment && p.sameLine(head, kids[1]) {
		return cols[1]
	}
	return anchor + 2
}

// glued reports whether cur sticks to the prefix before it.
func (p *pass) glued(prev, cur syntax.NodeID, gap string) bool {
	if p.t.Node(prev).Kind != syntax.Atom || hasNewline(gap) {
		return false
	}
	cn := p.t.Node(cur)
	if cn.Kind == syntax.Comment {
		return false
	}
	prefix := p.t.NodeText(prev)
	switch {
	case quotePrefixes[prefix]:
		// Joining two atoms would read back as one.
		return gap == "" || cn.Kind != syntax.Atom
	case hashPrefixes[prefix]:
		return gap == ""
	}
	return false
}

func (p *pass) sameLine(a, b syntax.NodeID) bool {
	return !hasNewline(p.text[p.t.Node(a).End:p.t.Node(b).Start])
}

// width is the number of columns id takes on its first line. A list counts
// only its opener.
func (p *pass) width(id syntax.NodeID) int {
	if p.t.Node(id).Kind == syntax.List {
		return 1
	}
	s := p.t.NodeText(id)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return uniseg.StringWidth(s)
}

// replace records an edit turning text[start:end] into repl, trimmed to the
// part that actually changes.
func (p *pass) replace(start, end int, repl string) {
	old := p.text[start:end]
	if old == repl {
		return
	}
	i := 0
	for i < len(old) && i < len(repl) && old[i] == repl[i] {
		i++
	}
	j := 0
	for j < len(old)-i && j < len(repl)-i && old[len(old)-1-j] == repl[len(repl)-1-j] {
		j++
	}
	p.edits = append(p.edits, textedit.Edit{
		Start:   start + i,
		End:     end - j,
		NewText: repl[i : len(repl)-j],
	})
}

// advance returns the column after writing s starting at col.
func advance(col int, s string) int {
	if i := strings.LastIndexAny(s, "\r\n"); i >= 0 {
		return uniseg.StringWidth(s[i+1:])
	}
	return col + uniseg.StringWidth(s)
}

func lineEnding(text string) string {
	switch {
	case strings.Contains(text, "\r\n"):
		return "\r\n"
	case strings.Contains(text, "\n"):
		return "\n"
	case strings.Contains(text, "\r"):
		return "\r"
	}
	return "\n"
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func hasNewline(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

// countNewlines counts line breaks, treating "\r\n" as one.
func countNewlines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			n++
		case '\r':
			if i+1 >= len(s) || s[i+1] != '\n' {
				n++
			}
		}
	}
	return n
}
