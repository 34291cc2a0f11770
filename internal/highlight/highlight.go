// Package highlight computes delimiter decorations: depth colours for every
// list and the pair of delimiters touching the cursor.
package highlight

import (
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/GigiaJ/Beguile/internal/syntax"
)

// Palette is the number of depth colours. Depth wraps around it.
const Palette = 5

// Colors are the depth colours, outermost first, as hex strings.
var Colors = [Palette]string{"#FFD700", "#DA70D6", "#87CEFA", "#FFA500", "#7FFF00"}

var rgb = [Palette][3]int{
	{0xFF, 0xD7, 0x00},
	{0xDA, 0x70, 0xD6},
	{0x87, 0xCE, 0xFA},
	{0xFF, 0xA5, 0x00},
	{0x7F, 0xFF, 0x00},
}

// Delimiter is one bracket character of a list.
type Delimiter struct {
	Offset int  `json:"offset"`
	Depth  int  `json:"depth"`
	Open   bool `json:"open"`
}

// Color returns the palette index for d.
func (d Delimiter) Color() int {
	return d.Depth % Palette
}

// Rainbow returns every list delimiter in t with its nesting depth, sorted
// by offset. Top-level lists have depth 0. An unterminated list contributes
// only its opener.
func Rainbow(t *syntax.Tree) []Delimiter {
	var out []Delimiter
	var walk func(id syntax.NodeID, depth int)
	walk = func(id syntax.NodeID, depth int) {
		n := t.Node(id)
		next := depth
		if n.Kind == syntax.List {
			out = append(out, Delimiter{Offset: n.Start, Depth: depth, Open: true})
			if n.End >= 0 {
				out = append(out, Delimiter{Offset: n.End - 1, Depth: depth})
			}
			next = depth + 1
		}
		for _, c := range n.Children {
			walk(c, next)
		}
	}
	walk(syntax.RootID, 0)
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Pair is the offsets of a list's opening and closing delimiters.
type Pair struct {
	Open  int `json:"open"`
	Close int `json:"close"`
}

// MatchPair returns the delimiters of the list whose opener or closer the
// cursor at offset touches, from either side. The node at offset is tried
// before the node just behind it. ok is false when the cursor
// touches no terminated list's delimiter.
func MatchPair(t *syntax.Tree, offset int) (Pair, bool) {
	for _, at := range []int{offset, offset - 1} {
		id := syntax.NodeAt(t, at)
		if id == syntax.NoNode || !t.Terminated(id) {
			continue
		}
		n := t.Node(id)
		touchingStart := offset == n.Start || offset == n.Start+1
		touchingEnd := offset == n.End || offset == n.End-1
		if touchingStart || touchingEnd {
			return Pair{Open: n.Start, Close: n.End - 1}, true
		}
	}
	return Pair{}, false
}

// Render writes t's text to w with each delimiter in its depth colour.
// With enabled false the text is written unchanged.
func Render(w io.Writer, t *syntax.Tree, enabled bool) error {
	paint := make([]func(a ...any) string, Palette)
	for i, c := range rgb {
		col := color.RGB(c[0], c[1], c[2]).Add(color.Bold)
		if enabled {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
		paint[i] = col.SprintFunc()
	}

	text := t.Text
	prev := 0
	for _, d := range Rainbow(t) {
		if _, err := io.WriteString(w, text[prev:d.Offset]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, paint[d.Color()](text[d.Offset:d.Offset+1])); err != nil {
			return err
		}
		prev = d.Offset + 1
	}
	_, err := io.WriteString(w, text[prev:])
	return err
}
