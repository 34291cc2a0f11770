// Package textedit describes replacements against a text snapshot.
package textedit

import (
	"fmt"
	"sort"
	"strings"
)

// Edit replaces the half-open byte range [Start, End) with NewText.
// Offsets refer to the text the edit was computed against.
type Edit struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	NewText string `json:"new_text"`
}

// Insert returns an edit inserting s at offset.
func Insert(offset int, s string) Edit {
	return Edit{Start: offset, End: offset, NewText: s}
}

// Delete returns an edit removing [start, end).
func Delete(start, end int) Edit {
	return Edit{Start: start, End: end}
}

// Selection is an editor selection. Anchor stays put while Active moves.
// An empty selection is a cursor.
type Selection struct {
	Anchor int `json:"anchor"`
	Active int `json:"active"`
}

// Cursor returns an empty selection at offset.
func Cursor(offset int) Selection {
	return Selection{Anchor: offset, Active: offset}
}

// Empty reports whether the selection is a cursor.
func (s Selection) Empty() bool { return s.Anchor == s.Active }

// Start returns the lower bound of the selection.
func (s Selection) Start() int { return min(s.Anchor, s.Active) }

// End returns the upper bound of the selection.
func (s Selection) End() int { return max(s.Anchor, s.Active) }

// Sort orders edits by start offset. Insertions at the same offset keep
// their relative order.
func Sort(edits []Edit) {
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].Start != edits[j].Start {
			return edits[i].Start < edits[j].Start
		}
		return edits[i].End < edits[j].End
	})
}

// Validate checks that sorted edits are in range and do not overlap.
func Validate(text string, edits []Edit) error {
	prev := 0
	for i, e := range edits {
		if e.Start < 0 || e.End < e.Start || e.End > len(text) {
			return fmt.Errorf("textedit: edit %d: range [%d,%d) outside text of length %d", i, e.Start, e.End, len(text))
		}
		if e.Start < prev {
			return fmt.Errorf("textedit: edit %d: overlaps previous edit ending at %d", i, prev)
		}
		prev = e.End
	}
	return nil
}

// Apply returns text with edits applied. The edits are sorted first; they
// must not overlap.
func Apply(text string, edits []Edit) (string, error) {
	sorted := append([]Edit(nil), edits...)
	Sort(sorted)
	if err := Validate(text, sorted); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, e := range sorted {
		b.WriteString(text[pos:e.Start])
		b.WriteString(e.NewText)
		pos = e.End
	}
	b.WriteString(text[pos:])
	return b.String(), nil
}

// Shift maps an offset in the original text through edits to the
// corresponding offset in the edited text. An offset inside a replaced
// range moves to the end of the replacement.
func Shift(offset int, edits []Edit) int {
	delta := 0
	for _, e := range edits {
		switch {
		case e.End <= offset && e.Start < offset:
			delta += len(e.NewText) - (e.End - e.Start)
		case e.Start <= offset && offset < e.End:
			return e.Start + delta + len(e.NewText)
		}
	}
	return offset + delta
}
