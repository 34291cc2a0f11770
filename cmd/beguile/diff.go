package main

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffContext is the number of unchanged lines shown around a change.
const diffContext = 2

// unifiedDiff renders a line diff of before and after in unified style.
// It returns "" when they are equal.
func unifiedDiff(path, before, after string) string {
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	type line struct {
		op   diffmatchpatch.Operation
		text string
	}
	var all []line
	for _, d := range diffs {
		for _, l := range splitLines(d.Text) {
			all = append(all, line{d.Type, l})
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s (formatted)\n", path, path)
	oldLine, newLine := 1, 1
	for i := 0; i < len(all); {
		if all[i].op == diffmatchpatch.DiffEqual {
			oldLine++
			newLine++
			i++
			continue
		}
		// Grow the hunk until diffContext*2 equal lines separate changes.
		start := max(i-diffContext, 0)
		for start < i && all[start].op != diffmatchpatch.DiffEqual {
			start++
		}
		end := i
		for end < len(all) {
			if all[end].op != diffmatchpatch.DiffEqual {
				end++
				continue
			}
			run := end
			for run < len(all) && all[run].op == diffmatchpatch.DiffEqual {
				run++
			}
			if run == len(all) || run-end > 2*diffContext {
				end = min(end+diffContext, run)
				break
			}
			end = run
		}

		lead := i - start
		oldStart, newStart := oldLine-lead, newLine-lead
		oldCount, newCount := 0, 0
		var body strings.Builder
		for _, l := range all[start:end] {
			switch l.op {
			case diffmatchpatch.DiffEqual:
				body.WriteString(" " + l.text + "\n")
				oldCount++
				newCount++
			case diffmatchpatch.DiffDelete:
				body.WriteString("-" + l.text + "\n")
				oldCount++
			case diffmatchpatch.DiffInsert:
				body.WriteString("+" + l.text + "\n")
				newCount++
			}
		}
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
		sb.WriteString(body.String())
		oldLine = oldStart + oldCount
		newLine = newStart + newCount
		i = end
	}
	return sb.String()
}

// splitLines splits s into lines without their terminators.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}
