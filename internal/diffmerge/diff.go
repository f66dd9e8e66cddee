// Package diffmerge implements the line-granular three-way diff, conflict
// detection, best-effort auto-merge, and conflict-marker synthesis/stripping
// described in spec §4.B. All inputs are treated as UTF-8 text; lines are
// delimited by '\n' and a trailing line without a newline is its own line.
package diffmerge

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/oarkflow/noteforge/internal/model"
)

// splitLines breaks s into lines the way the spec defines them: split on
// '\n', with a trailing empty segment (produced when s ends in '\n')
// dropped rather than kept as a phantom empty final line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// lineChanges returns the line-granular edits turning oldText into newText,
// one TextChange per affected line. It uses diffmatchpatch's line-mode diff
// (DiffLinesToChars/DiffMain/DiffCharsToLines) to get Go's idiomatic
// equivalent of a line-based diff, then expands each resulting block back
// into per-line changes so deletions and insertions carry the line-count
// semantics spec §4.B requires.
func lineChanges(oldText, newText string) []model.TextChange {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var changes []model.TextChange
	lineNumber := 0
	for _, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, ln := range lines {
				changes = append(changes, model.TextChange{
					StartLine: lineNumber,
					EndLine:   lineNumber + 1,
					Content:   ln,
				})
				lineNumber++
			}
		case diffmatchpatch.DiffInsert:
			for _, ln := range lines {
				changes = append(changes, model.TextChange{
					StartLine: lineNumber,
					EndLine:   lineNumber,
					Content:   ln,
				})
			}
		case diffmatchpatch.DiffEqual:
			lineNumber += len(lines)
		}
	}
	return changes
}

// changesOverlap reports whether two change ranges intersect.
func changesOverlap(a, b model.TextChange) bool {
	return a.StartLine <= b.EndLine && b.StartLine <= a.EndLine
}

// extractLines slices lines over [start, min(end, len(lines))) and joins
// with '\n', matching the Conflict content-slicing rule in spec §4.B.
func extractLines(lines []string, start, end int) string {
	if start > len(lines) {
		start = len(lines)
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		start = end
	}
	return strings.Join(lines[start:end], "\n")
}

// CompareVersions produces the DiffResult for a three-way comparison: the
// concatenation of base→your and base→their changes, the overlapping
// conflict regions between them, and whether auto-merge is possible.
func CompareVersions(base, your, their string) model.DiffResult {
	yourChanges := lineChanges(base, your)
	theirChanges := lineChanges(base, their)

	baseLines := splitLines(base)
	yourLines := splitLines(your)
	theirLines := splitLines(their)

	var conflicts []model.Conflict
	for _, yc := range yourChanges {
		for _, tc := range theirChanges {
			if !changesOverlap(yc, tc) {
				continue
			}
			conflicts = append(conflicts, model.Conflict{
				StartLine:      yc.StartLine,
				EndLine:        yc.EndLine,
				BaseContent:    extractLines(baseLines, yc.StartLine, yc.EndLine),
				YourContent:    extractLines(yourLines, yc.StartLine, yc.EndLine),
				CurrentContent: extractLines(theirLines, yc.StartLine, yc.EndLine),
			})
		}
	}

	changes := make([]model.TextChange, 0, len(yourChanges)+len(theirChanges))
	changes = append(changes, yourChanges...)
	changes = append(changes, theirChanges...)

	return model.DiffResult{
		Changes:      changes,
		Conflicts:    conflicts,
		CanAutoMerge: len(conflicts) == 0,
	}
}
