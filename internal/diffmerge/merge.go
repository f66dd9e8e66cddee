package diffmerge

import (
	"strings"

	"github.com/oarkflow/noteforge/internal/model"
)

// AttemptAutoMerge tries to reconcile your and their edits against base on a
// per-line basis. It returns the merged text and true on success, or ("",
// false) the moment any line is changed by both sides to different content
// — the caller falls back to conflict markers at that point rather than
// guessing which side wins.
func AttemptAutoMerge(base, your, their string) (string, bool) {
	baseLines := splitLines(base)
	yourLines := splitLines(your)
	theirLines := splitLines(their)

	maxLen := len(baseLines)
	if len(yourLines) > maxLen {
		maxLen = len(yourLines)
	}
	if len(theirLines) > maxLen {
		maxLen = len(theirLines)
	}

	var merged []string
	for i := 0; i < maxLen; i++ {
		b := lineAt(baseLines, i)
		y := lineAt(yourLines, i)
		t := lineAt(theirLines, i)

		switch {
		case y == t:
			// Both sides agree (including both unchanged from base, or
			// both converging on the same edit): take either.
			if y != "" || i < len(yourLines) || i < len(theirLines) {
				merged = append(merged, y)
			}
		case y == b:
			// Only their side changed this line.
			if i < len(theirLines) {
				merged = append(merged, t)
			}
		case t == b:
			// Only your side changed this line.
			if i < len(yourLines) {
				merged = append(merged, y)
			}
		default:
			// Both changed this line to different content: irreconcilable.
			return "", false
		}
	}
	return strings.Join(merged, "\n"), true
}

// lineAt returns lines[i] or "" past the end of the slice, letting the
// three-way comparison run over the longest of base/your/their without
// bounds-checking at every call site.
func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}

const (
	markerCurrentStart = "<<<<<<< CURRENT CHANGES"
	markerSeparator    = "======="
	markerYourEnd      = ">>>>>>> YOUR CHANGES"
)

// SynthesizeMarkers renders a human-resolvable merge over theirContent (the
// current/target text being merged into, not the three-way common
// ancestor): text outside any conflict carries through untouched, and every
// conflict region is wrapped in CURRENT/YOUR marker blocks so a user can
// pick a side by hand. Conflicts are applied in reverse line order so
// earlier splices don't invalidate the line offsets of later ones.
func SynthesizeMarkers(theirContent string, conflicts []model.Conflict) string {
	lines := splitLines(theirContent)
	result := append([]string(nil), lines...)

	applied := make(map[[2]int]bool, len(conflicts))
	for i := len(conflicts) - 1; i >= 0; i-- {
		c := conflicts[i]
		// One your-side change overlapping several their-side changes yields
		// identical conflicts for the same range; splice each range once so
		// a second block is not nested inside the first.
		key := [2]int{c.StartLine, c.EndLine}
		if applied[key] {
			continue
		}
		applied[key] = true
		start := c.StartLine
		end := c.EndLine
		if start > len(result) {
			start = len(result)
		}
		if end > len(result) {
			end = len(result)
		}
		if start > end {
			start = end
		}

		block := make([]string, 0, 5)
		block = append(block, markerCurrentStart)
		block = append(block, splitLines(c.CurrentContent)...)
		block = append(block, markerSeparator)
		block = append(block, splitLines(c.YourContent)...)
		block = append(block, markerYourEnd)

		merged := make([]string, 0, len(result)-(end-start)+len(block))
		merged = append(merged, result[:start]...)
		merged = append(merged, block...)
		merged = append(merged, result[end:]...)
		result = merged
	}
	return strings.Join(result, "\n")
}

// StripMarkers extracts the resolved content from a previously marked-up
// merge, keeping the YOUR side of every conflict block and discarding the
// CURRENT side and the marker lines themselves.
func StripMarkers(text string) string {
	lines := splitLines(text)
	var out []string
	state := "outside"
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		switch {
		case trimmed == markerCurrentStart:
			state = "current"
			continue
		case trimmed == markerSeparator && state == "current":
			state = "your"
			continue
		case trimmed == markerYourEnd && state == "your":
			state = "outside"
			continue
		}
		switch state {
		case "outside", "your":
			out = append(out, ln)
		case "current":
			// discarded
		}
	}
	return strings.Join(out, "\n")
}
