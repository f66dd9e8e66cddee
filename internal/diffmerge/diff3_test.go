package diffmerge

import (
	"strings"
	"testing"
)

func TestCompareVersionsNoConflict(t *testing.T) {
	base := "alpha\nbeta\ngamma\n"
	your := "alpha\nBETA\ngamma\n"
	their := "alpha\nbeta\nGAMMA\n"

	result := CompareVersions(base, your, their)
	if !result.CanAutoMerge {
		t.Fatalf("expected no conflicts, got %d: %+v", len(result.Conflicts), result.Conflicts)
	}
}

func TestCompareVersionsOverlappingConflict(t *testing.T) {
	base := "alpha\nbeta\ngamma\n"
	your := "alpha\nYOUR\ngamma\n"
	their := "alpha\nTHEIR\ngamma\n"

	result := CompareVersions(base, your, their)
	if result.CanAutoMerge {
		t.Fatalf("expected a conflict on the shared line, got none")
	}
	if len(result.Conflicts) == 0 {
		t.Fatalf("expected at least one conflict region")
	}
}

func TestAttemptAutoMergeDisjointEdits(t *testing.T) {
	base := "one\ntwo\nthree\n"
	your := "ONE\ntwo\nthree\n"
	their := "one\ntwo\nTHREE\n"

	merged, ok := AttemptAutoMerge(base, your, their)
	if !ok {
		t.Fatalf("expected disjoint edits to auto-merge")
	}
	want := "ONE\ntwo\nTHREE"
	if merged != want {
		t.Fatalf("merged = %q, want %q", merged, want)
	}
}

func TestAttemptAutoMergeConvergentEdit(t *testing.T) {
	base := "one\ntwo\n"
	your := "one\nTWO\n"
	their := "one\nTWO\n"

	merged, ok := AttemptAutoMerge(base, your, their)
	if !ok {
		t.Fatalf("expected identical edits on both sides to converge")
	}
	if merged != "one\nTWO" {
		t.Fatalf("merged = %q", merged)
	}
}

func TestAttemptAutoMergeDivergentEditFails(t *testing.T) {
	base := "one\ntwo\n"
	your := "one\nYOUR\n"
	their := "one\nTHEIR\n"

	_, ok := AttemptAutoMerge(base, your, their)
	if ok {
		t.Fatalf("expected divergent edits on the same line to fail auto-merge")
	}
}

func TestSynthesizeMarkersAndStrip(t *testing.T) {
	base := "one\ntwo\nthree\n"
	their := "one\nTHEIR\nthree\n"
	result := CompareVersions(base, "one\nYOUR\nthree\n", their)
	if result.CanAutoMerge {
		t.Fatalf("expected a conflict to exercise marker synthesis")
	}

	marked := SynthesizeMarkers(their, result.Conflicts)
	if !strings.Contains(marked, markerCurrentStart) || !strings.Contains(marked, markerYourEnd) {
		t.Fatalf("expected marked content to contain conflict markers, got %q", marked)
	}

	stripped := StripMarkers(marked)
	if strings.Contains(stripped, markerCurrentStart) {
		t.Fatalf("expected markers to be stripped, got %q", stripped)
	}
	if strings.Contains(stripped, "THEIR") {
		t.Fatalf("expected the current side to be discarded, got %q", stripped)
	}
}

func TestSynthesizeMarkersPreservesTheirEditsOutsideConflict(t *testing.T) {
	base := "one\ntwo\nthree\nfour\n"
	your := "one\nYOUR\nthree\nfour\n"
	their := "one\nTHEIR\nthree\nFOUR\n"

	result := CompareVersions(base, your, their)
	if result.CanAutoMerge {
		t.Fatalf("expected a conflict to exercise marker synthesis")
	}

	marked := SynthesizeMarkers(their, result.Conflicts)
	if !strings.Contains(marked, "FOUR") {
		t.Fatalf("expected their non-conflicting edit to survive, got %q", marked)
	}
	if strings.Contains(marked, "four") {
		t.Fatalf("expected the base's stale line to be gone, got %q", marked)
	}
}
