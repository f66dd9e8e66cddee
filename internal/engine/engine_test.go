package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/oarkflow/noteforge/internal/lock"
	"github.com/oarkflow/noteforge/internal/model"
	"github.com/oarkflow/noteforge/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, lock.New(time.Minute))
}

func TestSaveFirstWriteInitializes(t *testing.T) {
	e := newTestEngine(t)
	alice := model.Principal{UserID: "alice"}

	result, err := e.Save(alice, "file-1", "notes.txt", model.InitialVersion, "hello", "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if result.Status != model.StatusSaved {
		t.Fatalf("expected status saved, got %v", result.Status)
	}
}

func TestSaveCleanSequentialEdit(t *testing.T) {
	e := newTestEngine(t)
	alice := model.Principal{UserID: "alice"}

	first, err := e.Save(alice, "file-1", "notes.txt", model.InitialVersion, "v1", "")
	if err != nil {
		t.Fatalf("Save 1: %v", err)
	}

	second, err := e.Save(alice, "file-1", "notes.txt", first.VersionID, "v2", "edit")
	if err != nil {
		t.Fatalf("Save 2: %v", err)
	}
	if second.Status != model.StatusSaved {
		t.Fatalf("expected status saved, got %v", second.Status)
	}
}

func TestSaveDisjointEditsAutoMerge(t *testing.T) {
	e := newTestEngine(t)
	alice := model.Principal{UserID: "alice"}
	bob := model.Principal{UserID: "bob"}

	base, err := e.Save(alice, "file-1", "notes.txt", model.InitialVersion, "one\ntwo\nthree", "")
	if err != nil {
		t.Fatalf("Save base: %v", err)
	}

	_, err = e.Save(alice, "file-1", "notes.txt", base.VersionID, "ONE\ntwo\nthree", "")
	if err != nil {
		t.Fatalf("Save alice's edit: %v", err)
	}

	result, err := e.Save(bob, "file-1", "notes.txt", base.VersionID, "one\ntwo\nTHREE", "")
	if err != nil {
		t.Fatalf("Save bob's stale edit: %v", err)
	}
	if result.Status != model.StatusAutoMerged {
		t.Fatalf("expected auto_merged, got %v (conflicts=%v)", result.Status, result.Conflicts)
	}
}

func TestSaveOverlappingEditsConflict(t *testing.T) {
	e := newTestEngine(t)
	alice := model.Principal{UserID: "alice"}
	bob := model.Principal{UserID: "bob"}

	base, err := e.Save(alice, "file-1", "notes.txt", model.InitialVersion, "one\ntwo\nthree", "")
	if err != nil {
		t.Fatalf("Save base: %v", err)
	}

	_, err = e.Save(alice, "file-1", "notes.txt", base.VersionID, "one\nALICE\nthree", "")
	if err != nil {
		t.Fatalf("Save alice's edit: %v", err)
	}

	result, err := e.Save(bob, "file-1", "notes.txt", base.VersionID, "one\nBOB\nthree", "")
	if err != nil {
		t.Fatalf("Save bob's stale edit: %v", err)
	}
	if result.Status != model.StatusConflict {
		t.Fatalf("expected conflict, got %v", result.Status)
	}
	if len(result.Conflicts) == 0 {
		t.Fatalf("expected at least one conflict region")
	}
}

func TestResolveConflictsStripsMarkers(t *testing.T) {
	e := newTestEngine(t)
	alice := model.Principal{UserID: "alice"}

	_, err := e.Save(alice, "file-1", "notes.txt", model.InitialVersion, "one\ntwo", "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	marked := "one\n<<<<<<< CURRENT CHANGES\ntwo-current\n=======\ntwo-yours\n>>>>>>> YOUR CHANGES"
	result, err := e.ResolveConflicts(alice, "file-1", "resolved", marked)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if result.Status != model.StatusSaved {
		t.Fatalf("expected status saved, got %v", result.Status)
	}
}

func TestStartStopEditingRoster(t *testing.T) {
	e := newTestEngine(t)

	editors, err := e.StartEditing("file-1", "alice", "")
	if err != nil {
		t.Fatalf("StartEditing: %v", err)
	}
	if len(editors) != 1 {
		t.Fatalf("expected one active editor, got %d", len(editors))
	}

	editors, err = e.StopEditing("file-1", "alice")
	if err != nil {
		t.Fatalf("StopEditing: %v", err)
	}
	if len(editors) != 0 {
		t.Fatalf("expected no active editors after stop, got %d", len(editors))
	}
}

func TestBranchCreateAndMergeAutoMerge(t *testing.T) {
	e := newTestEngine(t)
	alice := model.Principal{UserID: "alice"}

	base, err := e.Save(alice, "file-1", "notes.txt", model.InitialVersion, "one\ntwo\nthree", "")
	if err != nil {
		t.Fatalf("Save base: %v", err)
	}

	branch, err := e.CreateBranch("file-1", "feature", "alice", base.VersionID, "")
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	// Advance main independently of the branch.
	if _, err := e.Save(alice, "file-1", "notes.txt", base.VersionID, "one\ntwo\nTHREE", ""); err != nil {
		t.Fatalf("Save main edit: %v", err)
	}

	// Advance the branch's head with a disjoint edit.
	meta, err := e.Store.LoadMetadata("file-1")
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if _, err := e.Store.AppendBranchVersion(&meta, branch.BranchID, "alice", "branch edit", "ONE\ntwo\nthree"); err != nil {
		t.Fatalf("AppendBranchVersion: %v", err)
	}

	result, err := e.Merge("file-1", branch.BranchID, "main", "alice", "")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !result.Merged {
		t.Fatalf("expected disjoint branch/main edits to auto-merge, got conflicts=%v", result.Conflicts)
	}
}
