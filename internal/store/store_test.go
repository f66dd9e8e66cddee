package store

import (
	"path/filepath"
	"testing"

	"github.com/oarkflow/noteforge/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadMetadataVirginFileReturnsEmptySentinel(t *testing.T) {
	s := openTestStore(t)

	meta, err := s.LoadMetadata("nope")
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if meta.CurrentVersion != model.InitialVersion {
		t.Fatalf("expected current_version %q, got %q", model.InitialVersion, meta.CurrentVersion)
	}
	if !meta.IsVirgin() {
		t.Fatalf("expected a virgin file")
	}
}

func TestInitializeAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	meta, err := s.Initialize("file-1", "notes.txt", "alice", "", "alice", "hello world")
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if meta.IsVirgin() {
		t.Fatalf("expected exactly one version after Initialize")
	}

	loaded, err := s.LoadMetadata("file-1")
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if loaded.CurrentVersion != meta.CurrentVersion {
		t.Fatalf("current_version mismatch: %q vs %q", loaded.CurrentVersion, meta.CurrentVersion)
	}

	content, err := s.GetVersionContent("file-1", meta.CurrentVersion)
	if err != nil {
		t.Fatalf("GetVersionContent: %v", err)
	}
	if content != "hello world" {
		t.Fatalf("content = %q", content)
	}
}

func TestGetVersionContentMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetVersionContent("file-1", "nonexistent")
	if model.KindOf(err) != model.KindNotFound {
		t.Fatalf("expected a not-found error, got %v", err)
	}
}

func TestAppendVersionAdvancesCurrent(t *testing.T) {
	s := openTestStore(t)
	meta, err := s.Initialize("file-1", "notes.txt", "alice", "", "alice", "v1")
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	v2, err := s.AppendVersion(&meta, "alice", "edit", "v2")
	if err != nil {
		t.Fatalf("AppendVersion: %v", err)
	}
	if meta.CurrentVersion != v2 {
		t.Fatalf("expected current_version to advance to %q, got %q", v2, meta.CurrentVersion)
	}
	if len(meta.Versions) != 2 {
		t.Fatalf("expected two versions, got %d", len(meta.Versions))
	}
}

func TestListVersionsSortedMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	meta, _ := s.Initialize("file-1", "notes.txt", "alice", "", "alice", "v1")
	s.AppendVersion(&meta, "alice", "edit2", "v2")
	s.AppendVersion(&meta, "alice", "edit3", "v3")

	versions := ListVersions(meta, "", 0, 0)
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	if versions[0].VersionID != meta.CurrentVersion {
		t.Fatalf("expected the most recent version first")
	}
}

func TestListVersionsBranchReturnsOnlyHead(t *testing.T) {
	s := openTestStore(t)
	meta, _ := s.Initialize("file-1", "notes.txt", "alice", "", "alice", "v1")

	branch, err := s.CreateBranch(&meta, "feature", "alice", meta.CurrentVersion, "")
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	versions := ListVersions(meta, branch.BranchID, 0, 0)
	if len(versions) != 1 {
		t.Fatalf("expected exactly the branch head, got %d", len(versions))
	}
	if versions[0].VersionID != branch.HeadVersion {
		t.Fatalf("expected the branch head version")
	}
}

func TestCreateBranchRejectsUnknownBaseVersion(t *testing.T) {
	s := openTestStore(t)
	meta, _ := s.Initialize("file-1", "notes.txt", "alice", "", "alice", "v1")

	_, err := s.CreateBranch(&meta, "feature", "alice", "does-not-exist", "")
	if model.KindOf(err) != model.KindBadRequest {
		t.Fatalf("expected a bad-request error for an unknown base version, got %v", err)
	}
}
