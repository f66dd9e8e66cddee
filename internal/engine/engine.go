// Package engine implements the Save Pipeline and Branch Manager from
// spec §4.E/§4.F on top of internal/store, internal/diffmerge, internal/lock,
// and internal/roster: the orchestration layer that turns a wire request
// into a sequence of store reads/writes.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/oarkflow/noteforge/internal/diffmerge"
	"github.com/oarkflow/noteforge/internal/lock"
	"github.com/oarkflow/noteforge/internal/model"
	"github.com/oarkflow/noteforge/internal/roster"
	"github.com/oarkflow/noteforge/internal/store"
)

// Engine ties the persistence, locking, and diff/merge layers together
// behind the operations spec §4 describes. A per-file keyed mutex
// serializes concurrent saves against the same file_id so two stale
// auto-merges can never race each other onto the same current_version
// (spec.md §9, Open Question 3).
type Engine struct {
	Store *store.Store
	Locks *lock.Registry

	fileMu sync.Map // file_id -> *sync.Mutex
}

// New builds an Engine over an already-open Store and Lock Registry.
func New(s *store.Store, locks *lock.Registry) *Engine {
	return &Engine{Store: s, Locks: locks}
}

func (e *Engine) lockFor(fileID string) *sync.Mutex {
	actual, _ := e.fileMu.LoadOrStore(fileID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func ownerKey(userID, teamID string) string {
	if teamID != "" {
		return "teams/" + teamID
	}
	return userID
}

// SaveResult is the outcome of Save: a status plus the information a caller
// needs to react to it (the new or unchanged current version, and any
// conflicts for the caller to render as markers).
type SaveResult struct {
	Status    model.SaveStatus
	VersionID string
	Conflicts []model.Conflict
	Message   string
}

// Save runs the Save Pipeline for one submitted edit: lock gate (checked by
// the caller via CanUserEdit before invoking Save), metadata load,
// base-version comparison, and the conflict/auto-merge/clean-save branches,
// exactly as spec §4.E lays out.
func (e *Engine) Save(principal model.Principal, fileID, fileName, baseVersion, content, message string) (SaveResult, error) {
	mu := e.lockFor(fileID)
	mu.Lock()
	defer mu.Unlock()

	meta, err := e.Store.LoadMetadata(fileID)
	if err != nil {
		return SaveResult{}, err
	}

	if meta.IsVirgin() {
		initialized, err := e.Store.Initialize(fileID, fileName, principal.UserID, principal.ActiveTeamID, principal.UserID, content)
		if err != nil {
			return SaveResult{}, err
		}
		e.mirror(initialized, content, principal)
		return SaveResult{
			Status:    model.StatusSaved,
			VersionID: initialized.CurrentVersion,
			Message:   "file saved with version control enabled",
		}, nil
	}

	if baseVersion != meta.CurrentVersion && baseVersion != model.InitialVersion {
		baseContent, err := e.Store.GetVersionContent(fileID, baseVersion)
		if err != nil {
			return SaveResult{}, err
		}
		currentContent, err := e.Store.GetVersionContent(fileID, meta.CurrentVersion)
		if err != nil {
			return SaveResult{}, err
		}

		if merged, ok := diffmerge.AttemptAutoMerge(baseContent, content, currentContent); ok {
			versionID, err := e.Store.AppendVersion(&meta, principal.UserID, "Auto-merged changes", merged)
			if err != nil {
				return SaveResult{}, err
			}
			e.mirror(meta, merged, principal)
			return SaveResult{
				Status:    model.StatusAutoMerged,
				VersionID: versionID,
				Message:   "changes were automatically merged",
			}, nil
		}

		diff := diffmerge.CompareVersions(baseContent, content, currentContent)
		return SaveResult{
			Status:    model.StatusConflict,
			VersionID: meta.CurrentVersion,
			Conflicts: diff.Conflicts,
			Message:   "conflict detected, resolve manually",
		}, nil
	}

	versionID, err := e.Store.AppendVersion(&meta, principal.UserID, message, content)
	if err != nil {
		return SaveResult{}, err
	}
	e.mirror(meta, content, principal)

	return SaveResult{
		Status:    model.StatusSaved,
		VersionID: versionID,
		Message:   "file saved successfully",
	}, nil
}

func (e *Engine) mirror(meta model.FileMeta, content string, principal model.Principal) {
	e.Store.MirrorWrite(ownerKey(principal.UserID, principal.ActiveTeamID), meta.FileName, content)
}

// ResolveConflicts strips conflict markers from content and writes the
// result as a new version unconditionally — no conflict check is performed
// here, matching the original service's resolve-conflicts endpoint, which
// trusts the caller to have hand-merged the markers it was given.
func (e *Engine) ResolveConflicts(principal model.Principal, fileID, message, markedContent string) (SaveResult, error) {
	mu := e.lockFor(fileID)
	mu.Lock()
	defer mu.Unlock()

	meta, err := e.Store.LoadMetadata(fileID)
	if err != nil {
		return SaveResult{}, err
	}
	resolved := diffmerge.StripMarkers(markedContent)

	versionID, err := e.Store.AppendVersion(&meta, principal.UserID, message, resolved)
	if err != nil {
		return SaveResult{}, err
	}
	e.mirror(meta, resolved, principal)

	return SaveResult{
		Status:    model.StatusSaved,
		VersionID: versionID,
		Message:   "conflicts resolved successfully",
	}, nil
}

// StartEditing registers principal as an active editor of fileID. The
// caller is responsible for having already acquired the edit lock; this
// only updates the roster that's visible to other collaborators.
func (e *Engine) StartEditing(fileID, userID, branch string) ([]model.ActiveEditor, error) {
	mu := e.lockFor(fileID)
	mu.Lock()
	defer mu.Unlock()

	meta, err := e.Store.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}
	editors := roster.Register(meta.ActiveEditors, userID, branch, time.Now())
	if err := e.Store.SaveEditors(&meta, editors); err != nil {
		return nil, err
	}
	return editors, nil
}

// StopEditing removes userID from fileID's active-editor roster.
func (e *Engine) StopEditing(fileID, userID string) ([]model.ActiveEditor, error) {
	mu := e.lockFor(fileID)
	mu.Lock()
	defer mu.Unlock()

	meta, err := e.Store.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}
	editors := roster.Unregister(meta.ActiveEditors, userID)
	if err := e.Store.SaveEditors(&meta, editors); err != nil {
		return nil, err
	}
	return editors, nil
}

// ActiveEditors returns fileID's current roster without modifying it.
func (e *Engine) ActiveEditors(fileID string) ([]model.ActiveEditor, error) {
	meta, err := e.Store.LoadMetadata(fileID)
	if err != nil {
		return nil, err
	}
	return meta.ActiveEditors, nil
}

// History returns fileID's version list, filtered/paginated per
// store.ListVersions, alongside the file's current_version for the
// caller's convenience.
func (e *Engine) History(fileID, branch string, skip, limit int) ([]model.Version, string, int, error) {
	meta, err := e.Store.LoadMetadata(fileID)
	if err != nil {
		return nil, "", 0, err
	}
	versions := store.ListVersions(meta, branch, skip, limit)
	return versions, meta.CurrentVersion, len(meta.Versions), nil
}

// Diff compares two arbitrary versions of fileID as a straight two-way
// diff: base is the "from" version and your and their are both the "to"
// version, matching the original service's diff endpoint, which reuses the
// three-way comparator with its second argument repeated as the third.
func (e *Engine) Diff(fileID, fromVersion, toVersion string) (model.DiffResult, error) {
	fromContent, err := e.Store.GetVersionContent(fileID, fromVersion)
	if err != nil {
		return model.DiffResult{}, err
	}
	toContent, err := e.Store.GetVersionContent(fileID, toVersion)
	if err != nil {
		return model.DiffResult{}, err
	}
	return diffmerge.CompareVersions(fromContent, toContent, toContent), nil
}

// CreateBranch mints a new branch off baseVersion, optionally snapshotting
// initialContent as its first version.
func (e *Engine) CreateBranch(fileID, name, userID, baseVersion, initialContent string) (model.Branch, error) {
	mu := e.lockFor(fileID)
	mu.Lock()
	defer mu.Unlock()

	meta, err := e.Store.LoadMetadata(fileID)
	if err != nil {
		return model.Branch{}, err
	}
	return e.Store.CreateBranch(&meta, name, userID, baseVersion, initialContent)
}

// MergeResult is the outcome of Merge.
type MergeResult struct {
	Merged        bool
	VersionID     string
	Conflicts     []model.Conflict
	MarkedContent string
}

// Merge attempts to fold sourceBranch's head into targetBranch (or the
// file's main line, when targetBranch is "main"/"master"), using the
// source branch's recorded BaseVersion as the common ancestor. On success
// the target's head (or current_version, for main) advances to the new
// merged version; on failure the caller gets both the structured conflicts
// and a pre-rendered marked_content for manual resolution.
func (e *Engine) Merge(fileID, sourceBranch, targetBranch, userID, message string) (MergeResult, error) {
	mu := e.lockFor(fileID)
	mu.Lock()
	defer mu.Unlock()

	meta, err := e.Store.LoadMetadata(fileID)
	if err != nil {
		return MergeResult{}, err
	}

	source, ok := meta.Branches[sourceBranch]
	if !ok {
		return MergeResult{}, model.BadRequest(fmt.Sprintf("source branch %s not found", sourceBranch))
	}

	isMain := targetBranch == "main" || targetBranch == "master"
	var targetVersion string
	if isMain {
		targetVersion = meta.CurrentVersion
	} else {
		target, ok := meta.Branches[targetBranch]
		if !ok {
			return MergeResult{}, model.BadRequest(fmt.Sprintf("target branch %s not found", targetBranch))
		}
		targetVersion = target.HeadVersion
	}

	sourceContent, err := e.Store.GetVersionContent(fileID, source.HeadVersion)
	if err != nil {
		return MergeResult{}, err
	}
	targetContent, err := e.Store.GetVersionContent(fileID, targetVersion)
	if err != nil {
		return MergeResult{}, err
	}
	baseContent := ""
	if source.BaseVersion != model.InitialVersion {
		baseContent, err = e.Store.GetVersionContent(fileID, source.BaseVersion)
		if err != nil {
			return MergeResult{}, err
		}
	}

	if message == "" {
		message = fmt.Sprintf("Merged branch %s into %s", sourceBranch, targetBranch)
	}

	if merged, ok := diffmerge.AttemptAutoMerge(baseContent, sourceContent, targetContent); ok {
		var versionID string
		var err error
		if isMain {
			versionID, err = e.Store.AppendVersion(&meta, userID, message, merged)
		} else {
			versionID, err = e.Store.AppendBranchVersion(&meta, targetBranch, userID, message, merged)
		}
		if err != nil {
			return MergeResult{}, err
		}
		return MergeResult{Merged: true, VersionID: versionID}, nil
	}

	diff := diffmerge.CompareVersions(baseContent, sourceContent, targetContent)
	marked := diffmerge.SynthesizeMarkers(targetContent, diff.Conflicts)
	return MergeResult{
		Merged:        false,
		Conflicts:     diff.Conflicts,
		MarkedContent: marked,
	}, nil
}
