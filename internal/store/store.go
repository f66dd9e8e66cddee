// Package store is the content-addressed, bbolt-backed Version Store
// described in spec §4.A: one document of model.FileMeta per file, plus an
// immutable content blob per (file_id, version_id) pair.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/google/uuid"
	"github.com/oarkflow/json"

	"github.com/oarkflow/noteforge/internal/model"
)

const (
	metaBucket    = "file_meta"
	contentBucket = "file_content"
)

// Store is the bbolt-backed persistence layer. The zero value is not
// usable; construct with Open.
type Store struct {
	db *bbolt.DB
	// MirrorDir, when non-empty, receives a best-effort plain-text copy of
	// each saved file's latest content, mirroring the legacy on-disk layout
	// the original service maintained alongside its version store.
	MirrorDir string
}

// Open opens (or creates) the bbolt database at path and ensures both
// top-level buckets exist, the same init-on-open pattern the teacher's own
// NewStorage uses.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(metaBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(contentBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bbolt handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func contentKey(fileID, versionID string) []byte {
	return []byte(fileID + "/" + versionID)
}

// LoadMetadata returns the FileMeta document for fileID, or the well-formed
// empty sentinel (current_version == "initial") if the file has never been
// versioned. It never returns a not-found error for this reason: an absent
// file_id is a valid, just-virgin, state.
func (s *Store) LoadMetadata(fileID string) (model.FileMeta, error) {
	var meta model.FileMeta
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(metaBucket))
		data := b.Get([]byte(fileID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &meta)
	})
	if err != nil {
		return model.FileMeta{}, fmt.Errorf("load metadata %s: %w", fileID, err)
	}
	if !found {
		return model.EmptyMeta(fileID), nil
	}
	return meta, nil
}

// SaveMetadata persists meta as fileID's document, overwriting whatever was
// there before.
func (s *Store) SaveMetadata(meta model.FileMeta) error {
	meta.LastModified = time.Now()
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(metaBucket))
		return b.Put([]byte(meta.FileID), data)
	})
}

// PutVersion writes content immutably under (fileID, versionID). Versions
// are write-once; callers never overwrite an existing key.
func (s *Store) PutVersion(fileID, versionID, content string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(contentBucket))
		return b.Put(contentKey(fileID, versionID), []byte(content))
	})
}

// GetVersionContent returns the immutable blob for (fileID, versionID), or
// a model.NotFound error if it was never written.
func (s *Store) GetVersionContent(fileID, versionID string) (string, error) {
	var content []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(contentBucket))
		content = b.Get(contentKey(fileID, versionID))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read version content: %w", err)
	}
	if content == nil {
		return "", model.NotFound(fmt.Sprintf("version %s of file %s", versionID, fileID))
	}
	return string(content), nil
}

// ContentHash computes the SHA-256 hex digest spec §3 calls an opaque
// fingerprint: recorded for integrity/dedup purposes, never consulted by
// the diff/merge algorithm.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Initialize mints the first version of a virgin file: a fresh version_id,
// its content hash, and a metadata document with current_version pointed at
// it. Called lazily by the save pipeline the first time a file_id is seen.
func (s *Store) Initialize(fileID, fileName, ownerID, teamID, userID, content string) (model.FileMeta, error) {
	versionID := uuid.NewString()
	meta := model.FileMeta{
		FileID:   fileID,
		FileName: fileName,
		OwnerID:  ownerID,
		TeamID:   teamID,
		Versions: map[string]model.Version{
			versionID: {
				VersionID:   versionID,
				Timestamp:   time.Now(),
				UserID:      userID,
				Message:     "Initial version",
				ContentHash: ContentHash(content),
			},
		},
		Branches:       map[string]model.Branch{},
		ActiveEditors:  []model.ActiveEditor{},
		CurrentVersion: versionID,
	}
	if err := s.PutVersion(fileID, versionID, content); err != nil {
		return model.FileMeta{}, fmt.Errorf("write initial version: %w", err)
	}
	if err := s.SaveMetadata(meta); err != nil {
		return model.FileMeta{}, fmt.Errorf("save initial metadata: %w", err)
	}
	return meta, nil
}

// writeVersion mints a new version_id for content authored by userID, writes
// the blob, and records it in meta.Versions, but does not touch
// meta.CurrentVersion or persist meta itself — callers decide whether the
// new version becomes the mainline head (AppendVersion) or only a branch
// head (CreateBranch, branch-merge bookkeeping).
func (s *Store) writeVersion(meta *model.FileMeta, userID, message, content string) (string, error) {
	versionID := uuid.NewString()
	if meta.Versions == nil {
		meta.Versions = map[string]model.Version{}
	}
	meta.Versions[versionID] = model.Version{
		VersionID:   versionID,
		Timestamp:   time.Now(),
		UserID:      userID,
		Message:     message,
		ContentHash: ContentHash(content),
	}
	if err := s.PutVersion(meta.FileID, versionID, content); err != nil {
		return "", fmt.Errorf("write version: %w", err)
	}
	return versionID, nil
}

// AppendVersion mints a new version_id for content authored by userID,
// writes the blob, records it in meta.Versions, advances
// meta.CurrentVersion, and persists the updated document. Returns the new
// version_id.
func (s *Store) AppendVersion(meta *model.FileMeta, userID, message, content string) (string, error) {
	versionID, err := s.writeVersion(meta, userID, message, content)
	if err != nil {
		return "", err
	}
	meta.CurrentVersion = versionID
	if err := s.SaveMetadata(*meta); err != nil {
		return "", fmt.Errorf("save metadata: %w", err)
	}
	return versionID, nil
}

// AppendBranchVersion mints a new version for content authored by userID and
// advances branchID's head to it, leaving meta.CurrentVersion untouched.
// Used by the Branch Manager to record branch-only history.
func (s *Store) AppendBranchVersion(meta *model.FileMeta, branchID, userID, message, content string) (string, error) {
	versionID, err := s.writeVersion(meta, userID, message, content)
	if err != nil {
		return "", err
	}
	if err := s.UpdateBranchHead(meta, branchID, versionID); err != nil {
		return "", err
	}
	return versionID, nil
}

// MirrorWrite best-effort mirrors content to a flat file under MirrorDir,
// preserving the legacy "./storage/{owner}/{file_name}" layout the original
// service wrote alongside its version store. Failures are logged, never
// surfaced to the caller: the mirror is a convenience, not a source of
// truth, per spec.md's characterization of it as non-invariant.
func (s *Store) MirrorWrite(ownerOrTeam, fileName, content string) {
	if s.MirrorDir == "" {
		return
	}
	dir := filepath.Join(s.MirrorDir, ownerOrTeam)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("warn msg=\"mirror mkdir failed\" dir=%q err=%v", dir, err)
		return
	}
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Printf("warn msg=\"mirror write failed\" path=%q err=%v", path, err)
	}
}

// SaveEditors replaces meta's active-editor roster with editors and persists
// meta; the roster package supplies the pure register/unregister logic.
func (s *Store) SaveEditors(meta *model.FileMeta, editors []model.ActiveEditor) error {
	meta.ActiveEditors = editors
	return s.SaveMetadata(*meta)
}

// CreateBranch mints a branch pinned to baseVersion, validating that
// baseVersion exists in meta.Versions or is the "initial" sentinel. If
// initialContent is non-empty, a new version is written first and used as
// the branch head (the branch's base stays baseVersion), matching the
// original service's "branch with snapshot" behavior.
func (s *Store) CreateBranch(meta *model.FileMeta, name, userID, baseVersion, initialContent string) (model.Branch, error) {
	if baseVersion != model.InitialVersion {
		if _, ok := meta.Versions[baseVersion]; !ok {
			return model.Branch{}, model.BadRequest(fmt.Sprintf("base version %s does not exist", baseVersion))
		}
	}

	head := baseVersion
	if initialContent != "" {
		newHead, err := s.writeVersion(meta, userID, fmt.Sprintf("Created branch: %s", name), initialContent)
		if err != nil {
			return model.Branch{}, err
		}
		head = newHead
	}

	branch := model.Branch{
		BranchID:    uuid.NewString(),
		Name:        name,
		CreatedBy:   userID,
		CreatedAt:   time.Now(),
		BaseVersion: baseVersion,
		HeadVersion: head,
	}
	if meta.Branches == nil {
		meta.Branches = map[string]model.Branch{}
	}
	meta.Branches[branch.BranchID] = branch
	if err := s.SaveMetadata(*meta); err != nil {
		return model.Branch{}, err
	}
	return branch, nil
}

// UpdateBranchHead advances branchID's head to versionID and persists it.
func (s *Store) UpdateBranchHead(meta *model.FileMeta, branchID, versionID string) error {
	branch, ok := meta.Branches[branchID]
	if !ok {
		return model.NotFound(fmt.Sprintf("branch %s", branchID))
	}
	branch.HeadVersion = versionID
	meta.Branches[branchID] = branch
	return s.SaveMetadata(*meta)
}

// ListVersions returns meta's versions sorted by timestamp, most recent
// first, paginated by skip/limit. If branch is non-empty, only that
// branch's head version is returned — an explicitly preserved, if
// underspecified, behavior: branches do not carry independent history in
// this model, only a head pointer into the shared version set.
func ListVersions(meta model.FileMeta, branch string, skip, limit int) []model.Version {
	if branch != "" {
		b, ok := meta.Branches[branch]
		if !ok {
			return nil
		}
		v, ok := meta.Versions[b.HeadVersion]
		if !ok {
			return nil
		}
		return []model.Version{v}
	}

	all := make([]model.Version, 0, len(meta.Versions))
	for _, v := range meta.Versions {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].VersionID > all[j].VersionID
		}
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	if skip >= len(all) {
		return nil
	}
	all = all[skip:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
