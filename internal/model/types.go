// Package model holds the data types shared across the versioning engine:
// the persisted file/version/branch graph, the active-editor roster, the
// diff/merge conflict shapes, and the wire-level save status enum.
package model

import "time"

// InitialVersion is the sentinel base_version accepted even on a non-virgin
// file, bypassing the conflict check. Preserved for compatibility; see
// DESIGN.md Open Question 1.
const InitialVersion = "initial"

// PublicUser is the sentinel unauthenticated identity usable for read-only
// access.
const PublicUser = "public"

// Version is an immutable snapshot of a File's content at a point in time.
// Its VersionID and ContentHash never change once written.
type Version struct {
	VersionID   string    `json:"version_id"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id"`
	Message     string    `json:"message,omitempty"`
	ContentHash string    `json:"content_hash"`
}

// Branch is a named divergent line of versions for a File.
type Branch struct {
	BranchID    string    `json:"branch_id"`
	Name        string    `json:"name"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	BaseVersion string    `json:"base_version"`
	HeadVersion string    `json:"head_version"`
}

// ActiveEditor is a transient claim announced by a user editing a File.
type ActiveEditor struct {
	UserID       string    `json:"user_id"`
	EditingSince time.Time `json:"editing_since"`
	Branch       string    `json:"branch,omitempty"`
}

// FileMeta is the single loadable/savable document describing one file's
// entire version graph: its versions, branches, and active editors, all
// cross-referenced by opaque string ID rather than memory reference.
type FileMeta struct {
	FileID         string              `json:"file_id"`
	FileName       string              `json:"file_name"`
	OwnerID        string              `json:"owner_id"`
	TeamID         string              `json:"team_id,omitempty"`
	CurrentVersion string              `json:"current_version"`
	Versions       map[string]Version  `json:"versions"`
	Branches       map[string]Branch   `json:"branches"`
	ActiveEditors  []ActiveEditor      `json:"active_editors"`
	LastModified   time.Time           `json:"last_modified"`
}

// EmptyMeta returns the well-formed empty sentinel a caller sees for a
// file_id that has never been versioned: an empty versions map and
// current_version pinned to the "initial" sentinel.
func EmptyMeta(fileID string) FileMeta {
	return FileMeta{
		FileID:         fileID,
		FileName:       "unknown",
		OwnerID:        "unknown",
		CurrentVersion: InitialVersion,
		Versions:       map[string]Version{},
		Branches:       map[string]Branch{},
		ActiveEditors:  []ActiveEditor{},
	}
}

// IsVirgin reports whether this file has never had a version written.
func (m FileMeta) IsVirgin() bool {
	return len(m.Versions) == 0
}

// TextChange is a single line-granular edit against a base text: a deletion
// expands one base line ([start_line, start_line+1)); an insertion carries
// end_line == start_line.
type TextChange struct {
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
}

// Conflict is an overlapping pair of edits the auto-merge algorithm cannot
// safely resolve, expressed over the submitter's ("your") change range.
type Conflict struct {
	StartLine      int    `json:"start_line"`
	EndLine        int    `json:"end_line"`
	BaseContent    string `json:"base_content"`
	YourContent    string `json:"your_content"`
	CurrentContent string `json:"current_content"`
}

// DiffResult is the output of a three-way compare: the concatenation of
// base→your and base→their line changes, the overlapping conflict regions,
// and whether conflicts is empty.
type DiffResult struct {
	Changes      []TextChange `json:"changes"`
	Conflicts    []Conflict   `json:"conflicts"`
	CanAutoMerge bool         `json:"can_auto_merge"`
}

// SaveStatus is the wire-level outcome of a save, exactly the lowercase set
// {"saved", "conflict", "auto_merged"}.
type SaveStatus string

const (
	StatusSaved      SaveStatus = "saved"
	StatusConflict   SaveStatus = "conflict"
	StatusAutoMerged SaveStatus = "auto_merged"
)

// Principal is the already-resolved (user_id, active_team_id) identity every
// core operation consumes. Authentication and team-membership checks are
// external collaborators; the core only ever sees this resolved value.
type Principal struct {
	UserID       string
	ActiveTeamID string
}

// IsPublic reports whether this principal is the unauthenticated read-only
// sentinel.
func (p Principal) IsPublic() bool {
	return p.UserID == "" || p.UserID == PublicUser
}
