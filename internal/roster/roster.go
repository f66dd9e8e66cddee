// Package roster maintains the per-file active-editor list embedded in
// model.FileMeta, as described in spec §4.D: idempotent register and
// unregister keyed by user_id.
package roster

import (
	"time"

	"github.com/oarkflow/noteforge/internal/model"
)

// Register adds userID to editors, or replaces its existing entry if
// userID is already present, so repeated register calls from the same user
// never produce duplicate entries.
func Register(editors []model.ActiveEditor, userID, branch string, since time.Time) []model.ActiveEditor {
	out := remove(editors, userID)
	return append(out, model.ActiveEditor{
		UserID:       userID,
		EditingSince: since,
		Branch:       branch,
	})
}

// Unregister removes userID's entry from editors, if present.
func Unregister(editors []model.ActiveEditor, userID string) []model.ActiveEditor {
	return remove(editors, userID)
}

// HasOtherActiveEditors reports whether anyone other than userID is listed.
func HasOtherActiveEditors(editors []model.ActiveEditor, userID string) bool {
	for _, e := range editors {
		if e.UserID != userID {
			return true
		}
	}
	return false
}

func remove(editors []model.ActiveEditor, userID string) []model.ActiveEditor {
	out := make([]model.ActiveEditor, 0, len(editors))
	for _, e := range editors {
		if e.UserID == userID {
			continue
		}
		out = append(out, e)
	}
	return out
}
