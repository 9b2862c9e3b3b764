package diff

import (
	"fmt"

	"github.com/everstacklabs/modelmeter/internal/registry"
)

// ChangeSet is the difference between two catalogue versions.
type ChangeSet struct {
	OldVersion      string
	NewVersion      string
	New             []ModelChange
	Updated         []ModelUpdate
	Removed         []ModelChange
	PossibleRenames []RenamePair
	Unchanged       int
}

// ModelChange represents an added or removed model.
type ModelChange struct {
	Key   string
	Model registry.Model
}

// ModelUpdate represents an existing model with field changes.
type ModelUpdate struct {
	Key     string
	Model   registry.Model
	Changes []registry.FieldChange
}

// RenamePair represents a possible rename (old key disappeared, new appeared).
type RenamePair struct {
	OldKey string
	NewKey string
	Reason string // e.g., "same provider, similar limits/price"
}

// HasChanges reports whether the changeset has any modifications.
func (cs *ChangeSet) HasChanges() bool {
	return len(cs.New) > 0 || len(cs.Updated) > 0 || len(cs.Removed) > 0 || len(cs.PossibleRenames) > 0
}

// TotalChanged returns the count of new + updated models.
func (cs *ChangeSet) TotalChanged() int {
	return len(cs.New) + len(cs.Updated)
}

// Violations lists key-stability breaches. Keys are persisted on chats and
// messages, so removing or renaming one is never allowed.
func (cs *ChangeSet) Violations() []string {
	var out []string
	for _, rp := range cs.PossibleRenames {
		out = append(out, fmt.Sprintf("%s was renamed to %s? keys must never be renamed; add %s and deprecate %s",
			rp.OldKey, rp.NewKey, rp.NewKey, rp.OldKey))
	}
	for _, mc := range cs.Removed {
		out = append(out, fmt.Sprintf("%s was removed; flag it deprecated instead", mc.Key))
	}
	return out
}

// Deprecated returns the keys of models newly flagged deprecated.
func (cs *ChangeSet) Deprecated() []string {
	var out []string
	for _, u := range cs.Updated {
		for _, c := range u.Changes {
			if c.Field == "deprecated" && c.NewValue == true {
				out = append(out, u.Key)
			}
		}
	}
	return out
}
