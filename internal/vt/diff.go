package vt

import (
	"fmt"

	"vt-go/internal/model"
)

// ChangeKind is the kind of presentation mutation a Change describes.
type ChangeKind int

const (
	ChangeDelete ChangeKind = iota
	ChangeInsert
	ChangeUpdate
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeDelete:
		return "delete"
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change is a single album mutation. Index refers to the old album for
// deletes and to the new album for inserts and updates.
type Change struct {
	Kind    ChangeKind
	Index   int
	PhotoID string
}

// Reconcile compares two orderings of an album and returns the mutations that
// turn before into after: deletes by descending old index, then inserts by
// ascending new index, then updates by ascending new index. A photo present
// in both is updated when its payload presence or URL changed.
func Reconcile(before, after []*model.Photo) []Change {
	oldByID := make(map[string]*model.Photo, len(before))
	for _, p := range before {
		oldByID[p.ID] = p
	}
	newIDs := make(map[string]struct{}, len(after))
	for _, p := range after {
		newIDs[p.ID] = struct{}{}
	}

	var changes []Change
	for i := len(before) - 1; i >= 0; i-- {
		if _, ok := newIDs[before[i].ID]; !ok {
			changes = append(changes, Change{Kind: ChangeDelete, Index: i, PhotoID: before[i].ID})
		}
	}

	var updates []Change
	for i, p := range after {
		old, ok := oldByID[p.ID]
		if !ok {
			changes = append(changes, Change{Kind: ChangeInsert, Index: i, PhotoID: p.ID})
			continue
		}
		if old.HasData() != p.HasData() || old.URL != p.URL {
			updates = append(updates, Change{Kind: ChangeUpdate, Index: i, PhotoID: p.ID})
		}
	}

	return append(changes, updates...)
}
