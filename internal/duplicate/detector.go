// Package duplicate flags transactions that look like re-entries of an
// earlier transaction in the same file.
package duplicate

import (
	"github.com/Veraticus/reconcile/internal/model"
)

// Groups is an ordered set of duplicate groups. Methods return new values
// and never modify the receiver.
type Groups []model.DuplicateGroup

// Detect groups transactions by similarity key. The first occurrence of a
// key is the original and later occurrences are its duplicates. Only keys
// seen more than once produce a group, ordered by first occurrence.
func Detect(txns []model.Transaction) Groups {
	index := make(map[string]int)
	var all []model.DuplicateGroup

	for _, txn := range txns {
		key := txn.SimilarityKey()
		if i, ok := index[key]; ok {
			all[i].Duplicates = append(all[i].Duplicates, txn)
			continue
		}
		index[key] = len(all)
		all = append(all, model.DuplicateGroup{Key: key, Original: txn})
	}

	groups := make(Groups, 0)
	for _, g := range all {
		if len(g.Duplicates) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// Count is the number of flagged duplicates, excluding originals.
func (g Groups) Count() int {
	n := 0
	for _, group := range g {
		n += len(group.Duplicates)
	}
	return n
}

// DuplicateIDs returns the ids of every flagged duplicate.
func (g Groups) DuplicateIDs() map[string]bool {
	ids := make(map[string]bool, g.Count())
	for _, group := range g {
		for _, d := range group.Duplicates {
			ids[d.ID] = true
		}
	}
	return ids
}

// Dismiss unflags one duplicate. A group whose last duplicate is dismissed
// is dropped. Unknown ids leave the groups unchanged.
func (g Groups) Dismiss(id string) Groups {
	out := make(Groups, 0, len(g))
	for _, group := range g {
		kept := make([]model.Transaction, 0, len(group.Duplicates))
		for _, d := range group.Duplicates {
			if d.ID != id {
				kept = append(kept, d)
			}
		}
		if len(kept) == 0 {
			continue
		}
		group.Duplicates = kept
		out = append(out, group)
	}
	return out
}

// Clear dismisses every group.
func (g Groups) Clear() Groups {
	return Groups{}
}

// Without returns txns minus the flagged duplicates, preserving order.
func Without(txns []model.Transaction, groups Groups) []model.Transaction {
	flagged := groups.DuplicateIDs()
	out := make([]model.Transaction, 0, len(txns))
	for _, txn := range txns {
		if !flagged[txn.ID] {
			out = append(out, txn)
		}
	}
	return out
}
