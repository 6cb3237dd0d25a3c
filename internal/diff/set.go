package diff

import "github.com/nao1215/changemon/internal/model"

// SetDiff is the membership delta between two set snapshots.
type SetDiff struct {
	// Added holds members of the current set missing from the previous one.
	Added []string
	// Removed holds members of the previous set missing from the current one.
	Removed []string
	// Total is the size of the current set.
	Total int
}

// Empty reports whether no member was added or removed.
func (d SetDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Sets computes added = cur - prev and removed = prev - cur, both sorted.
// A nil prev is a first observation: every member of cur is added.
func Sets(prev, cur *model.SetSnapshot) SetDiff {
	var oldMembers, newMembers []string
	if prev != nil {
		oldMembers = prev.Members
	}
	if cur != nil {
		newMembers = cur.Members
	}

	d := SetDiff{
		Added:   []string{},
		Removed: []string{},
		Total:   len(newMembers),
	}

	// Both member lists are sorted and unique, so one merge pass suffices.
	i, j := 0, 0
	for i < len(oldMembers) && j < len(newMembers) {
		switch {
		case oldMembers[i] == newMembers[j]:
			i++
			j++
		case oldMembers[i] < newMembers[j]:
			d.Removed = append(d.Removed, oldMembers[i])
			i++
		default:
			d.Added = append(d.Added, newMembers[j])
			j++
		}
	}
	d.Removed = append(d.Removed, oldMembers[i:]...)
	d.Added = append(d.Added, newMembers[j:]...)
	return d
}
