package scheduling

import (
	"sort"
	"time"
)

// ScheduleDiff lists sessions removed and introduced by a reschedule.
type ScheduleDiff struct {
	Lost  []SessionRef `json:"lost"`
	Added []SessionRef `json:"added"`
}

// Empty reports whether the schedules are identical.
func (d ScheduleDiff) Empty() bool {
	return len(d.Lost) == 0 && len(d.Added) == 0
}

// ComputeLostSessions returns the old sessions that fall before newStart when
// the course start moves later. Moving the start earlier loses nothing.
func ComputeLostSessions(old []SessionRef, oldStart, newStart time.Time) []SessionRef {
	oldStart, newStart = DateOf(oldStart), DateOf(newStart)
	if newStart.IsZero() || !newStart.After(oldStart) {
		return nil
	}
	var lost []SessionRef
	for _, ref := range old {
		if DateOf(ref.Date).Before(newStart) {
			lost = append(lost, ref)
		}
	}
	sortRefs(lost)
	return lost
}

// ComputeScheduleDiff keys both schedules by (date, timeslot) and returns the
// entries present on only one side.
func ComputeScheduleDiff(old, updated []SessionRef) ScheduleDiff {
	oldKeys := indexRefs(old)
	newKeys := indexRefs(updated)

	var diff ScheduleDiff
	for key, ref := range oldKeys {
		if _, ok := newKeys[key]; !ok {
			diff.Lost = append(diff.Lost, ref)
		}
	}
	for key, ref := range newKeys {
		if _, ok := oldKeys[key]; !ok {
			diff.Added = append(diff.Added, ref)
		}
	}
	sortRefs(diff.Lost)
	sortRefs(diff.Added)
	return diff
}

func indexRefs(refs []SessionRef) map[DateSlotKey]SessionRef {
	out := make(map[DateSlotKey]SessionRef, len(refs))
	for _, ref := range refs {
		key := ref.Key()
		if _, ok := out[key]; ok {
			continue
		}
		out[key] = ref
	}
	return out
}

func sortRefs(refs []SessionRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		if !refs[i].Date.Equal(refs[j].Date) {
			return refs[i].Date.Before(refs[j].Date)
		}
		return refs[i].TimeslotID < refs[j].TimeslotID
	})
}

// SessionRefs converts candidates into diff keys.
func SessionRefs(candidates []SessionCandidate) []SessionRef {
	refs := make([]SessionRef, 0, len(candidates))
	for _, c := range candidates {
		refs = append(refs, c.Ref())
	}
	return refs
}
