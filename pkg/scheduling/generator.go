package scheduling

import (
	"sort"
	"time"
)

// ExtensionCeilingFactor bounds the extension walk to this many weeks per
// skipped session.
const ExtensionCeilingFactor = 20

// GenerateInput is the snapshot consumed by GenerateSessions.
type GenerateInput struct {
	StartDate time.Time
	// EndDate closes the primary walk. When zero it is estimated from the
	// pattern and TargetSessions.
	EndDate        time.Time
	Pattern        WeeklyPattern
	Catalog        TimeslotCatalog
	TargetSessions int
	// Busy entries only matter when they are dated OTHER or HOLIDAY.
	Busy []BusyInterval
}

// SessionPlan is the ordered outcome of a generation run.
type SessionPlan struct {
	Sessions  []SessionCandidate `json:"sessions"`
	Normal    int                `json:"normal"`
	Skipped   int                `json:"skipped"`
	Extended  int                `json:"extended"`
	EndDate   time.Time          `json:"endDate"`
	Exhausted bool               `json:"exhausted"`
}

// Persistable returns the NORMAL and EXTENDED sessions in plan order.
func (p SessionPlan) Persistable() []SessionCandidate {
	out := make([]SessionCandidate, 0, p.Normal+p.Extended)
	for _, session := range p.Sessions {
		if session.Persistable() {
			out = append(out, session)
		}
	}
	return out
}

// Empty reports whether the run produced nothing.
func (p SessionPlan) Empty() bool {
	return len(p.Sessions) == 0
}

type skipIndex map[DateSlotKey]struct{}

func newSkipIndex(busy []BusyInterval) skipIndex {
	idx := make(skipIndex)
	for _, entry := range busy {
		if entry.Recurring() {
			continue
		}
		if entry.Status != BusyOther && entry.Status != BusyHoliday {
			continue
		}
		idx[NewDateSlotKey(*entry.Date, entry.TimeslotID)] = struct{}{}
	}
	return idx
}

func (s skipIndex) busy(day time.Time, ids ...string) bool {
	for _, id := range ids {
		if _, ok := s[NewDateSlotKey(day, id)]; ok {
			return true
		}
	}
	return false
}

type placement struct {
	selectedID string
	slot       Timeslot
}

// placementsFor resolves the pattern's timeslots for day, ordered by start time.
func placementsFor(day time.Time, pattern WeeklyPattern, catalog TimeslotCatalog) []placement {
	ids := pattern[day.Weekday()]
	out := make([]placement, 0, len(ids))
	for _, id := range ids {
		slot, ok := catalog.Resolve(day.Weekday(), id)
		if !ok {
			continue
		}
		out = append(out, placement{selectedID: id, slot: slot})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].slot.StartTime != out[j].slot.StartTime {
			return out[i].slot.StartTime < out[j].slot.StartTime
		}
		return out[i].slot.ID < out[j].slot.ID
	})
	return out
}

func candidate(day time.Time, p placement, kind SessionType) SessionCandidate {
	return SessionCandidate{
		Date:       day,
		Weekday:    day.Weekday(),
		TimeslotID: p.slot.ID,
		StartTime:  p.slot.StartTime,
		EndTime:    p.slot.EndTime,
		Type:       kind,
	}
}

// GenerateSessions enumerates the concrete session dates of a course. Dated
// OTHER/HOLIDAY commitments turn an occurrence into SKIPPED, and every skip
// is compensated with an EXTENDED session after the last NORMAL one. A skip
// still uses up one of the planned occurrences, so the primary walk stops
// once NORMAL plus SKIPPED reaches TargetSessions.
func GenerateSessions(in GenerateInput) SessionPlan {
	pattern := in.Pattern.Normalize()
	start := DateOf(in.StartDate)
	if start.IsZero() || in.TargetSessions <= 0 || len(pattern) == 0 || len(in.Catalog) == 0 {
		return SessionPlan{}
	}

	end := DateOf(in.EndDate)
	if end.IsZero() {
		estimated, ok := EstimateEndDate(start, in.TargetSessions, pattern, in.Catalog)
		if !ok {
			return SessionPlan{}
		}
		end = estimated
	}

	skips := newSkipIndex(in.Busy)
	seen := make(map[DateSlotKey]struct{})
	plan := SessionPlan{EndDate: end}
	var lastNormal time.Time
	var lastVisited time.Time

primary:
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, p := range placementsFor(day, pattern, in.Catalog) {
			if plan.Normal+plan.Skipped >= in.TargetSessions {
				break primary
			}
			key := NewDateSlotKey(day, p.slot.ID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			lastVisited = day
			if skips.busy(day, p.slot.ID, p.selectedID) {
				plan.Sessions = append(plan.Sessions, candidate(day, p, SessionSkipped))
				plan.Skipped++
				continue
			}
			plan.Sessions = append(plan.Sessions, candidate(day, p, SessionNormal))
			plan.Normal++
			lastNormal = day
		}
	}

	if plan.Skipped > 0 {
		from := lastNormal
		if from.IsZero() {
			from = lastVisited
		}
		from = from.AddDate(0, 0, 1)
		limit := from.AddDate(0, 0, 7*ExtensionCeilingFactor*plan.Skipped)

	extension:
		for day := from; day.Before(limit); day = day.AddDate(0, 0, 1) {
			for _, p := range placementsFor(day, pattern, in.Catalog) {
				if plan.Extended >= plan.Skipped {
					break extension
				}
				key := NewDateSlotKey(day, p.slot.ID)
				if _, dup := seen[key]; dup {
					continue
				}
				if skips.busy(day, p.slot.ID, p.selectedID) {
					continue
				}
				seen[key] = struct{}{}
				plan.Sessions = append(plan.Sessions, candidate(day, p, SessionExtended))
				plan.Extended++
			}
		}
		plan.Exhausted = plan.Extended < plan.Skipped
	}

	sortCandidates(plan.Sessions)
	for i := range plan.Sessions {
		plan.Sessions[i].SequenceNumber = i + 1
	}
	return plan
}

func sortCandidates(list []SessionCandidate) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.TimeslotID < b.TimeslotID
	})
}
