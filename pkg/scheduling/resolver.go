package scheduling

import "time"

// SlotQuery carries everything needed to judge one (weekday, timeslot) pair.
type SlotQuery struct {
	Weekday    time.Weekday
	TimeslotID string
	StartDate  time.Time
	EndDate    time.Time

	Blocked        BlockedDayMap
	Busy           []BusyInterval
	InstructorType InstructorType
	// PartTimeSlots lists pairs a part-time instructor registered for.
	PartTimeSlots SlotKeySet
	// RegistrationUnknown skips the part-time check when the registry could
	// not be read.
	RegistrationUnknown bool

	LockedTimeslotID string
	IsDraftClass     bool

	Pattern         WeeklyPattern
	Catalog         TimeslotCatalog
	SessionsPerWeek int
	// TotalSessions sizes the default window when EndDate is zero. Values
	// below 1 mean DefaultTotalSessions.
	TotalSessions int
	// OwnSessions holds (date, timeslot) pairs already owned by the class
	// under edit; OTHER entries on them do not lock.
	OwnSessions map[DateSlotKey]struct{}
	// LockThreshold is the number of busy entries that locks a slot.
	// Values below 1 mean 1.
	LockThreshold int
}

// WithSlot returns a copy of the query pointed at another pair.
func (q SlotQuery) WithSlot(day time.Weekday, timeslotID string) SlotQuery {
	q.Weekday = day
	q.TimeslotID = timeslotID
	return q
}

func available() SlotStatus {
	return SlotStatus{Status: StatusAvailable}
}

func locked(reason LockReason, source StatusSource, count int) SlotStatus {
	return SlotStatus{
		Status:    StatusLocked,
		Reason:    reason,
		Message:   reason.Message(),
		Source:    source,
		BusyCount: count,
	}
}

// ResolveSlotStatus decides whether the pair is AVAILABLE or LOCKED. Rules are
// checked in a fixed order and the first match wins; malformed input degrades
// to AVAILABLE.
func ResolveSlotStatus(q SlotQuery) SlotStatus {
	if !ValidWeekday(q.Weekday) || q.TimeslotID == "" || q.StartDate.IsZero() {
		return available()
	}

	if q.IsDraftClass && q.LockedTimeslotID != "" && q.LockedTimeslotID != q.TimeslotID {
		return locked(ReasonDraftTimeslot, StatusSourceDraft, 0)
	}

	if block, ok := q.Blocked[q.Weekday]; ok {
		if block.WholeDay {
			return locked(ReasonDayBlocked, StatusSourceBlockedDay, 0)
		}
		if block.Blocks(q.TimeslotID) {
			return locked(ReasonSlotBlocked, StatusSourceBlockedDay, 0)
		}
	}

	if q.InstructorType == InstructorPartTime && !q.RegistrationUnknown && !q.PartTimeSlots.Has(q.Weekday, q.TimeslotID) {
		return locked(ReasonNotRegistered, StatusSourceRegistration, 0)
	}

	start := DateOf(q.StartDate)
	end := EffectiveEndDate(start, q.EndDate, q.Pattern, q.Catalog, q.SessionsPerWeek, q.TotalSessions)

	var sessions, holidays, others int
	for _, entry := range q.Busy {
		if entry.Weekday != q.Weekday || entry.TimeslotID != q.TimeslotID {
			continue
		}
		if !entry.Recurring() {
			date := DateOf(*entry.Date)
			if date.Before(start) || date.After(end) {
				continue
			}
		}
		switch entry.Status {
		case BusySession:
			sessions++
		case BusyHoliday:
			holidays++
		case BusyOther:
			if q.ownsEntry(entry) {
				continue
			}
			others++
		}
	}

	count := sessions + holidays + others
	threshold := q.LockThreshold
	if threshold < 1 {
		threshold = 1
	}
	if count < threshold {
		return available()
	}
	switch {
	case sessions > 0:
		return locked(ReasonSessionBooked, StatusSourceSession, count)
	case holidays > 0:
		return locked(ReasonHoliday, StatusSourceInstructorTimeslot, count)
	default:
		return locked(ReasonOtherCommitted, StatusSourceInstructorTimeslot, count)
	}
}

func (q SlotQuery) ownsEntry(entry BusyInterval) bool {
	if entry.Recurring() || len(q.OwnSessions) == 0 {
		return false
	}
	_, ok := q.OwnSessions[NewDateSlotKey(*entry.Date, entry.TimeslotID)]
	return ok
}

// PartTimeAvailability collects the pairs a part-time instructor registered
// as available.
func PartTimeAvailability(busy []BusyInterval) SlotKeySet {
	set := make(SlotKeySet)
	for _, entry := range busy {
		if entry.Status == BusyAvailable {
			set.Add(entry.Weekday, entry.TimeslotID)
		}
	}
	return set
}

// OwnSessionKeys indexes the sessions of the class under edit.
func OwnSessionKeys(refs []SessionRef) map[DateSlotKey]struct{} {
	keys := make(map[DateSlotKey]struct{}, len(refs))
	for _, ref := range refs {
		keys[ref.Key()] = struct{}{}
	}
	return keys
}

// SlotVerdict pairs a slot with its resolved status.
type SlotVerdict struct {
	Weekday    time.Weekday `json:"weekday"`
	TimeslotID string       `json:"timeslotId"`
	SlotStatus
}

// SlotGrid is the resolution of every pair in a pattern.
type SlotGrid []SlotVerdict

// AllAvailable reports whether every pair resolved AVAILABLE. An empty grid
// is not considered available.
func (g SlotGrid) AllAvailable() bool {
	if len(g) == 0 {
		return false
	}
	for _, verdict := range g {
		if !verdict.Available() {
			return false
		}
	}
	return true
}

// AvailableCount counts AVAILABLE pairs.
func (g SlotGrid) AvailableCount() int {
	count := 0
	for _, verdict := range g {
		if verdict.Available() {
			count++
		}
	}
	return count
}

// ResolveGrid resolves every (weekday, timeslot) pair of pattern using the
// shared context in base.
func ResolveGrid(base SlotQuery, pattern WeeklyPattern) SlotGrid {
	pattern = pattern.Normalize()
	var grid SlotGrid
	for _, day := range pattern.Days() {
		for _, id := range pattern[day] {
			grid = append(grid, SlotVerdict{
				Weekday:    day,
				TimeslotID: id,
				SlotStatus: ResolveSlotStatus(base.WithSlot(day, id)),
			})
		}
	}
	return grid
}
