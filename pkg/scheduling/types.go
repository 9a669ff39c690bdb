// Package scheduling holds the pure class-session scheduling engine: slot
// availability, end-date estimation, session generation, alternative start
// search and schedule diffs. Every function works on value snapshots and
// keeps no state between calls.
package scheduling

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire format for civil dates.
const DateLayout = "2006-01-02"

// DateOf strips the clock from t and returns the civil date at UTC midnight.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// FormatDate renders a civil date, or an empty string for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ValidWeekday reports whether day is within Sunday(0)..Saturday(6).
func ValidWeekday(day time.Weekday) bool {
	return day >= time.Sunday && day <= time.Saturday
}

// WeeklyPattern maps a weekday to the timeslot ids selected for it.
type WeeklyPattern map[time.Weekday][]string

// Normalize returns a copy without invalid weekdays, blank ids or duplicates.
func (p WeeklyPattern) Normalize() WeeklyPattern {
	out := make(WeeklyPattern, len(p))
	for day, slots := range p {
		if !ValidWeekday(day) {
			continue
		}
		seen := make(map[string]bool, len(slots))
		var ids []string
		for _, id := range slots {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			out[day] = ids
		}
	}
	return out
}

// WeeklyRate is the number of sessions one week of the pattern yields.
func (p WeeklyPattern) WeeklyRate() int {
	total := 0
	for _, slots := range p.Normalize() {
		total += len(slots)
	}
	return total
}

// Days lists configured weekdays in ascending order.
func (p WeeklyPattern) Days() []time.Weekday {
	days := make([]time.Weekday, 0, len(p))
	for day, slots := range p.Normalize() {
		if len(slots) > 0 {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// Has reports whether the weekday carries at least one timeslot.
func (p WeeklyPattern) Has(day time.Weekday) bool {
	return len(p[day]) > 0 && ValidWeekday(day)
}

// Timeslot is one time-of-day window of the catalog. A nil Weekday means the
// record applies to every day.
type Timeslot struct {
	ID        string        `json:"id"`
	Weekday   *time.Weekday `json:"weekday,omitempty"`
	StartTime string        `json:"startTime"`
	EndTime   string        `json:"endTime"`
}

func (t Timeslot) sameWindow(other Timeslot) bool {
	return t.StartTime == other.StartTime && t.EndTime == other.EndTime
}

// TimeslotCatalog is the canonical list of timeslot records.
type TimeslotCatalog []Timeslot

// Find returns the record with the given id.
func (c TimeslotCatalog) Find(id string) (Timeslot, bool) {
	for _, slot := range c {
		if slot.ID == id {
			return slot, true
		}
	}
	return Timeslot{}, false
}

// Resolve maps a selected timeslot onto the concrete record used on weekday:
// a weekday-specific record with the same window wins, then a weekday-agnostic
// one, then the selection itself when it fits the weekday.
func (c TimeslotCatalog) Resolve(day time.Weekday, selectedID string) (Timeslot, bool) {
	selected, ok := c.Find(selectedID)
	if !ok {
		return Timeslot{}, false
	}
	for _, slot := range c {
		if slot.Weekday != nil && *slot.Weekday == day && slot.sameWindow(selected) {
			return slot, true
		}
	}
	for _, slot := range c {
		if slot.Weekday == nil && slot.sameWindow(selected) {
			return slot, true
		}
	}
	if selected.Weekday == nil || *selected.Weekday == day {
		return selected, true
	}
	return Timeslot{}, false
}

// ForWeekday lists the records usable on the given weekday.
func (c TimeslotCatalog) ForWeekday(day time.Weekday) []Timeslot {
	var out []Timeslot
	for _, slot := range c {
		if slot.Weekday == nil || *slot.Weekday == day {
			out = append(out, slot)
		}
	}
	return out
}

// BusyStatus classifies an instructor commitment.
type BusyStatus string

const (
	BusyHoliday   BusyStatus = "HOLIDAY"
	BusyOther     BusyStatus = "OTHER"
	BusySession   BusyStatus = "SESSION"
	BusyAvailable BusyStatus = "AVAILABLE"
)

// BusySource tells where a busy entry was read from.
type BusySource string

const (
	SourceInstructorTimeslot BusySource = "INSTRUCTORTIMESLOT"
	SourceSession            BusySource = "SESSION"
)

// BusyInterval is one normalised instructor commitment. A nil Date marks a
// weekly recurring entry.
type BusyInterval struct {
	Weekday    time.Weekday `json:"weekday"`
	Date       *time.Time   `json:"date,omitempty"`
	TimeslotID string       `json:"timeslotId"`
	Status     BusyStatus   `json:"status"`
	Source     BusySource   `json:"source"`
	ClassID    string       `json:"classId,omitempty"`
	SessionID  string       `json:"sessionId,omitempty"`
}

// Recurring reports whether the entry has no explicit date.
func (b BusyInterval) Recurring() bool {
	return b.Date == nil || b.Date.IsZero()
}

// BlockedDay is the recurrence analysis result for one weekday.
type BlockedDay struct {
	WholeDay  bool     `json:"wholeDay"`
	Timeslots []string `json:"timeslots,omitempty"`
}

// Blocks reports whether the timeslot is blocked on this day.
func (b BlockedDay) Blocks(timeslotID string) bool {
	for _, id := range b.Timeslots {
		if id == timeslotID {
			return true
		}
	}
	return false
}

// BlockedDayMap holds per-weekday blocks derived from recurrence statistics.
type BlockedDayMap map[time.Weekday]BlockedDay

// InstructorType distinguishes full-time and part-time instructors.
type InstructorType string

const (
	InstructorFullTime InstructorType = "FULLTIME"
	InstructorPartTime InstructorType = "PARTTIME"
)

// SlotKey identifies a recurring (weekday, timeslot) pair.
type SlotKey struct {
	Weekday    time.Weekday
	TimeslotID string
}

// SlotKeySet is a set of recurring pairs.
type SlotKeySet map[SlotKey]struct{}

// Add inserts a pair.
func (s SlotKeySet) Add(day time.Weekday, timeslotID string) {
	s[SlotKey{Weekday: day, TimeslotID: timeslotID}] = struct{}{}
}

// Has reports membership.
func (s SlotKeySet) Has(day time.Weekday, timeslotID string) bool {
	_, ok := s[SlotKey{Weekday: day, TimeslotID: timeslotID}]
	return ok
}

// DateSlotKey identifies one dated occurrence of a timeslot.
type DateSlotKey struct {
	Date       string
	TimeslotID string
}

// NewDateSlotKey builds a key from a date and timeslot id.
func NewDateSlotKey(date time.Time, timeslotID string) DateSlotKey {
	return DateSlotKey{Date: FormatDate(DateOf(date)), TimeslotID: timeslotID}
}

// Availability is the outcome of a slot resolution.
type Availability string

const (
	StatusAvailable Availability = "AVAILABLE"
	StatusLocked    Availability = "LOCKED"
)

// LockReason is a stable code explaining a LOCKED status.
type LockReason string

const (
	ReasonNone           LockReason = ""
	ReasonDraftTimeslot  LockReason = "DRAFT_TIMESLOT"
	ReasonDayBlocked     LockReason = "RECURRING_DAY_BLOCKED"
	ReasonSlotBlocked    LockReason = "RECURRING_SLOT_BLOCKED"
	ReasonNotRegistered  LockReason = "NOT_REGISTERED"
	ReasonSessionBooked  LockReason = "SESSION_BOOKED"
	ReasonHoliday        LockReason = "HOLIDAY"
	ReasonOtherCommitted LockReason = "OTHER_COMMITMENT"
)

var reasonMessages = map[LockReason]string{
	ReasonDraftTimeslot:  "must use the single committed timeslot for all days",
	ReasonDayBlocked:     "recurring busy whole day",
	ReasonSlotBlocked:    "recurring busy this slot",
	ReasonNotRegistered:  "not registered as available",
	ReasonSessionBooked:  "instructor already teaches another session in this slot",
	ReasonHoliday:        "instructor holiday in this slot",
	ReasonOtherCommitted: "instructor has another commitment in this slot",
}

// Message returns the human readable text for a reason.
func (r LockReason) Message() string {
	return reasonMessages[r]
}

// StatusSource names the rule or data source that produced a status.
type StatusSource string

const (
	StatusSourceNone               StatusSource = ""
	StatusSourceDraft              StatusSource = "DRAFT"
	StatusSourceBlockedDay         StatusSource = "BLOCKED_DAY"
	StatusSourceRegistration       StatusSource = "REGISTRATION"
	StatusSourceInstructorTimeslot StatusSource = "INSTRUCTORTIMESLOT"
	StatusSourceSession            StatusSource = "SESSION"
)

// SlotStatus is the availability verdict for one (weekday, timeslot, window).
type SlotStatus struct {
	Status    Availability `json:"status"`
	Reason    LockReason   `json:"reason,omitempty"`
	Message   string       `json:"message,omitempty"`
	Source    StatusSource `json:"source,omitempty"`
	BusyCount int          `json:"busyCount"`
}

// Available reports whether the status is AVAILABLE.
func (s SlotStatus) Available() bool {
	return s.Status == StatusAvailable
}

// SessionType tags a generated session candidate.
type SessionType string

const (
	SessionNormal   SessionType = "NORMAL"
	SessionSkipped  SessionType = "SKIPPED"
	SessionExtended SessionType = "EXTENDED"
)

// SessionCandidate is one generated calendar occurrence.
type SessionCandidate struct {
	SequenceNumber int          `json:"sequenceNumber"`
	Date           time.Time    `json:"date"`
	Weekday        time.Weekday `json:"weekday"`
	TimeslotID     string       `json:"timeslotId"`
	StartTime      string       `json:"startTime"`
	EndTime        string       `json:"endTime"`
	Type           SessionType  `json:"type"`
}

// Persistable reports whether the candidate should be stored.
func (c SessionCandidate) Persistable() bool {
	return c.Type == SessionNormal || c.Type == SessionExtended
}

// Ref converts the candidate into a diff key.
func (c SessionCandidate) Ref() SessionRef {
	return SessionRef{Date: c.Date, TimeslotID: c.TimeslotID}
}

// ScheduleRange describes the calendar extent of a course.
type ScheduleRange struct {
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	TargetSessions int       `json:"targetSessions"`
}

// SessionRef is a stored or planned session reduced to its identity.
type SessionRef struct {
	SessionID  string    `json:"sessionId,omitempty"`
	Date       time.Time `json:"date"`
	TimeslotID string    `json:"timeslotId"`
}

// Key returns the (date, timeslot) identity.
func (r SessionRef) Key() DateSlotKey {
	return NewDateSlotKey(r.Date, r.TimeslotID)
}
