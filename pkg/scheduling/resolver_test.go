package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func baseQuery(t *testing.T) SlotQuery {
	return SlotQuery{
		Weekday:        time.Monday,
		TimeslotID:     "slotA",
		StartDate:      mustDate(t, "2025-01-06"),
		EndDate:        mustDate(t, "2025-01-31"),
		InstructorType: InstructorFullTime,
		Pattern:        mondayPattern(),
		Catalog:        testCatalog(),
	}
}

func TestResolveSlotStatusAvailableWithoutBusyData(t *testing.T) {
	status := ResolveSlotStatus(baseQuery(t))
	assert.True(t, status.Available())
	assert.Equal(t, 0, status.BusyCount)
	assert.Empty(t, status.Reason)
}

func TestResolveSlotStatusMalformedInputIsAvailable(t *testing.T) {
	q := baseQuery(t)
	q.Weekday = time.Weekday(7)
	q.Blocked = BlockedDayMap{time.Weekday(7): {WholeDay: true}}
	assert.True(t, ResolveSlotStatus(q).Available())

	q = baseQuery(t)
	q.TimeslotID = ""
	assert.True(t, ResolveSlotStatus(q).Available())

	q = baseQuery(t)
	q.StartDate = time.Time{}
	q.Busy = []BusyInterval{{Weekday: time.Monday, TimeslotID: "slotA", Status: BusySession}}
	assert.True(t, ResolveSlotStatus(q).Available())
}

func TestResolveSlotStatusIsDeterministic(t *testing.T) {
	q := baseQuery(t)
	q.Busy = []BusyInterval{
		{Weekday: time.Monday, Date: datePtr(t, "2025-01-13"), TimeslotID: "slotA", Status: BusyOther},
		{Weekday: time.Monday, TimeslotID: "slotA", Status: BusyHoliday},
	}
	first := ResolveSlotStatus(q)
	second := ResolveSlotStatus(q)
	assert.Equal(t, first, second)
}

func TestResolveSlotStatusDraftClassLockedTimeslot(t *testing.T) {
	q := baseQuery(t)
	q.IsDraftClass = true
	q.LockedTimeslotID = "slotB"

	status := ResolveSlotStatus(q)
	assert.Equal(t, StatusLocked, status.Status)
	assert.Equal(t, ReasonDraftTimeslot, status.Reason)
	assert.Equal(t, "must use the single committed timeslot for all days", status.Message)
	assert.Equal(t, StatusSourceDraft, status.Source)

	q.TimeslotID = "slotB"
	assert.True(t, ResolveSlotStatus(q).Available())

	q.TimeslotID = "slotA"
	q.IsDraftClass = false
	assert.True(t, ResolveSlotStatus(q).Available())
}

func TestResolveSlotStatusWholeDayBlockIgnoresBusyList(t *testing.T) {
	busyLists := [][]BusyInterval{
		nil,
		{{Weekday: time.Monday, TimeslotID: "slotA", Status: BusyAvailable}},
		{{Weekday: time.Monday, Date: datePtr(t, "2025-01-13"), TimeslotID: "slotA", Status: BusySession}},
	}
	for _, busy := range busyLists {
		for _, slot := range []string{"slotA", "slotB", "slotC"} {
			q := baseQuery(t)
			q.TimeslotID = slot
			q.Busy = busy
			q.Blocked = BlockedDayMap{time.Monday: {WholeDay: true}}

			status := ResolveSlotStatus(q)
			assert.Equal(t, StatusLocked, status.Status)
			assert.Equal(t, ReasonDayBlocked, status.Reason)
			assert.Equal(t, StatusSourceBlockedDay, status.Source)
		}
	}
}

func TestResolveSlotStatusSpecificSlotBlock(t *testing.T) {
	q := baseQuery(t)
	q.Blocked = BlockedDayMap{time.Monday: {Timeslots: []string{"slotA"}}}

	status := ResolveSlotStatus(q)
	assert.Equal(t, ReasonSlotBlocked, status.Reason)
	assert.Equal(t, "recurring busy this slot", status.Message)

	q.TimeslotID = "slotB"
	assert.True(t, ResolveSlotStatus(q).Available())
}

func TestResolveSlotStatusPartTimeRegistration(t *testing.T) {
	q := baseQuery(t)
	q.InstructorType = InstructorPartTime
	q.PartTimeSlots = PartTimeAvailability([]BusyInterval{
		{Weekday: time.Monday, TimeslotID: "slotB", Status: BusyAvailable},
		{Weekday: time.Monday, TimeslotID: "slotC", Status: BusyOther},
	})

	status := ResolveSlotStatus(q)
	assert.Equal(t, ReasonNotRegistered, status.Reason)
	assert.Equal(t, StatusSourceRegistration, status.Source)

	q.TimeslotID = "slotB"
	assert.True(t, ResolveSlotStatus(q).Available())

	q.TimeslotID = "slotC"
	assert.Equal(t, ReasonNotRegistered, ResolveSlotStatus(q).Reason)

	q.RegistrationUnknown = true
	assert.True(t, ResolveSlotStatus(q).Available(), "an unreadable registry does not lock")
}

func TestResolveSlotStatusReasonPriority(t *testing.T) {
	q := baseQuery(t)
	q.Busy = []BusyInterval{
		{Weekday: time.Monday, Date: datePtr(t, "2025-01-13"), TimeslotID: "slotA", Status: BusyOther},
		{Weekday: time.Monday, Date: datePtr(t, "2025-01-20"), TimeslotID: "slotA", Status: BusyHoliday},
		{Weekday: time.Monday, Date: datePtr(t, "2025-01-27"), TimeslotID: "slotA", Status: BusySession, Source: SourceSession},
		{Weekday: time.Monday, Date: datePtr(t, "2025-01-27"), TimeslotID: "slotB", Status: BusySession},
		{Weekday: time.Tuesday, Date: datePtr(t, "2025-01-14"), TimeslotID: "slotA", Status: BusySession},
	}

	status := ResolveSlotStatus(q)
	assert.Equal(t, StatusLocked, status.Status)
	assert.Equal(t, ReasonSessionBooked, status.Reason)
	assert.Equal(t, StatusSourceSession, status.Source)
	assert.Equal(t, 3, status.BusyCount)

	q.Busy = q.Busy[:2]
	status = ResolveSlotStatus(q)
	assert.Equal(t, ReasonHoliday, status.Reason)
	assert.Equal(t, 2, status.BusyCount)

	q.Busy = q.Busy[:1]
	status = ResolveSlotStatus(q)
	assert.Equal(t, ReasonOtherCommitted, status.Reason)
	assert.Equal(t, StatusSourceInstructorTimeslot, status.Source)
	assert.Equal(t, 1, status.BusyCount)
}

func TestResolveSlotStatusWindowFiltering(t *testing.T) {
	q := baseQuery(t)
	q.Busy = []BusyInterval{
		{Weekday: time.Monday, Date: datePtr(t, "2024-12-30"), TimeslotID: "slotA", Status: BusySession},
		{Weekday: time.Monday, Date: datePtr(t, "2025-03-03"), TimeslotID: "slotA", Status: BusyHoliday},
	}
	assert.True(t, ResolveSlotStatus(q).Available())

	q.Busy = append(q.Busy, BusyInterval{Weekday: time.Monday, TimeslotID: "slotA", Status: BusyOther})
	status := ResolveSlotStatus(q)
	assert.Equal(t, StatusLocked, status.Status)
	assert.Equal(t, 1, status.BusyCount, "recurring entries are always counted")
}

func TestResolveSlotStatusWindowBoundsAreInclusive(t *testing.T) {
	q := baseQuery(t)
	q.EndDate = mustDate(t, "2025-01-27")
	q.Busy = []BusyInterval{
		{Weekday: time.Monday, Date: datePtr(t, "2025-01-27"), TimeslotID: "slotA", Status: BusyHoliday},
	}
	assert.Equal(t, StatusLocked, ResolveSlotStatus(q).Status)

	q.Busy[0].Date = datePtr(t, "2025-01-06")
	assert.Equal(t, StatusLocked, ResolveSlotStatus(q).Status)
}

func TestResolveSlotStatusDerivesWindowWhenEndMissing(t *testing.T) {
	q := baseQuery(t)
	q.EndDate = time.Time{}

	// twelve Mondays from 2025-01-06 end on 2025-03-24
	q.Busy = []BusyInterval{
		{Weekday: time.Monday, Date: datePtr(t, "2025-03-24"), TimeslotID: "slotA", Status: BusyOther},
	}
	assert.Equal(t, StatusLocked, ResolveSlotStatus(q).Status)

	q.Busy[0].Date = datePtr(t, "2025-03-31")
	assert.True(t, ResolveSlotStatus(q).Available())
}

func TestResolveSlotStatusSelfExclusion(t *testing.T) {
	q := baseQuery(t)
	q.OwnSessions = OwnSessionKeys([]SessionRef{
		{SessionID: "s-1", Date: mustDate(t, "2025-01-13"), TimeslotID: "slotA"},
	})
	q.Busy = []BusyInterval{
		{Weekday: time.Monday, Date: datePtr(t, "2025-01-13"), TimeslotID: "slotA", Status: BusyOther, ClassID: "class-1"},
	}
	assert.True(t, ResolveSlotStatus(q).Available())

	q.Busy = append(q.Busy, BusyInterval{Weekday: time.Monday, Date: datePtr(t, "2025-01-20"), TimeslotID: "slotA", Status: BusyOther})
	status := ResolveSlotStatus(q)
	assert.Equal(t, StatusLocked, status.Status)
	assert.Equal(t, 1, status.BusyCount)

	q.Busy = []BusyInterval{
		{Weekday: time.Monday, Date: datePtr(t, "2025-01-13"), TimeslotID: "slotA", Status: BusySession},
	}
	assert.Equal(t, ReasonSessionBooked, ResolveSlotStatus(q).Reason, "session entries are never self-excluded")
}

func TestResolveSlotStatusIgnoresAvailableEntries(t *testing.T) {
	q := baseQuery(t)
	q.Busy = []BusyInterval{
		{Weekday: time.Monday, TimeslotID: "slotA", Status: BusyAvailable},
		{Weekday: time.Monday, Date: datePtr(t, "2025-01-13"), TimeslotID: "slotA", Status: BusyAvailable},
	}
	assert.True(t, ResolveSlotStatus(q).Available())
}

func TestResolveSlotStatusLockThreshold(t *testing.T) {
	q := baseQuery(t)
	q.LockThreshold = 2
	q.Busy = []BusyInterval{
		{Weekday: time.Monday, Date: datePtr(t, "2025-01-13"), TimeslotID: "slotA", Status: BusyOther},
	}
	status := ResolveSlotStatus(q)
	assert.True(t, status.Available())

	q.Busy = append(q.Busy, BusyInterval{Weekday: time.Monday, Date: datePtr(t, "2025-01-20"), TimeslotID: "slotA", Status: BusyHoliday})
	status = ResolveSlotStatus(q)
	assert.Equal(t, ReasonHoliday, status.Reason)
	assert.Equal(t, 2, status.BusyCount)
}

func TestResolveGrid(t *testing.T) {
	q := baseQuery(t)
	q.Blocked = BlockedDayMap{time.Wednesday: {Timeslots: []string{"slotB"}}}
	pattern := WeeklyPattern{
		time.Wednesday: {"slotA", "slotB"},
		time.Monday:    {"slotA"},
	}

	grid := ResolveGrid(q, pattern)
	assert.Len(t, grid, 3)
	assert.Equal(t, time.Monday, grid[0].Weekday)
	assert.Equal(t, "slotB", grid[2].TimeslotID)
	assert.Equal(t, ReasonSlotBlocked, grid[2].Reason)
	assert.Equal(t, 2, grid.AvailableCount())
	assert.False(t, grid.AllAvailable())

	q.Blocked = nil
	assert.True(t, ResolveGrid(q, pattern).AllAvailable())
	assert.False(t, SlotGrid(nil).AllAvailable())
}
