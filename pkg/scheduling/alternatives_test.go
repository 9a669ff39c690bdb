package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionOn(t *testing.T, raw, slot string) BusyInterval {
	entry := otherOn(t, raw, slot)
	entry.Status = BusySession
	entry.Source = SourceSession
	return entry
}

func januaryBookedQuery(t *testing.T) AlternativeQuery {
	return AlternativeQuery{
		Base: SlotQuery{
			InstructorType: InstructorFullTime,
			Busy: []BusyInterval{
				sessionOn(t, "2025-01-06", "slotA"),
				sessionOn(t, "2025-01-13", "slotA"),
				sessionOn(t, "2025-01-20", "slotA"),
				sessionOn(t, "2025-01-27", "slotA"),
			},
		},
		Pattern:        mondayPattern(),
		Catalog:        testCatalog(),
		TargetSessions: 4,
		CandidateStart: mustDate(t, "2025-01-06"),
		Today:          mustDate(t, "2025-01-01"),
	}
}

func TestSearchAlternativeStartDatesCollectsThree(t *testing.T) {
	result, err := SearchAlternativeStartDates(context.Background(), januaryBookedQuery(t))
	require.NoError(t, err)

	require.Len(t, result.Dates, 3)
	assert.Equal(t, "2025-02-03", FormatDate(result.Dates[0].StartDate))
	assert.Equal(t, "2025-02-25", FormatDate(result.Dates[0].EndDate))
	assert.Equal(t, "2025-02-10", FormatDate(result.Dates[1].StartDate))
	assert.Equal(t, "2025-02-17", FormatDate(result.Dates[2].StartDate))
	assert.Equal(t, 7, result.WeeksScanned)
	assert.False(t, result.Exhausted)
	assert.True(t, result.Found())
}

func TestSearchAlternativeStartDatesResultsResolveAvailable(t *testing.T) {
	q := januaryBookedQuery(t)
	q.Pattern = WeeklyPattern{time.Monday: {"slotA"}, time.Wednesday: {"slotB"}}
	q.Base.Blocked = BlockedDayMap{time.Wednesday: {Timeslots: []string{"slotC"}}}
	q.Base.Busy = append(q.Base.Busy, otherOn(t, "2025-02-12", "slotB"))

	result, err := SearchAlternativeStartDates(context.Background(), q)
	require.NoError(t, err)
	require.NotEmpty(t, result.Dates)

	for _, date := range result.Dates {
		base := q.Base
		base.StartDate = date.StartDate
		base.EndDate = date.EndDate
		base.Pattern = q.Pattern
		base.Catalog = q.Catalog
		grid := ResolveGrid(base, q.Pattern)
		assert.True(t, grid.AllAvailable(), "start %s", FormatDate(date.StartDate))
	}
}

func TestSearchAlternativeStartDatesNeverBeforeTomorrow(t *testing.T) {
	q := januaryBookedQuery(t)
	q.Base.Busy = nil
	q.CandidateStart = mustDate(t, "2024-11-04")
	q.Today = mustDate(t, "2025-01-05")
	q.MaxResults = 1

	result, err := SearchAlternativeStartDates(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, result.Dates, 1)
	assert.Equal(t, "2025-01-06", FormatDate(result.Dates[0].StartDate))
	assert.Equal(t, 1, result.WeeksScanned)
}

func TestSearchAlternativeStartDatesPicksFirstPatternDayOfWeek(t *testing.T) {
	q := januaryBookedQuery(t)
	q.Base.Busy = nil
	q.CandidateStart = mustDate(t, "2025-01-08")

	result, err := SearchAlternativeStartDates(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, result.Dates, 3)
	assert.Equal(t, "2025-01-13", FormatDate(result.Dates[0].StartDate))
	assert.Equal(t, "2025-01-20", FormatDate(result.Dates[1].StartDate))
}

func TestSearchAlternativeStartDatesExhausted(t *testing.T) {
	q := januaryBookedQuery(t)
	q.Base.Blocked = BlockedDayMap{time.Monday: {WholeDay: true}}

	result, err := SearchAlternativeStartDates(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, result.Dates)
	assert.True(t, result.Exhausted)
	assert.Equal(t, MaxSearchWeeks, result.WeeksScanned)
}

func TestSearchAlternativeStartDatesRequiredSlotsPerWeek(t *testing.T) {
	q := januaryBookedQuery(t)
	q.Base.Busy = nil
	q.RequiredSlotsPerWeek = 2

	result, err := SearchAlternativeStartDates(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.True(t, result.Exhausted)
}

func TestSearchAlternativeStartDatesEmptyPattern(t *testing.T) {
	q := januaryBookedQuery(t)
	q.Pattern = nil

	result, err := SearchAlternativeStartDates(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, AlternativeResult{}, result)
}

func TestSearchAlternativeStartDatesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := SearchAlternativeStartDates(ctx, januaryBookedQuery(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.WeeksScanned)
}
