package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDate(raw)
	require.NoError(t, err)
	return d
}

func datePtr(t *testing.T, raw string) *time.Time {
	d := mustDate(t, raw)
	return &d
}

func weekdayPtr(day time.Weekday) *time.Weekday {
	return &day
}

func testCatalog() TimeslotCatalog {
	return TimeslotCatalog{
		{ID: "slotA", StartTime: "08:00", EndTime: "09:30"},
		{ID: "slotB", StartTime: "10:00", EndTime: "11:30"},
		{ID: "slotC", StartTime: "13:00", EndTime: "14:30"},
	}
}

func mondayPattern() WeeklyPattern {
	return WeeklyPattern{time.Monday: {"slotA"}}
}

func formatDates(list []SessionCandidate) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, FormatDate(c.Date))
	}
	return out
}

func sessionTypes(list []SessionCandidate) []SessionType {
	out := make([]SessionType, 0, len(list))
	for _, c := range list {
		out = append(out, c.Type)
	}
	return out
}
