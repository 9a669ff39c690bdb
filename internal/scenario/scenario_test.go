package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

const algebraScenario = `
name = "Algebra"
class_id = "class-1"
start_date = "2025-01-06"
today = "2025-01-01"
total_sessions = 4

[pattern]
monday = ["slotA"]

[[timeslots]]
id = "slotA"
start_time = "08:00"
end_time = "09:30"

[[timeslots]]
id = "slotB"
start_time = "10:00"
end_time = "11:30"

[[busy]]
date = "2025-01-13"
timeslot = "slotA"
status = "OTHER"
`

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := scheduling.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func TestLoadResolvesScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "algebra.toml")
	require.NoError(t, os.WriteFile(path, []byte(algebraScenario), 0o600))

	plan, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Algebra", plan.Name)
	assert.Equal(t, mustDate(t, "2025-01-06"), plan.StartDate)
	assert.Equal(t, mustDate(t, "2025-01-01"), plan.Today)
	assert.True(t, plan.EndDate.IsZero())
	assert.Equal(t, 4, plan.TotalSessions)
	assert.Equal(t, scheduling.WeeklyPattern{time.Monday: {"slotA"}}, plan.Pattern)
	assert.Len(t, plan.Catalog, 2)

	require.Len(t, plan.Snapshot.Intervals, 1)
	busy := plan.Snapshot.Intervals[0]
	assert.Equal(t, time.Monday, busy.Weekday)
	assert.Equal(t, scheduling.BusyOther, busy.Status)
	assert.Equal(t, scheduling.SourceInstructorTimeslot, busy.Source)

	assert.Empty(t, plan.Blocked)
	assert.Equal(t, scheduling.InstructorFullTime, plan.Base.InstructorType)
	assert.False(t, plan.Base.IsDraftClass)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading scenario")
}

func TestParseDefaultsTotalSessions(t *testing.T) {
	plan, err := Parse([]byte(`
start_date = "2025-01-06"
[pattern]
tue = ["slotA"]
[[timeslots]]
id = "slotA"
start_time = "08:00"
end_time = "09:30"
`))
	require.NoError(t, err)
	assert.Equal(t, scheduling.DefaultTotalSessions, plan.TotalSessions)
	assert.Equal(t, scheduling.DefaultTotalSessions, plan.Base.TotalSessions)
	assert.Equal(t, scheduling.WeeklyPattern{time.Tuesday: {"slotA"}}, plan.Pattern)
	assert.False(t, plan.Today.IsZero())
}

func TestParseSplitsOwnSessions(t *testing.T) {
	plan, err := Parse([]byte(algebraScenario + `
[[busy]]
date = "2025-01-20"
timeslot = "slotA"
status = "SESSION"
class_id = "class-1"

[[busy]]
date = "2025-01-27"
timeslot = "slotA"
status = "SESSION"
class_id = "class-9"
`))
	require.NoError(t, err)

	require.Len(t, plan.Snapshot.Own, 1)
	assert.Equal(t, mustDate(t, "2025-01-20"), plan.Snapshot.Own[0].Date)
	require.Len(t, plan.Snapshot.Intervals, 2)
	assert.Equal(t, scheduling.SourceSession, plan.Snapshot.Intervals[1].Source)
	assert.Contains(t, plan.Base.OwnSessions, scheduling.NewDateSlotKey(mustDate(t, "2025-01-20"), "slotA"))
}

func TestParseBlockedDays(t *testing.T) {
	plan, err := Parse([]byte(algebraScenario + `
[[busy]]
weekday = "mon"
timeslot = "slotA"
status = "OTHER"

[blocked.friday]
whole_day = true

[blocked.monday]
timeslots = ["slotB"]
`))
	require.NoError(t, err)

	assert.Equal(t, scheduling.BlockedDay{WholeDay: true}, plan.Blocked[time.Friday])
	monday := plan.Blocked[time.Monday]
	assert.False(t, monday.WholeDay)
	assert.Equal(t, []string{"slotA", "slotB"}, monday.Timeslots)
}

func TestParsePartTimeAndDraft(t *testing.T) {
	plan, err := Parse([]byte(`
start_date = "2025-01-06"
instructor_type = "PARTTIME"
draft_timeslot = "slotA"
[pattern]
monday = ["slotA"]
[[timeslots]]
id = "slotA"
start_time = "08:00"
end_time = "09:30"
[[busy]]
weekday = "monday"
timeslot = "slotA"
status = "AVAILABLE"
`))
	require.NoError(t, err)
	assert.Equal(t, scheduling.InstructorPartTime, plan.Base.InstructorType)
	assert.True(t, plan.Base.IsDraftClass)
	assert.Equal(t, "slotA", plan.Base.LockedTimeslotID)
	assert.True(t, plan.Base.PartTimeSlots.Has(time.Monday, "slotA"))
}

func TestParseErrors(t *testing.T) {
	timeslots := `
[[timeslots]]
id = "slotA"
start_time = "08:00"
end_time = "09:30"
`
	cases := map[string]struct {
		body string
		want string
	}{
		"malformed": {body: `start_date = `, want: "parsing scenario"},
		"missing start": {
			body: "[pattern]\nmonday = [\"slotA\"]\n" + timeslots,
			want: "invalid scenario",
		},
		"bad status": {
			body: "start_date = \"2025-01-06\"\n[pattern]\nmonday = [\"slotA\"]\n" + timeslots +
				"[[busy]]\nweekday = \"monday\"\ntimeslot = \"slotA\"\nstatus = \"SICK\"\n",
			want: "invalid scenario",
		},
		"unknown timeslot": {
			body: "start_date = \"2025-01-06\"\n[pattern]\nmonday = [\"slotZ\"]\n" + timeslots,
			want: `unknown timeslot "slotZ"`,
		},
		"bad weekday": {
			body: "start_date = \"2025-01-06\"\n[pattern]\nfunday = [\"slotA\"]\n" + timeslots,
			want: `unknown weekday "funday"`,
		},
		"end before start": {
			body: "start_date = \"2025-01-06\"\nend_date = \"2025-01-01\"\n[pattern]\nmonday = [\"slotA\"]\n" + timeslots,
			want: "is before start_date",
		},
		"undated session": {
			body: "start_date = \"2025-01-06\"\n[pattern]\nmonday = [\"slotA\"]\n" + timeslots +
				"[[busy]]\nweekday = \"monday\"\ntimeslot = \"slotA\"\nstatus = \"SESSION\"\n",
			want: "SESSION entries need a date",
		},
		"busy without day": {
			body: "start_date = \"2025-01-06\"\n[pattern]\nmonday = [\"slotA\"]\n" + timeslots +
				"[[busy]]\ntimeslot = \"slotA\"\nstatus = \"OTHER\"\n",
			want: "needs a date or a weekday",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseWeekday(t *testing.T) {
	day, err := ParseWeekday("Mon")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, day)

	day, err = ParseWeekday(" SUNDAY ")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, day)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}
