// Package scenario loads offline scheduling scenarios from TOML files and
// turns them into engine inputs.
package scenario

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/noah-isme/sma-class-scheduler/internal/service"
	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

// Timeslot is one catalog row of a scenario.
type Timeslot struct {
	ID        string `toml:"id" validate:"required"`
	Weekday   string `toml:"weekday"`
	StartTime string `toml:"start_time" validate:"required"`
	EndTime   string `toml:"end_time" validate:"required"`
}

// Busy is one instructor commitment. Date wins over Weekday when both are set.
type Busy struct {
	Date     string `toml:"date"`
	Weekday  string `toml:"weekday"`
	Timeslot string `toml:"timeslot" validate:"required"`
	Status   string `toml:"status" validate:"required,oneof=HOLIDAY OTHER SESSION AVAILABLE"`
	ClassID  string `toml:"class_id"`
}

// Blocked forces a recurring block on a weekday.
type Blocked struct {
	WholeDay  bool     `toml:"whole_day"`
	Timeslots []string `toml:"timeslots"`
}

// Scenario is the on-disk shape of a scenario file.
type Scenario struct {
	Name                 string              `toml:"name"`
	ClassID              string              `toml:"class_id"`
	StartDate            string              `toml:"start_date" validate:"required"`
	EndDate              string              `toml:"end_date"`
	Today                string              `toml:"today"`
	TotalSessions        int                 `toml:"total_sessions" validate:"gte=0"`
	SessionsPerWeek      int                 `toml:"sessions_per_week" validate:"gte=0"`
	InstructorType       string              `toml:"instructor_type" validate:"omitempty,oneof=FULLTIME PARTTIME"`
	LockThreshold        int                 `toml:"lock_threshold" validate:"gte=0"`
	DraftTimeslot        string              `toml:"draft_timeslot"`
	MaxResults           int                 `toml:"max_results" validate:"gte=0,lte=10"`
	RequiredSlotsPerWeek int                 `toml:"required_slots_per_week" validate:"gte=0"`
	Pattern              map[string][]string `toml:"pattern" validate:"required,min=1"`
	Timeslots            []Timeslot          `toml:"timeslots" validate:"required,min=1,dive"`
	Busy                 []Busy              `toml:"busy" validate:"dive"`
	Blocked              map[string]Blocked  `toml:"blocked"`
}

// Plan is a scenario resolved into engine types.
type Plan struct {
	Name            string
	StartDate       time.Time
	EndDate         time.Time
	Today           time.Time
	TotalSessions   int
	SessionsPerWeek int
	Pattern         scheduling.WeeklyPattern
	Catalog         scheduling.TimeslotCatalog
	Snapshot        service.BusySnapshot
	Blocked         scheduling.BlockedDayMap
	Base            scheduling.SlotQuery
	MaxResults      int
	RequiredPerWeek int
}

var validate = validator.New()

// Load reads and resolves a scenario file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Parse resolves scenario TOML. Blocked days are derived from the busy
// entries the same way the API does, then explicit [blocked] tables are
// merged on top.
func Parse(data []byte) (*Plan, error) {
	var sc Scenario
	if err := toml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := validate.Struct(sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return sc.resolve()
}

func (sc Scenario) resolve() (*Plan, error) {
	start, err := scheduling.ParseDate(sc.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	plan := &Plan{
		Name:            sc.Name,
		StartDate:       start,
		TotalSessions:   scheduling.EffectiveTotalSessions(sc.TotalSessions),
		SessionsPerWeek: sc.SessionsPerWeek,
		MaxResults:      sc.MaxResults,
		RequiredPerWeek: sc.RequiredSlotsPerWeek,
	}
	if plan.EndDate, err = optionalDate("end_date", sc.EndDate); err != nil {
		return nil, err
	}
	if !plan.EndDate.IsZero() && plan.EndDate.Before(start) {
		return nil, fmt.Errorf("end_date %s is before start_date %s", sc.EndDate, sc.StartDate)
	}
	if plan.Today, err = optionalDate("today", sc.Today); err != nil {
		return nil, err
	}
	if plan.Today.IsZero() {
		plan.Today = scheduling.DateOf(time.Now())
	}

	for _, slot := range sc.Timeslots {
		record := scheduling.Timeslot{ID: slot.ID, StartTime: slot.StartTime, EndTime: slot.EndTime}
		if slot.Weekday != "" {
			day, err := ParseWeekday(slot.Weekday)
			if err != nil {
				return nil, fmt.Errorf("timeslot %s: %w", slot.ID, err)
			}
			record.Weekday = &day
		}
		plan.Catalog = append(plan.Catalog, record)
	}

	plan.Pattern = make(scheduling.WeeklyPattern, len(sc.Pattern))
	for name, ids := range sc.Pattern {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
		for _, id := range ids {
			if _, ok := plan.Catalog.Find(id); !ok {
				return nil, fmt.Errorf("pattern %s: unknown timeslot %q", name, id)
			}
		}
		plan.Pattern[day] = append(plan.Pattern[day], ids...)
	}
	plan.Pattern = plan.Pattern.Normalize()
	if len(plan.Pattern) == 0 {
		return nil, fmt.Errorf("pattern selects no timeslots")
	}

	for i, entry := range sc.Busy {
		interval, err := entry.interval()
		if err != nil {
			return nil, fmt.Errorf("busy[%d]: %w", i, err)
		}
		if sc.ClassID != "" && interval.Status == scheduling.BusySession && interval.ClassID == sc.ClassID {
			plan.Snapshot.Own = append(plan.Snapshot.Own, scheduling.SessionRef{Date: *interval.Date, TimeslotID: interval.TimeslotID})
			continue
		}
		plan.Snapshot.Intervals = append(plan.Snapshot.Intervals, interval)
	}

	window := scheduling.EffectiveEndDate(start, plan.EndDate, plan.Pattern, plan.Catalog, plan.SessionsPerWeek, plan.TotalSessions)
	plan.Blocked = service.NewBlockedDayService(service.BlockedDayConfig{}).
		Analyze(plan.Snapshot, start, window, plan.Pattern, plan.Catalog)
	for name, forced := range sc.Blocked {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, fmt.Errorf("blocked: %w", err)
		}
		merged := plan.Blocked[day]
		merged.WholeDay = merged.WholeDay || forced.WholeDay
		for _, id := range forced.Timeslots {
			if !merged.Blocks(id) {
				merged.Timeslots = append(merged.Timeslots, id)
			}
		}
		plan.Blocked[day] = merged
	}

	instructorType := scheduling.InstructorFullTime
	if sc.InstructorType != "" {
		instructorType = scheduling.InstructorType(sc.InstructorType)
	}
	plan.Base = scheduling.SlotQuery{
		StartDate:        start,
		EndDate:          plan.EndDate,
		Blocked:          plan.Blocked,
		Busy:             plan.Snapshot.Intervals,
		InstructorType:   instructorType,
		PartTimeSlots:    scheduling.PartTimeAvailability(plan.Snapshot.Intervals),
		LockedTimeslotID: sc.DraftTimeslot,
		IsDraftClass:     sc.DraftTimeslot != "",
		Pattern:          plan.Pattern,
		Catalog:          plan.Catalog,
		SessionsPerWeek:  sc.SessionsPerWeek,
		TotalSessions:    plan.TotalSessions,
		OwnSessions:      plan.Snapshot.OwnKeys(),
		LockThreshold:    sc.LockThreshold,
	}
	return plan, nil
}

func (b Busy) interval() (scheduling.BusyInterval, error) {
	out := scheduling.BusyInterval{
		TimeslotID: b.Timeslot,
		Status:     scheduling.BusyStatus(b.Status),
		Source:     scheduling.SourceInstructorTimeslot,
		ClassID:    b.ClassID,
	}
	if out.Status == scheduling.BusySession {
		out.Source = scheduling.SourceSession
	}
	switch {
	case b.Date != "":
		date, err := scheduling.ParseDate(b.Date)
		if err != nil {
			return out, fmt.Errorf("date: %w", err)
		}
		out.Date = &date
		out.Weekday = date.Weekday()
	case b.Weekday != "":
		day, err := ParseWeekday(b.Weekday)
		if err != nil {
			return out, err
		}
		out.Weekday = day
	default:
		return out, fmt.Errorf("needs a date or a weekday")
	}
	if out.Status == scheduling.BusySession && out.Recurring() {
		return out, fmt.Errorf("SESSION entries need a date")
	}
	return out, nil
}

func optionalDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	parsed, err := scheduling.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return parsed, nil
}

// ParseWeekday accepts full or three letter English day names in any case.
func ParseWeekday(raw string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for day := time.Sunday; day <= time.Saturday; day++ {
		full := strings.ToLower(day.String())
		if name == full || name == full[:3] {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}
