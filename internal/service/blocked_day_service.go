package service

import (
	"sort"
	"time"

	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

// BlockedDayConfig tunes recurrence detection.
type BlockedDayConfig struct {
	// Ratio is the share of a weekday's occurrences that must be busy.
	Ratio float64
	// MinOccurrences is the minimum number of busy dates.
	MinOccurrences int
}

// BlockedDayService derives recurring blocks from a busy snapshot.
type BlockedDayService struct {
	cfg BlockedDayConfig
}

// NewBlockedDayService constructs the analyzer.
func NewBlockedDayService(cfg BlockedDayConfig) *BlockedDayService {
	if cfg.Ratio <= 0 || cfg.Ratio > 1 {
		cfg.Ratio = 0.5
	}
	if cfg.MinOccurrences <= 0 {
		cfg.MinOccurrences = 2
	}
	return &BlockedDayService{cfg: cfg}
}

// Analyze returns the weekdays of pattern (every weekday when pattern is
// empty) that have blocked timeslots over [from, to]. A timeslot is blocked
// when it carries a recurring commitment or is busy on enough of the
// weekday's dates; a day is blocked whole when all of its timeslots are.
func (s *BlockedDayService) Analyze(snapshot BusySnapshot, from, to time.Time, pattern scheduling.WeeklyPattern, catalog scheduling.TimeslotCatalog) scheduling.BlockedDayMap {
	from, to = scheduling.DateOf(from), scheduling.DateOf(to)
	result := scheduling.BlockedDayMap{}
	if from.IsZero() || to.Before(from) {
		return result
	}

	days := pattern.Normalize().Days()
	if len(days) == 0 {
		for day := time.Sunday; day <= time.Saturday; day++ {
			days = append(days, day)
		}
	}

	occurrences := weekdayOccurrences(from, to)
	own := snapshot.OwnKeys()
	recurring := make(scheduling.SlotKeySet)
	dated := make(map[scheduling.SlotKey]map[string]struct{})
	for _, entry := range snapshot.Intervals {
		if !blocksAvailability(entry.Status) {
			continue
		}
		key := scheduling.SlotKey{Weekday: entry.Weekday, TimeslotID: entry.TimeslotID}
		if entry.Recurring() {
			recurring[key] = struct{}{}
			continue
		}
		date := scheduling.DateOf(*entry.Date)
		if date.Before(from) || date.After(to) {
			continue
		}
		if _, mine := own[scheduling.NewDateSlotKey(date, entry.TimeslotID)]; mine && entry.Status == scheduling.BusyOther {
			continue
		}
		if dated[key] == nil {
			dated[key] = make(map[string]struct{})
		}
		dated[key][scheduling.FormatDate(date)] = struct{}{}
	}

	for _, day := range days {
		slots := catalog.ForWeekday(day)
		var blocked []string
		for _, slot := range slots {
			key := scheduling.SlotKey{Weekday: day, TimeslotID: slot.ID}
			if _, ok := recurring[key]; ok || s.frequent(len(dated[key]), occurrences[day]) {
				blocked = append(blocked, slot.ID)
			}
		}
		if len(blocked) == 0 {
			continue
		}
		sort.Strings(blocked)
		result[day] = scheduling.BlockedDay{WholeDay: len(blocked) == len(slots), Timeslots: blocked}
	}
	return result
}

func (s *BlockedDayService) frequent(busy, occurrences int) bool {
	if busy < s.cfg.MinOccurrences || occurrences == 0 {
		return false
	}
	return float64(busy)/float64(occurrences) >= s.cfg.Ratio
}

func blocksAvailability(status scheduling.BusyStatus) bool {
	switch status {
	case scheduling.BusyHoliday, scheduling.BusyOther, scheduling.BusySession:
		return true
	default:
		return false
	}
}

func weekdayOccurrences(from, to time.Time) map[time.Weekday]int {
	counts := make(map[time.Weekday]int, 7)
	total := int(to.Sub(from).Hours()/24) + 1
	for i := 0; i < 7 && i < total; i++ {
		counts[from.AddDate(0, 0, i).Weekday()] = (total - i + 6) / 7
	}
	return counts
}
