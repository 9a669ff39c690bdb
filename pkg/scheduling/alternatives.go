package scheduling

import (
	"context"
	"time"
)

const (
	// MaxSearchWeeks caps the alternative start search at roughly two years.
	MaxSearchWeeks = 104
	// DefaultMaxAlternatives is the number of suggestions collected by default.
	DefaultMaxAlternatives = 3
)

// AlternativeQuery describes an alternative start date search.
type AlternativeQuery struct {
	// Base carries the instructor context shared by every probe: blocked
	// days, busy snapshot, instructor type, draft lock and lock threshold.
	// Its slot, window and pattern fields are overwritten per probe.
	Base           SlotQuery
	Pattern        WeeklyPattern
	Catalog        TimeslotCatalog
	TargetSessions int
	CandidateStart time.Time
	// Today anchors the search; suggestions always start after it.
	Today                time.Time
	RequiredSlotsPerWeek int
	// MaxResults of 1 returns only the first hit.
	MaxResults int
}

// AlternativeDate is one accepted start date with its estimated end.
type AlternativeDate struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// AlternativeResult is the outcome of a search.
type AlternativeResult struct {
	Dates        []AlternativeDate `json:"dates"`
	WeeksScanned int               `json:"weeksScanned"`
	Exhausted    bool              `json:"exhausted"`
}

// Found reports whether at least one date was accepted.
func (r AlternativeResult) Found() bool {
	return len(r.Dates) > 0
}

// SearchAlternativeStartDates slides a weekly window forward looking for start
// dates where every pair of the pattern resolves AVAILABLE. The only error it
// returns is the context's.
func SearchAlternativeStartDates(ctx context.Context, q AlternativeQuery) (AlternativeResult, error) {
	pattern := q.Pattern.Normalize()
	if len(pattern) == 0 {
		return AlternativeResult{}, nil
	}

	start := DateOf(q.CandidateStart)
	if today := DateOf(q.Today); !today.IsZero() {
		if tomorrow := today.AddDate(0, 0, 1); start.Before(tomorrow) {
			start = tomorrow
		}
	}
	if start.IsZero() {
		return AlternativeResult{}, nil
	}

	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxAlternatives
	}
	target := EffectiveTotalSessions(q.TargetSessions)
	required := q.RequiredSlotsPerWeek
	if total := pattern.WeeklyRate(); total > required {
		required = total
	}

	var result AlternativeResult
	for week := 0; week < MaxSearchWeeks; week++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.WeeksScanned++

		probe, ok := firstPatternDay(start.AddDate(0, 0, 7*week), pattern)
		if !ok {
			continue
		}
		end, ok := EstimateEndDate(probe, target, pattern, q.Catalog)
		if !ok {
			continue
		}

		base := q.Base
		base.StartDate = probe
		base.EndDate = end
		base.Pattern = pattern
		base.Catalog = q.Catalog
		grid := ResolveGrid(base, pattern)
		if !grid.AllAvailable() || grid.AvailableCount() < required {
			continue
		}

		result.Dates = append(result.Dates, AlternativeDate{StartDate: probe, EndDate: end})
		if len(result.Dates) >= maxResults {
			return result, nil
		}
	}
	result.Exhausted = true
	return result, nil
}

func firstPatternDay(from time.Time, pattern WeeklyPattern) (time.Time, bool) {
	for offset := 0; offset < 7; offset++ {
		day := from.AddDate(0, 0, offset)
		if pattern.Has(day.Weekday()) {
			return day, true
		}
	}
	return time.Time{}, false
}
