package scheduling

import "time"

const (
	// DefaultTotalSessions is assumed when a course has no session target yet.
	DefaultTotalSessions = 12
	// DefaultSessionsPerWeek is assumed when neither the caller nor the pattern
	// tells how many sessions run per week.
	DefaultSessionsPerWeek = 1
)

// EstimateEndDate returns the day after the last session needed to fit target
// sessions into pattern starting at start. The boolean is false when no
// estimate is possible (zero start, non-positive target, empty pattern).
func EstimateEndDate(start time.Time, target int, pattern WeeklyPattern, catalog TimeslotCatalog) (time.Time, bool) {
	start = DateOf(start)
	pattern = pattern.Normalize()
	rate := pattern.WeeklyRate()
	if start.IsZero() || target <= 0 || rate == 0 {
		return time.Time{}, false
	}

	counted := 0
	var last time.Time
	for day := start; ; day = day.AddDate(0, 0, 1) {
		// nothing resolvable in a whole week means nothing ever will be
		if counted == 0 && day.Sub(start) >= 7*24*time.Hour {
			return weeksAfter(start, target, rate), true
		}
		placed := countResolvable(day, pattern, catalog)
		if placed == 0 {
			continue
		}
		counted += placed
		last = day
		if counted >= target {
			return last.AddDate(0, 0, 1), true
		}
	}
}

func countResolvable(day time.Time, pattern WeeklyPattern, catalog TimeslotCatalog) int {
	count := 0
	for _, id := range pattern[day.Weekday()] {
		if _, ok := catalog.Resolve(day.Weekday(), id); ok {
			count++
		}
	}
	return count
}

func weeksAfter(start time.Time, target, rate int) time.Time {
	weeks := (target + rate - 1) / rate
	return start.AddDate(0, 0, 7*weeks)
}

// EffectiveSessionsPerWeek resolves the weekly rate: the explicit value when
// positive, else the pattern rate, else DefaultSessionsPerWeek.
func EffectiveSessionsPerWeek(explicit int, pattern WeeklyPattern) int {
	if explicit > 0 {
		return explicit
	}
	if rate := pattern.WeeklyRate(); rate > 0 {
		return rate
	}
	return DefaultSessionsPerWeek
}

// EffectiveTotalSessions returns target when positive, else DefaultTotalSessions.
func EffectiveTotalSessions(target int) int {
	if target > 0 {
		return target
	}
	return DefaultTotalSessions
}

// EffectiveEndDate resolves the window end for availability checks: the
// explicit end when set, else an estimate for totalSessions sessions (see
// EffectiveTotalSessions), else start plus enough weeks at the effective
// weekly rate.
func EffectiveEndDate(start, end time.Time, pattern WeeklyPattern, catalog TimeslotCatalog, sessionsPerWeek, totalSessions int) time.Time {
	start = DateOf(start)
	if !end.IsZero() {
		return DateOf(end)
	}
	if start.IsZero() {
		return time.Time{}
	}
	total := EffectiveTotalSessions(totalSessions)
	if estimated, ok := EstimateEndDate(start, total, pattern, catalog); ok {
		return estimated
	}
	return weeksAfter(start, total, EffectiveSessionsPerWeek(sessionsPerWeek, pattern))
}
