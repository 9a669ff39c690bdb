package dto

import (
	"time"

	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

// PatternDay lists the timeslots selected for one weekday (0 = Sunday).
type PatternDay struct {
	Weekday     int      `json:"weekday" validate:"min=0,max=6"`
	TimeslotIDs []string `json:"timeslotIds" validate:"required,min=1,dive,required"`
}

// WeeklyPattern converts request days into the engine pattern.
func WeeklyPattern(days []PatternDay) scheduling.WeeklyPattern {
	pattern := make(scheduling.WeeklyPattern, len(days))
	for _, day := range days {
		weekday := time.Weekday(day.Weekday)
		pattern[weekday] = append(pattern[weekday], day.TimeslotIDs...)
	}
	return pattern.Normalize()
}

// PatternDays converts an engine pattern into response days ordered by weekday.
func PatternDays(pattern scheduling.WeeklyPattern) []PatternDay {
	pattern = pattern.Normalize()
	days := make([]PatternDay, 0, len(pattern))
	for _, day := range pattern.Days() {
		days = append(days, PatternDay{Weekday: int(day), TimeslotIDs: append([]string(nil), pattern[day]...)})
	}
	return days
}

// SlotStatusRequest asks for the availability of every pair of a pattern.
type SlotStatusRequest struct {
	InstructorID string `json:"instructorId" validate:"required"`
	// ClassID names the class under edit; its draft lock and own sessions apply.
	ClassID         string       `json:"classId"`
	StartDate       string       `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate         string       `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	SessionsPerWeek int          `json:"sessionsPerWeek" validate:"omitempty,min=1,max=42"`
	Pattern         []PatternDay `json:"pattern" validate:"required,min=1,dive"`
}

// SlotStatusResponse returns the resolved grid.
type SlotStatusResponse struct {
	StartDate      string                   `json:"startDate"`
	EndDate        string                   `json:"endDate"`
	Slots          []scheduling.SlotVerdict `json:"slots"`
	AllAvailable   bool                     `json:"allAvailable"`
	AvailableCount int                      `json:"availableCount"`
	// CacheHit reports whether the busy snapshot was served from cache.
	CacheHit       bool                     `json:"-"`
}

// EndDateRequest asks for an estimated course end date.
type EndDateRequest struct {
	StartDate     string       `json:"startDate" validate:"required,datetime=2006-01-02"`
	TotalSessions int          `json:"totalSessions" validate:"omitempty,min=1,max=1000"`
	Pattern       []PatternDay `json:"pattern" validate:"required,min=1,dive"`
}

// EndDateResponse carries the estimate. EndDate is empty when Estimated is false.
type EndDateResponse struct {
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate,omitempty"`
	TotalSessions int    `json:"totalSessions"`
	Estimated     bool   `json:"estimated"`
}

// PreviewSessionsRequest generates a session plan for a class.
type PreviewSessionsRequest struct {
	ClassID       string       `json:"classId" validate:"required"`
	StartDate     string       `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string       `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	TotalSessions int          `json:"totalSessions" validate:"omitempty,min=1,max=1000"`
	Pattern       []PatternDay `json:"pattern" validate:"required,min=1,dive"`
}

// SessionView is one generated session candidate.
type SessionView struct {
	SequenceNumber int    `json:"sequenceNumber"`
	Date           string `json:"date"`
	Weekday        int    `json:"weekday"`
	TimeslotID     string `json:"timeslotId"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	Type           string `json:"type"`
}

// SessionViews converts candidates for transport.
func SessionViews(list []scheduling.SessionCandidate) []SessionView {
	views := make([]SessionView, 0, len(list))
	for _, item := range list {
		views = append(views, SessionView{
			SequenceNumber: item.SequenceNumber,
			Date:           scheduling.FormatDate(item.Date),
			Weekday:        int(item.Weekday),
			TimeslotID:     item.TimeslotID,
			StartTime:      item.StartTime,
			EndTime:        item.EndTime,
			Type:           string(item.Type),
		})
	}
	return views
}

// PreviewSessionsResponse returns a stored proposal.
type PreviewSessionsResponse struct {
	ProposalID string        `json:"proposalId"`
	ClassID    string        `json:"classId"`
	StartDate  string        `json:"startDate"`
	EndDate    string        `json:"endDate"`
	Sessions   []SessionView `json:"sessions"`
	Normal     int           `json:"normal"`
	Skipped    int           `json:"skipped"`
	Extended   int           `json:"extended"`
	Exhausted  bool          `json:"exhausted"`
	ExpiresAt  time.Time     `json:"expiresAt"`
}

// SaveSessionsRequest persists a previously generated proposal.
type SaveSessionsRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
}

// SaveSessionsResponse reports the stored sessions.
type SaveSessionsResponse struct {
	ClassID    string   `json:"classId"`
	Created    int      `json:"created"`
	SessionIDs []string `json:"sessionIds"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
}

// AlternativesRequest searches for start dates where a pattern is fully free.
type AlternativesRequest struct {
	InstructorID         string       `json:"instructorId" validate:"required"`
	ClassID              string       `json:"classId"`
	StartDate            string       `json:"startDate" validate:"required,datetime=2006-01-02"`
	TotalSessions        int          `json:"totalSessions" validate:"omitempty,min=1,max=1000"`
	RequiredSlotsPerWeek int          `json:"requiredSlotsPerWeek" validate:"omitempty,min=1,max=42"`
	MaxResults           int          `json:"maxResults" validate:"omitempty,min=1,max=10"`
	Pattern              []PatternDay `json:"pattern" validate:"required,min=1,dive"`
}

// AlternativeView is one suggested start.
type AlternativeView struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// AlternativesResponse lists suggestions. Found=false is a valid outcome.
type AlternativesResponse struct {
	Found        bool              `json:"found"`
	Alternatives []AlternativeView `json:"alternatives"`
	WeeksScanned int               `json:"weeksScanned"`
	Exhausted    bool              `json:"exhausted"`
}

// RescheduleRequest proposes a new start and optionally a new pattern for an
// existing class. An empty pattern keeps the stored one.
type RescheduleRequest struct {
	ClassID       string       `json:"classId" validate:"required"`
	StartDate     string       `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string       `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	TotalSessions int          `json:"totalSessions" validate:"omitempty,min=1,max=1000"`
	Pattern       []PatternDay `json:"pattern" validate:"omitempty,dive"`
}

// SessionRefView identifies a stored or planned session.
type SessionRefView struct {
	SessionID  string `json:"sessionId,omitempty"`
	Date       string `json:"date"`
	TimeslotID string `json:"timeslotId"`
}

// SessionRefViews converts refs for transport.
func SessionRefViews(refs []scheduling.SessionRef) []SessionRefView {
	views := make([]SessionRefView, 0, len(refs))
	for _, ref := range refs {
		views = append(views, SessionRefView{SessionID: ref.SessionID, Date: scheduling.FormatDate(ref.Date), TimeslotID: ref.TimeslotID})
	}
	return views
}

// ImpactResponse describes what a reschedule would change.
type ImpactResponse struct {
	ClassID      string           `json:"classId"`
	OldStartDate string           `json:"oldStartDate,omitempty"`
	NewStartDate string           `json:"newStartDate"`
	NewEndDate   string           `json:"newEndDate"`
	LostByStart  []SessionRefView `json:"lostByStart"`
	Removed      []SessionRefView `json:"removed"`
	Added        []SessionRefView `json:"added"`
	Skipped      int              `json:"skipped"`
	Unchanged    bool             `json:"unchanged"`
}

// ApplyResponse reports an applied reschedule.
type ApplyResponse struct {
	ClassID   string `json:"classId"`
	Removed   int64  `json:"removed"`
	Added     int    `json:"added"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}
