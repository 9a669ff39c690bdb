package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

// ClassStatus represents the lifecycle of a class.
type ClassStatus string

const (
	ClassStatusDraft    ClassStatus = "DRAFT"
	ClassStatusActive   ClassStatus = "ACTIVE"
	ClassStatusArchived ClassStatus = "ARCHIVED"
)

// Class is a course taught by one instructor on a weekly pattern.
type Class struct {
	ID               string         `db:"id" json:"id"`
	Title            string         `db:"title" json:"title"`
	InstructorID     string         `db:"instructor_id" json:"instructor_id"`
	Status           ClassStatus    `db:"status" json:"status"`
	LockedTimeslotID *string        `db:"locked_timeslot_id" json:"locked_timeslot_id,omitempty"`
	StartDate        *time.Time     `db:"start_date" json:"start_date,omitempty"`
	EndDate          *time.Time     `db:"end_date" json:"end_date,omitempty"`
	TotalSessions    int            `db:"total_sessions" json:"total_sessions"`
	SessionsPerWeek  int            `db:"sessions_per_week" json:"sessions_per_week"`
	WeeklyPattern    types.JSONText `db:"weekly_pattern" json:"weekly_pattern"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// IsDraft reports whether the class is still a draft.
func (c Class) IsDraft() bool {
	return c.Status == ClassStatusDraft
}

// LockedTimeslot returns the committed timeslot of a draft class, if any.
func (c Class) LockedTimeslot() string {
	if c.LockedTimeslotID == nil {
		return ""
	}
	return *c.LockedTimeslotID
}

// Pattern decodes the stored weekly pattern.
func (c Class) Pattern() (scheduling.WeeklyPattern, error) {
	return DecodePattern(c.WeeklyPattern)
}

// EncodePattern stores a weekly pattern as {"1":["slot"]}.
func EncodePattern(pattern scheduling.WeeklyPattern) (types.JSONText, error) {
	raw := make(map[string][]string, len(pattern))
	for day, ids := range pattern.Normalize() {
		sorted := append([]string(nil), ids...)
		sort.Strings(sorted)
		raw[strconv.Itoa(int(day))] = sorted
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode weekly pattern: %w", err)
	}
	return types.JSONText(payload), nil
}

// DecodePattern parses a stored weekly pattern. Empty input yields an empty pattern.
func DecodePattern(text types.JSONText) (scheduling.WeeklyPattern, error) {
	pattern := scheduling.WeeklyPattern{}
	if len(text) == 0 || string(text) == "null" {
		return pattern, nil
	}
	var raw map[string][]string
	if err := json.Unmarshal(text, &raw); err != nil {
		return nil, fmt.Errorf("decode weekly pattern: %w", err)
	}
	for key, ids := range raw {
		day, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("decode weekly pattern: invalid weekday %q", key)
		}
		pattern[time.Weekday(day)] = ids
	}
	return pattern.Normalize(), nil
}

// ClassScheduleUpdate carries the schedule columns rewritten on save.
type ClassScheduleUpdate struct {
	ID              string         `db:"id"`
	Status          ClassStatus    `db:"status"`
	StartDate       time.Time      `db:"start_date"`
	EndDate         time.Time      `db:"end_date"`
	TotalSessions   int            `db:"total_sessions"`
	SessionsPerWeek int            `db:"sessions_per_week"`
	WeeklyPattern   types.JSONText `db:"weekly_pattern"`
	UpdatedAt       time.Time      `db:"updated_at"`
}
