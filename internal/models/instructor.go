package models

import "time"

// EmploymentType distinguishes full-time from part-time instructors.
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "FULLTIME"
	EmploymentPartTime EmploymentType = "PARTTIME"
)

// Instructor represents a teaching staff record.
type Instructor struct {
	ID             string         `db:"id" json:"id"`
	FullName       string         `db:"full_name" json:"full_name"`
	Email          string         `db:"email" json:"email"`
	EmploymentType EmploymentType `db:"employment_type" json:"employment_type"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// InstructorTimeslotStatus classifies a registered instructor timeslot.
type InstructorTimeslotStatus string

const (
	InstructorTimeslotHoliday   InstructorTimeslotStatus = "HOLIDAY"
	InstructorTimeslotOther     InstructorTimeslotStatus = "OTHER"
	InstructorTimeslotAvailable InstructorTimeslotStatus = "AVAILABLE"
)

// InstructorTimeslot is a recurring (day_of_week) or dated (specific_date)
// commitment or availability registration.
type InstructorTimeslot struct {
	ID           string                   `db:"id" json:"id"`
	InstructorID string                   `db:"instructor_id" json:"instructor_id"`
	DayOfWeek    *int                     `db:"day_of_week" json:"day_of_week,omitempty"`
	SpecificDate *time.Time               `db:"specific_date" json:"specific_date,omitempty"`
	TimeslotID   string                   `db:"timeslot_id" json:"timeslot_id"`
	Status       InstructorTimeslotStatus `db:"status" json:"status"`
	ClassID      *string                  `db:"class_id" json:"class_id,omitempty"`
	Note         *string                  `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time                `db:"created_at" json:"created_at"`
}
