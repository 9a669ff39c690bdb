package models

import (
	"time"

	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

// Timeslot is a catalog entry describing a time-of-day window.
type Timeslot struct {
	ID        string    `db:"id" json:"id"`
	Label     string    `db:"label" json:"label"`
	DayOfWeek *int      `db:"day_of_week" json:"day_of_week,omitempty"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Core converts the record into the engine representation.
func (t Timeslot) Core() scheduling.Timeslot {
	slot := scheduling.Timeslot{ID: t.ID, StartTime: t.StartTime, EndTime: t.EndTime}
	if t.DayOfWeek != nil {
		day := time.Weekday(*t.DayOfWeek)
		slot.Weekday = &day
	}
	return slot
}

// Catalog converts records into an engine catalog.
func Catalog(list []Timeslot) scheduling.TimeslotCatalog {
	catalog := make(scheduling.TimeslotCatalog, 0, len(list))
	for _, item := range list {
		catalog = append(catalog, item.Core())
	}
	return catalog
}
