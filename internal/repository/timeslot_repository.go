package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-class-scheduler/internal/models"
)

// TimeslotRepository reads the timeslot catalog.
type TimeslotRepository struct {
	db *sqlx.DB
}

// NewTimeslotRepository constructs the repository.
func NewTimeslotRepository(db *sqlx.DB) *TimeslotRepository {
	return &TimeslotRepository{db: db}
}

// List returns every catalog entry ordered by start time.
func (r *TimeslotRepository) List(ctx context.Context) ([]models.Timeslot, error) {
	const query = `SELECT id, label, day_of_week, start_time, end_time, created_at FROM timeslots ORDER BY start_time ASC, day_of_week ASC NULLS FIRST, id ASC`
	var items []models.Timeslot
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list timeslots: %w", err)
	}
	return items, nil
}
