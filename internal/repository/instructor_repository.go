package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-class-scheduler/internal/models"
)

// InstructorRepository reads instructor records.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs the repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// FindByID returns an instructor by ID.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	const query = `SELECT id, full_name, email, employment_type, active, created_at, updated_at FROM instructors WHERE id = $1`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// InstructorTimeslotRepository reads registered instructor commitments.
type InstructorTimeslotRepository struct {
	db *sqlx.DB
}

// NewInstructorTimeslotRepository constructs the repository.
func NewInstructorTimeslotRepository(db *sqlx.DB) *InstructorTimeslotRepository {
	return &InstructorTimeslotRepository{db: db}
}

// ListForRange returns recurring entries plus dated entries inside [from, to].
func (r *InstructorTimeslotRepository) ListForRange(ctx context.Context, instructorID string, from, to time.Time) ([]models.InstructorTimeslot, error) {
	const query = `SELECT id, instructor_id, day_of_week, specific_date, timeslot_id, status, class_id, note, created_at
FROM instructor_timeslots
WHERE instructor_id = $1 AND (specific_date IS NULL OR specific_date BETWEEN $2 AND $3)
ORDER BY specific_date ASC NULLS FIRST, day_of_week ASC, timeslot_id ASC`
	var items []models.InstructorTimeslot
	if err := r.db.SelectContext(ctx, &items, query, instructorID, from, to); err != nil {
		return nil, fmt.Errorf("list instructor timeslots: %w", err)
	}
	return items, nil
}
