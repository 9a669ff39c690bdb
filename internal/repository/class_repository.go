package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-class-scheduler/internal/models"
)

// ClassRepository handles persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, title, instructor_id, status, locked_timeslot_id, start_date, end_date, total_sessions, sessions_per_week, weekly_pattern, created_at, updated_at`

// FindByID returns a class by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// UpdateScheduleWithTx rewrites the schedule columns of a class inside tx.
func (r *ClassRepository) UpdateScheduleWithTx(ctx context.Context, tx *sqlx.Tx, update models.ClassScheduleUpdate) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE classes SET status = :status, start_date = :start_date, end_date = :end_date, total_sessions = :total_sessions, sessions_per_week = :sessions_per_week, weekly_pattern = :weekly_pattern, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx, query, update)
	if err != nil {
		return fmt.Errorf("update class schedule: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update class schedule: class %s not found", update.ID)
	}
	return nil
}
