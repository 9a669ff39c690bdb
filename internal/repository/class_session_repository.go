package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-class-scheduler/internal/models"
)

// ClassSessionRepository persists generated class sessions.
type ClassSessionRepository struct {
	db *sqlx.DB
}

// NewClassSessionRepository constructs the repository.
func NewClassSessionRepository(db *sqlx.DB) *ClassSessionRepository {
	return &ClassSessionRepository{db: db}
}

const classSessionColumns = `id, class_id, instructor_id, timeslot_id, session_date, sequence_number, kind, title, created_at`

// ListByInstructorRange returns sessions of an instructor dated inside [from, to].
func (r *ClassSessionRepository) ListByInstructorRange(ctx context.Context, instructorID string, from, to time.Time) ([]models.ClassSession, error) {
	query := `SELECT ` + classSessionColumns + ` FROM class_sessions WHERE instructor_id = $1 AND session_date BETWEEN $2 AND $3 ORDER BY session_date ASC, timeslot_id ASC`
	var items []models.ClassSession
	if err := r.db.SelectContext(ctx, &items, query, instructorID, from, to); err != nil {
		return nil, fmt.Errorf("list instructor sessions: %w", err)
	}
	return items, nil
}

// ListByClass returns the sessions of a class in sequence order.
func (r *ClassSessionRepository) ListByClass(ctx context.Context, classID string) ([]models.ClassSession, error) {
	query := `SELECT ` + classSessionColumns + ` FROM class_sessions WHERE class_id = $1 ORDER BY sequence_number ASC, session_date ASC`
	var items []models.ClassSession
	if err := r.db.SelectContext(ctx, &items, query, classID); err != nil {
		return nil, fmt.Errorf("list class sessions: %w", err)
	}
	return items, nil
}

// BulkCreateWithTx inserts sessions using an existing transaction.
func (r *ClassSessionRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sessions []models.ClassSession) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	const query = `INSERT INTO class_sessions (id, class_id, instructor_id, timeslot_id, session_date, sequence_number, kind, title, created_at)
VALUES (:id, :class_id, :instructor_id, :timeslot_id, :session_date, :sequence_number, :kind, :title, :created_at)`
	for i := range sessions {
		payload := sessions[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, query, &payload); err != nil {
			return fmt.Errorf("insert class session: %w", err)
		}
		sessions[i] = payload
	}
	return nil
}

// DeleteByIDsWithTx removes the given sessions of a class.
func (r *ClassSessionRepository) DeleteByIDsWithTx(ctx context.Context, tx *sqlx.Tx, classID string, ids []string) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("nil transaction provided")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM class_sessions WHERE class_id = $1 AND id = ANY($2)`, classID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete class sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete class sessions: %w", err)
	}
	return affected, nil
}

// ResequenceWithTx renumbers a class's sessions by date and start time.
func (r *ClassSessionRepository) ResequenceWithTx(ctx context.Context, tx *sqlx.Tx, classID string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `UPDATE class_sessions AS cs SET sequence_number = ordered.rn
FROM (
	SELECT s.id, ROW_NUMBER() OVER (ORDER BY s.session_date ASC, t.start_time ASC, s.id ASC) AS rn
	FROM class_sessions s JOIN timeslots t ON t.id = s.timeslot_id
	WHERE s.class_id = $1
) AS ordered
WHERE cs.id = ordered.id`
	if _, err := tx.ExecContext(ctx, query, classID); err != nil {
		return fmt.Errorf("resequence class sessions: %w", err)
	}
	return nil
}
