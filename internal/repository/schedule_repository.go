package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutoria-app/tutoria-api/internal/models"
)

// ScheduleRepository persists one-off calendar events for teachers.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListByRange returns events fully contained in [from, to]. Events partially
// outside the range are excluded on purpose; this endpoint reports what fits
// inside the requested calendar page, not everything touching it.
func (r *ScheduleRepository) ListByRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.ScheduleEvent, error) {
	const query = `SELECT id, teacher_id, title, description, start_datetime, end_datetime, is_blocked, created_at, updated_at
FROM schedule_events WHERE teacher_id = $1 AND start_datetime >= $2 AND end_datetime <= $3 ORDER BY start_datetime ASC`
	var events []models.ScheduleEvent
	if err := r.db.SelectContext(ctx, &events, query, teacherID, from, to); err != nil {
		return nil, fmt.Errorf("list schedule events: %w", err)
	}
	return events, nil
}

// ListBlockedOverlapping returns blocking events intersecting [from, to),
// used by the slot computation to subtract blocked intervals.
func (r *ScheduleRepository) ListBlockedOverlapping(ctx context.Context, teacherID string, from, to time.Time) ([]models.ScheduleEvent, error) {
	const query = `SELECT id, teacher_id, title, description, start_datetime, end_datetime, is_blocked, created_at, updated_at
FROM schedule_events WHERE teacher_id = $1 AND is_blocked = TRUE AND start_datetime < $3 AND end_datetime > $2 ORDER BY start_datetime ASC`
	var events []models.ScheduleEvent
	if err := r.db.SelectContext(ctx, &events, query, teacherID, from, to); err != nil {
		return nil, fmt.Errorf("list blocking schedule events: %w", err)
	}
	return events, nil
}

// FindByID fetches a schedule event.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleEvent, error) {
	const query = `SELECT id, teacher_id, title, description, start_datetime, end_datetime, is_blocked, created_at, updated_at
FROM schedule_events WHERE id = $1`
	var event models.ScheduleEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a schedule event. Overlapping events are allowed; a teacher
// may stack informational entries freely.
func (r *ScheduleRepository) Create(ctx context.Context, event *models.ScheduleEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	const query = `INSERT INTO schedule_events (id, teacher_id, title, description, start_datetime, end_datetime, is_blocked, created_at, updated_at)
VALUES (:id, :teacher_id, :title, :description, :start_datetime, :end_datetime, :is_blocked, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create schedule event: %w", err)
	}
	return nil
}

// Update modifies an event.
func (r *ScheduleRepository) Update(ctx context.Context, event *models.ScheduleEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_events SET title = :title, description = :description, start_datetime = :start_datetime,
end_datetime = :end_datetime, is_blocked = :is_blocked, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update schedule event: %w", err)
	}
	return nil
}

// Delete removes an event owned by the teacher. Returns false when no row
// matched.
func (r *ScheduleRepository) Delete(ctx context.Context, teacherID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM schedule_events WHERE id = $1 AND teacher_id = $2", id, teacherID)
	if err != nil {
		return false, fmt.Errorf("delete schedule event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete schedule event: %w", err)
	}
	return affected > 0, nil
}
