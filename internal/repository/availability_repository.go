package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tutoria-app/tutoria-api/internal/models"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

// pgExclusionViolation is raised by the btree_gist exclusion constraint on
// availability_windows, the schema-level backstop for the overlap invariant.
const pgExclusionViolation = "23P01"

// AvailabilityRepository persists recurring weekly availability windows.
//
// The no-overlap invariant per (teacher, day) is enforced inside a single
// transaction: a per-teacher/day advisory lock serialises concurrent writers,
// then the conflict scan and the write happen under that lock. A naive
// read-check-then-insert without the lock races under concurrent requests.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByTeacher returns all windows owned by a teacher.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityWindow, error) {
	const query = `SELECT id, teacher_id, day_of_week, start_time, end_time, is_available, created_at, updated_at
FROM availability_windows WHERE teacher_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, teacherID); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// ListAvailableByDay returns the bookable windows for one weekday, used by
// the slot computation.
func (r *AvailabilityRepository) ListAvailableByDay(ctx context.Context, teacherID string, dayOfWeek int) ([]models.AvailabilityWindow, error) {
	const query = `SELECT id, teacher_id, day_of_week, start_time, end_time, is_available, created_at, updated_at
FROM availability_windows WHERE teacher_id = $1 AND day_of_week = $2 AND is_available = TRUE ORDER BY start_time ASC`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, teacherID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list availability windows by day: %w", err)
	}
	return windows, nil
}

// FindByID fetches a single window.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	const query = `SELECT id, teacher_id, day_of_week, start_time, end_time, is_available, created_at, updated_at
FROM availability_windows WHERE id = $1`
	var window models.AvailabilityWindow
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		return nil, err
	}
	return &window, nil
}

// Create inserts a window after scanning for overlaps on the same
// teacher/day. Every existing window participates in the scan regardless of
// its is_available flag.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if window.CreatedAt.IsZero() {
		window.CreatedAt = now
	}
	window.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin availability tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := r.checkOverlap(ctx, tx, window, ""); err != nil {
		return err
	}

	const query = `INSERT INTO availability_windows (id, teacher_id, day_of_week, start_time, end_time, is_available, created_at, updated_at)
VALUES (:id, :teacher_id, :day_of_week, :start_time, :end_time, :is_available, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, window); err != nil {
		return overlapOrWrapped(err, "create availability window")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit availability window: %w", err)
	}
	return nil
}

// Update modifies a window, excluding the record itself from the conflict
// scan.
func (r *AvailabilityRepository) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	window.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin availability tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := r.checkOverlap(ctx, tx, window, window.ID); err != nil {
		return err
	}

	const query = `UPDATE availability_windows SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time,
is_available = :is_available, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, window); err != nil {
		return overlapOrWrapped(err, "update availability window")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit availability window: %w", err)
	}
	return nil
}

// Delete removes a window owned by the teacher. Returns false when no row
// matched.
func (r *AvailabilityRepository) Delete(ctx context.Context, teacherID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM availability_windows WHERE id = $1 AND teacher_id = $2", id, teacherID)
	if err != nil {
		return false, fmt.Errorf("delete availability window: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete availability window: %w", err)
	}
	return affected > 0, nil
}

func (r *AvailabilityRepository) checkOverlap(ctx context.Context, tx *sqlx.Tx, window *models.AvailabilityWindow, excludeID string) error {
	lockKey := fmt.Sprintf("%s:%d", window.TeacherID, window.DayOfWeek)
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", lockKey); err != nil {
		return fmt.Errorf("acquire availability lock: %w", err)
	}

	query := `SELECT COUNT(*) FROM availability_windows
WHERE teacher_id = $1 AND day_of_week = $2 AND NOT (end_time <= $3 OR start_time >= $4)`
	args := []interface{}{window.TeacherID, window.DayOfWeek, window.StartTime, window.EndTime}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}

	var conflicts int
	if err := tx.GetContext(ctx, &conflicts, query, args...); err != nil {
		return fmt.Errorf("scan availability conflicts: %w", err)
	}
	if conflicts > 0 {
		return appErrors.Clone(appErrors.ErrAvailabilityOverlap, "")
	}
	return nil
}

func overlapOrWrapped(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgExclusionViolation {
		return appErrors.Clone(appErrors.ErrAvailabilityOverlap, "")
	}
	return fmt.Errorf("%s: %w", msg, err)
}
