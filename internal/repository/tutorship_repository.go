package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutoria-app/tutoria-api/internal/models"
)

// TutorshipRepository persists booked tutoring sessions.
type TutorshipRepository struct {
	db *sqlx.DB
}

// NewTutorshipRepository constructs a tutorship repository.
func NewTutorshipRepository(db *sqlx.DB) *TutorshipRepository {
	return &TutorshipRepository{db: db}
}

// List returns tutorships matching filters along with total count.
func (r *TutorshipRepository) List(ctx context.Context, filter models.TutorshipFilter) ([]models.Tutorship, int, error) {
	base := "FROM tutorships WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, professor_id, student_id, subject_id, status, start_time, end_time, price_usdt, platform_fee_pct, created_at, updated_at
%s ORDER BY start_time DESC LIMIT %d OFFSET %d`, base, size, offset)
	var tutorships []models.Tutorship
	if err := r.db.SelectContext(ctx, &tutorships, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tutorships: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tutorships: %w", err)
	}

	return tutorships, total, nil
}

// FindByID fetches a tutorship by ID.
func (r *TutorshipRepository) FindByID(ctx context.Context, id string) (*models.Tutorship, error) {
	const query = `SELECT id, professor_id, student_id, subject_id, status, start_time, end_time, price_usdt, platform_fee_pct, created_at, updated_at
FROM tutorships WHERE id = $1`
	var tutorship models.Tutorship
	if err := r.db.GetContext(ctx, &tutorship, query, id); err != nil {
		return nil, err
	}
	return &tutorship, nil
}

// ListByProfessorInRange returns sessions overlapping [from, to), used by
// calendar views and schedule exports.
func (r *TutorshipRepository) ListByProfessorInRange(ctx context.Context, professorID string, from, to time.Time) ([]models.Tutorship, error) {
	const query = `SELECT id, professor_id, student_id, subject_id, status, start_time, end_time, price_usdt, platform_fee_pct, created_at, updated_at
FROM tutorships WHERE professor_id = $1 AND start_time < $3 AND end_time > $2 AND status IN ('pending', 'active') ORDER BY start_time ASC`
	var tutorships []models.Tutorship
	if err := r.db.SelectContext(ctx, &tutorships, query, professorID, from, to); err != nil {
		return nil, fmt.Errorf("list tutorships in range: %w", err)
	}
	return tutorships, nil
}

// Create inserts a tutorship record.
func (r *TutorshipRepository) Create(ctx context.Context, tutorship *models.Tutorship) error {
	if tutorship.ID == "" {
		tutorship.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tutorship.CreatedAt.IsZero() {
		tutorship.CreatedAt = now
	}
	tutorship.UpdatedAt = now
	const query = `INSERT INTO tutorships (id, professor_id, student_id, subject_id, status, start_time, end_time, price_usdt, platform_fee_pct, created_at, updated_at)
VALUES (:id, :professor_id, :student_id, :subject_id, :status, :start_time, :end_time, :price_usdt, :platform_fee_pct, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tutorship); err != nil {
		return fmt.Errorf("create tutorship: %w", err)
	}
	return nil
}

// UpdateStatus transitions a tutorship to a new status.
func (r *TutorshipRepository) UpdateStatus(ctx context.Context, id string, status models.TutorshipStatus) error {
	const query = `UPDATE tutorships SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update tutorship status: %w", err)
	}
	return nil
}
