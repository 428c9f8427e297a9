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

// ProfessorRepository manages the professor directory: teaching profiles and
// their subject links.
type ProfessorRepository struct {
	db *sqlx.DB
}

// NewProfessorRepository constructs a ProfessorRepository.
func NewProfessorRepository(db *sqlx.DB) *ProfessorRepository {
	return &ProfessorRepository{db: db}
}

// List returns professors matching filters along with total count.
func (r *ProfessorRepository) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error) {
	base := `FROM professors p JOIN users u ON u.id = p.user_id WHERE u.active = TRUE`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(p.abstract) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM professor_subjects ps WHERE ps.professor_id = p.user_id AND ps.subject_id = $%d)", len(args)+1))
		args = append(args, filter.SubjectID)
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

	query := fmt.Sprintf(`SELECT p.user_id, u.full_name, p.abstract, p.picture, p.ranking, p.created_at, p.updated_at %s ORDER BY p.ranking DESC, u.full_name ASC LIMIT %d OFFSET %d`, base, size, offset)
	var professors []models.Professor
	if err := r.db.SelectContext(ctx, &professors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list professors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count professors: %w", err)
	}

	return professors, total, nil
}

// FindByID fetches a professor profile including the owner's display name.
func (r *ProfessorRepository) FindByID(ctx context.Context, userID string) (*models.Professor, error) {
	const query = `SELECT p.user_id, u.full_name, p.abstract, p.picture, p.ranking, p.created_at, p.updated_at
FROM professors p JOIN users u ON u.id = p.user_id WHERE p.user_id = $1`
	var professor models.Professor
	if err := r.db.GetContext(ctx, &professor, query, userID); err != nil {
		return nil, err
	}
	return &professor, nil
}

// Upsert creates the profile if missing or updates the editable fields.
// Idempotent on purpose: the directory provisions profiles on demand instead
// of scattering creation side effects across request paths.
func (r *ProfessorRepository) Upsert(ctx context.Context, professor *models.Professor) error {
	now := time.Now().UTC()
	if professor.CreatedAt.IsZero() {
		professor.CreatedAt = now
	}
	professor.UpdatedAt = now
	const query = `INSERT INTO professors (user_id, abstract, picture, ranking, created_at, updated_at)
VALUES (:user_id, :abstract, :picture, :ranking, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET abstract = EXCLUDED.abstract, picture = EXCLUDED.picture, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, professor); err != nil {
		return fmt.Errorf("upsert professor: %w", err)
	}
	return nil
}

// UpdateRanking stores a recomputed average rating.
func (r *ProfessorRepository) UpdateRanking(ctx context.Context, userID string, ranking float64) error {
	const query = `UPDATE professors SET ranking = $2, updated_at = $3 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, ranking, time.Now().UTC()); err != nil {
		return fmt.Errorf("update professor ranking: %w", err)
	}
	return nil
}

// ListSubjects returns the subjects attached to a professor.
func (r *ProfessorRepository) ListSubjects(ctx context.Context, professorID string) ([]models.Subject, error) {
	const query = `SELECT s.id, s.name, s.description, s.level, s.created_at, s.updated_at
FROM subjects s JOIN professor_subjects ps ON ps.subject_id = s.id WHERE ps.professor_id = $1 ORDER BY s.name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, professorID); err != nil {
		return nil, fmt.Errorf("list professor subjects: %w", err)
	}
	return subjects, nil
}

// AttachSubject links a subject to a professor; duplicates are ignored.
func (r *ProfessorRepository) AttachSubject(ctx context.Context, professorID, subjectID string) error {
	link := models.ProfessorSubject{
		ID:          uuid.NewString(),
		ProfessorID: professorID,
		SubjectID:   subjectID,
		CreatedAt:   time.Now().UTC(),
	}
	const query = `INSERT INTO professor_subjects (id, professor_id, subject_id, created_at)
VALUES (:id, :professor_id, :subject_id, :created_at)
ON CONFLICT (professor_id, subject_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("attach professor subject: %w", err)
	}
	return nil
}

// DetachSubject removes a subject link. Returns false when no link existed.
func (r *ProfessorRepository) DetachSubject(ctx context.Context, professorID, subjectID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM professor_subjects WHERE professor_id = $1 AND subject_id = $2", professorID, subjectID)
	if err != nil {
		return false, fmt.Errorf("detach professor subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("detach professor subject: %w", err)
	}
	return affected > 0, nil
}
