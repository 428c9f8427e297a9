package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutoria-app/tutoria-api/internal/models"
)

// ReviewRepository persists student reviews of finished tutorships.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs a review repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reviews (id, student_id, professor_id, tutorship_id, rating, comment, created_at)
VALUES (:id, :student_id, :professor_id, :tutorship_id, :rating, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// ListByProfessor returns the reviews left for a professor, newest first.
func (r *ReviewRepository) ListByProfessor(ctx context.Context, professorID string) ([]models.Review, error) {
	const query = `SELECT id, student_id, professor_id, tutorship_id, rating, comment, created_at
FROM reviews WHERE professor_id = $1 ORDER BY created_at DESC`
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, professorID); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// ExistsForTutorship checks whether the tutorship already has a review.
func (r *ReviewRepository) ExistsForTutorship(ctx context.Context, tutorshipID string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM reviews WHERE tutorship_id = $1 LIMIT 1", tutorshipID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check tutorship review: %w", err)
	}
	return true, nil
}

// AverageRating computes the mean rating a professor received.
func (r *ReviewRepository) AverageRating(ctx context.Context, professorID string) (float64, error) {
	var avg float64
	if err := r.db.GetContext(ctx, &avg, "SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE professor_id = $1", professorID); err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	return avg, nil
}
