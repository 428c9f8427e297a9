package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutoria-app/tutoria-api/internal/models"
)

// MediaRepository persists metadata for uploaded teaching assets.
type MediaRepository struct {
	db *sqlx.DB
}

// NewMediaRepository constructs a media repository.
func NewMediaRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create inserts a media file record.
func (r *MediaRepository) Create(ctx context.Context, file *models.MediaFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_media_files (id, teacher_id, filename, original_filename, file_path, file_size, mime_type, description, uploaded_at)
VALUES (:id, :teacher_id, :filename, :original_filename, :file_path, :file_size, :mime_type, :description, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	return nil
}

// FindByID fetches a media record.
func (r *MediaRepository) FindByID(ctx context.Context, id string) (*models.MediaFile, error) {
	const query = `SELECT id, teacher_id, filename, original_filename, file_path, file_size, mime_type, description, uploaded_at
FROM teacher_media_files WHERE id = $1`
	var file models.MediaFile
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListByTeacher returns a teacher's uploads, newest first.
func (r *MediaRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.MediaFile, error) {
	const query = `SELECT id, teacher_id, filename, original_filename, file_path, file_size, mime_type, description, uploaded_at
FROM teacher_media_files WHERE teacher_id = $1 ORDER BY uploaded_at DESC`
	var files []models.MediaFile
	if err := r.db.SelectContext(ctx, &files, query, teacherID); err != nil {
		return nil, fmt.Errorf("list media files: %w", err)
	}
	return files, nil
}

// Delete removes a media record owned by the teacher. Returns false when no
// row matched.
func (r *MediaRepository) Delete(ctx context.Context, teacherID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM teacher_media_files WHERE id = $1 AND teacher_id = $2", id, teacherID)
	if err != nil {
		return false, fmt.Errorf("delete media file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete media file: %w", err)
	}
	return affected > 0, nil
}
