package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutoria-app/tutoria-api/internal/models"
	"github.com/tutoria-app/tutoria-api/pkg/config"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
	"github.com/tutoria-app/tutoria-api/pkg/storage"
)

type mediaRepository interface {
	Create(ctx context.Context, file *models.MediaFile) error
	FindByID(ctx context.Context, id string) (*models.MediaFile, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.MediaFile, error)
	Delete(ctx context.Context, teacherID, id string) (bool, error)
}

type mediaStorage interface {
	SaveStream(filename string, r io.Reader) (int64, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// UploadMediaRequest carries upload metadata; the content arrives as a
// stream.
type UploadMediaRequest struct {
	OriginalFilename string
	MimeType         string
	Size             int64
	Description      string
}

// SignedMediaURL is a time-limited download grant.
type SignedMediaURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MediaService stores teaching assets on the local filesystem and hands out
// signed, expiring download tokens instead of raw paths.
type MediaService struct {
	repo   mediaRepository
	store  mediaStorage
	signer *storage.SignedURLSigner
	cfg    config.MediaConfig
	logger *zap.Logger
}

// NewMediaService constructs a MediaService.
func NewMediaService(repo mediaRepository, store mediaStorage, signer *storage.SignedURLSigner, cfg config.MediaConfig, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{repo: repo, store: store, signer: signer, cfg: cfg, logger: logger}
}

// Upload validates and stores a file for the teacher.
func (s *MediaService) Upload(ctx context.Context, teacherID string, req UploadMediaRequest, content io.Reader) (*models.MediaFile, error) {
	if req.Size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}
	if !s.mimeAllowed(req.MimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
	}

	stored := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(req.OriginalFilename))
	written, err := s.store.SaveStream(stored, io.LimitReader(content, s.cfg.MaxFileSizeBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if written > s.cfg.MaxFileSizeBytes {
		if err := s.store.Delete(stored); err != nil {
			s.logger.Warn("failed to remove oversized upload", zap.String("filename", stored), zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}

	file := &models.MediaFile{
		TeacherID:        teacherID,
		Filename:         stored,
		OriginalFilename: req.OriginalFilename,
		FilePath:         stored,
		FileSize:         written,
		MimeType:         req.MimeType,
		Description:      req.Description,
	}
	if err := s.repo.Create(ctx, file); err != nil {
		if derr := s.store.Delete(stored); derr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("filename", stored), zap.Error(derr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record file")
	}
	return file, nil
}

// List returns the teacher's uploaded files.
func (s *MediaService) List(ctx context.Context, teacherID string) ([]models.MediaFile, error) {
	files, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	return files, nil
}

// SignedURL issues a time-limited download token for a file.
func (s *MediaService) SignedURL(ctx context.Context, id string) (*SignedMediaURL, error) {
	file, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(file.ID, file.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign url")
	}
	return &SignedMediaURL{
		URL:       fmt.Sprintf("/media/download?token=%s", token),
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a download token and opens the underlying file. The
// caller is responsible for closing it.
func (s *MediaService) Resolve(ctx context.Context, token string) (*models.MediaFile, *os.File, error) {
	fileID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.find(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if file.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	handle, err := s.store.Open(file.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return file, handle, nil
}

// Delete removes a teacher's file from both the database and the disk.
func (s *MediaService) Delete(ctx context.Context, teacherID, id string) error {
	file, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if file.TeacherID != teacherID {
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}

	deleted, err := s.repo.Delete(ctx, teacherID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	if err := s.store.Delete(file.FilePath); err != nil {
		s.logger.Warn("failed to remove file from disk", zap.String("filename", file.FilePath), zap.Error(err))
	}
	return nil
}

func (s *MediaService) find(ctx context.Context, id string) (*models.MediaFile, error) {
	file, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	return file, nil
}

func (s *MediaService) mimeAllowed(mime string) bool {
	for _, allowed := range s.cfg.AllowedMIMEs {
		if mime == allowed {
			return true
		}
	}
	return false
}
