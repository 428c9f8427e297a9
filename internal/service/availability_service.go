package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutoria-app/tutoria-api/internal/models"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

type availabilityRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityWindow, error)
	FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error)
	Create(ctx context.Context, window *models.AvailabilityWindow) error
	Update(ctx context.Context, window *models.AvailabilityWindow) error
	Delete(ctx context.Context, teacherID, id string) (bool, error)
}

type availabilityDirectory interface {
	FindByID(ctx context.Context, userID string) (*models.Professor, error)
}

type slotInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateAvailabilityRequest describes the payload for a new weekly window.
type CreateAvailabilityRequest struct {
	DayOfWeek   *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `json:"end_time" validate:"required,datetime=15:04"`
	IsAvailable *bool  `json:"is_available"`
}

// UpdateAvailabilityRequest mirrors the create payload for updates.
type UpdateAvailabilityRequest struct {
	DayOfWeek   *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `json:"end_time" validate:"required,datetime=15:04"`
	IsAvailable *bool  `json:"is_available"`
}

// AvailabilityService manages recurring weekly availability windows.
//
// Overlap policy: a new window conflicts with ANY existing window on the same
// teacher/day, including is_available=false ones. The conservative rule keeps
// a teacher's weekly grid unambiguous instead of letting an unavailable
// window silently shadow an available one.
type AvailabilityService struct {
	repo      availabilityRepository
	directory availabilityDirectory
	cache     slotInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, directory availabilityDirectory, cache slotInvalidator, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, directory: directory, cache: cache, validator: validate, logger: logger}
}

// List returns every window owned by the teacher.
func (s *AvailabilityService) List(ctx context.Context, teacherID string) ([]models.AvailabilityWindow, error) {
	windows, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability windows")
	}
	return windows, nil
}

// Create registers a new weekly window after interval validation.
func (s *AvailabilityService) Create(ctx context.Context, teacherID string, req CreateAvailabilityRequest) (*models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := s.ensureInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}

	window := &models.AvailabilityWindow{
		TeacherID:   teacherID,
		DayOfWeek:   *req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: true,
	}
	if req.IsAvailable != nil {
		window.IsAvailable = *req.IsAvailable
	}

	if err := s.repo.Create(ctx, window); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability window")
	}

	s.invalidateSlots(ctx, teacherID)
	return window, nil
}

// Update modifies an existing window with the same validation as create,
// excluding the record itself from the conflict scan.
func (s *AvailabilityService) Update(ctx context.Context, teacherID, id string, req UpdateAvailabilityRequest) (*models.AvailabilityWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := s.ensureInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	window, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	if window.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
	}

	window.DayOfWeek = *req.DayOfWeek
	window.StartTime = req.StartTime
	window.EndTime = req.EndTime
	if req.IsAvailable != nil {
		window.IsAvailable = *req.IsAvailable
	}

	if err := s.repo.Update(ctx, window); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability window")
	}

	s.invalidateSlots(ctx, teacherID)
	return window, nil
}

// Delete removes a window. A missing id reports not found rather than
// failing silently.
func (s *AvailabilityService) Delete(ctx context.Context, teacherID, id string) error {
	deleted, err := s.repo.Delete(ctx, teacherID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability window")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
	}
	s.invalidateSlots(ctx, teacherID)
	return nil
}

func (s *AvailabilityService) ensureInterval(start, end string) error {
	startMin, err := models.MinuteOfDay(start)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid start_time")
	}
	endMin, err := models.MinuteOfDay(end)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid end_time")
	}
	if endMin <= startMin {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return nil
}

func (s *AvailabilityService) ensureTeacher(ctx context.Context, teacherID string) error {
	if _, err := s.directory.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up teacher")
	}
	return nil
}

func (s *AvailabilityService) invalidateSlots(ctx context.Context, teacherID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, slotCachePattern(teacherID)); err != nil {
		s.logger.Warn("failed to invalidate slot cache", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}
