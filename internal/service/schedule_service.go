package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutoria-app/tutoria-api/internal/models"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
	"github.com/tutoria-app/tutoria-api/pkg/export"
)

type scheduleRepository interface {
	ListByRange(ctx context.Context, teacherID string, from, to time.Time) ([]models.ScheduleEvent, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleEvent, error)
	Create(ctx context.Context, event *models.ScheduleEvent) error
	Update(ctx context.Context, event *models.ScheduleEvent) error
	Delete(ctx context.Context, teacherID, id string) (bool, error)
}

type scheduleTutorshipRepository interface {
	ListByProfessorInRange(ctx context.Context, professorID string, from, to time.Time) ([]models.Tutorship, error)
}

// CreateScheduleEventRequest describes the payload for a new calendar event.
// IsBlocked defaults to true when omitted: a teacher adding an event usually
// means to reserve that time. Informational entries opt out explicitly.
type CreateScheduleEventRequest struct {
	Title         string    `json:"title" validate:"required,min=1,max=200"`
	Description   string    `json:"description" validate:"max=2000"`
	StartDatetime time.Time `json:"start_datetime" validate:"required"`
	EndDatetime   time.Time `json:"end_datetime" validate:"required"`
	IsBlocked     *bool     `json:"is_blocked"`
}

// UpdateScheduleEventRequest mirrors the create payload for updates.
type UpdateScheduleEventRequest struct {
	Title         string    `json:"title" validate:"required,min=1,max=200"`
	Description   string    `json:"description" validate:"max=2000"`
	StartDatetime time.Time `json:"start_datetime" validate:"required"`
	EndDatetime   time.Time `json:"end_datetime" validate:"required"`
	IsBlocked     *bool     `json:"is_blocked"`
}

// ScheduleService manages one-off calendar events. Blocking events feed the
// slot derivation, so every mutation invalidates the teacher's slot cache.
type ScheduleService struct {
	repo        scheduleRepository
	tutorships  scheduleTutorshipRepository
	cache       slotInvalidator
	csvExporter *export.CSVExporter
	pdfExporter *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(repo scheduleRepository, tutorships scheduleTutorshipRepository, cache slotInvalidator, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:        repo,
		tutorships:  tutorships,
		cache:       cache,
		csvExporter: export.NewCSVExporter(),
		pdfExporter: export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
	}
}

// ListByRange returns the events fully contained in [startDate, endDate].
// The end date is inclusive of the whole day.
func (s *ScheduleService) ListByRange(ctx context.Context, teacherID, startDate, endDate string) ([]models.ScheduleEvent, error) {
	from, to, err := parseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListByRange(ctx, teacherID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule events")
	}
	return events, nil
}

// Create registers a new event for the teacher.
func (s *ScheduleService) Create(ctx context.Context, teacherID string, req CreateScheduleEventRequest) (*models.ScheduleEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule event payload")
	}
	if !req.EndDatetime.After(req.StartDatetime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_datetime must be after start_datetime")
	}

	event := &models.ScheduleEvent{
		TeacherID:     teacherID,
		Title:         req.Title,
		Description:   req.Description,
		StartDatetime: req.StartDatetime.UTC(),
		EndDatetime:   req.EndDatetime.UTC(),
		IsBlocked:     true,
	}
	if req.IsBlocked != nil {
		event.IsBlocked = *req.IsBlocked
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule event")
	}
	s.invalidateSlots(ctx, teacherID)
	return event, nil
}

// Update modifies an existing event owned by the teacher.
func (s *ScheduleService) Update(ctx context.Context, teacherID, id string, req UpdateScheduleEventRequest) (*models.ScheduleEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule event payload")
	}
	if !req.EndDatetime.After(req.StartDatetime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_datetime must be after start_datetime")
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule event")
	}
	if event.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule event not found")
	}

	event.Title = req.Title
	event.Description = req.Description
	event.StartDatetime = req.StartDatetime.UTC()
	event.EndDatetime = req.EndDatetime.UTC()
	if req.IsBlocked != nil {
		event.IsBlocked = *req.IsBlocked
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule event")
	}
	s.invalidateSlots(ctx, teacherID)
	return event, nil
}

// Delete removes an event owned by the teacher.
func (s *ScheduleService) Delete(ctx context.Context, teacherID, id string) error {
	deleted, err := s.repo.Delete(ctx, teacherID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule event")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule event not found")
	}
	s.invalidateSlots(ctx, teacherID)
	return nil
}

// ExportResult carries a rendered schedule document.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Export renders the teacher's calendar events and confirmed tutorships over
// a date range as CSV or PDF.
func (s *ScheduleService) Export(ctx context.Context, teacherID, startDate, endDate, format string) (*ExportResult, error) {
	from, to, err := parseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.ListByRange(ctx, teacherID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule events")
	}
	tutorships, err := s.tutorships.ListByProfessorInRange(ctx, teacherID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutorships")
	}

	table := export.Table{
		Columns: []string{"Type", "Title", "Start", "End", "Blocked"},
	}
	for _, e := range events {
		table.Rows = append(table.Rows, []string{
			"event",
			e.Title,
			e.StartDatetime.Format(time.RFC3339),
			e.EndDatetime.Format(time.RFC3339),
			fmt.Sprintf("%t", e.IsBlocked),
		})
	}
	for _, t := range tutorships {
		table.Rows = append(table.Rows, []string{
			"tutorship",
			fmt.Sprintf("tutorship %s (%s)", t.ID, t.Status),
			t.StartTime.Format(time.RFC3339),
			t.EndTime.Format(time.RFC3339),
			"true",
		})
	}

	switch format {
	case "csv", "":
		content, err := s.csvExporter.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("schedule_%s_%s.csv", startDate, endDate),
		}, nil
	case "pdf":
		title := fmt.Sprintf("Schedule %s to %s", startDate, endDate)
		content, err := s.pdfExporter.Render(table, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("schedule_%s_%s.pdf", startDate, endDate),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *ScheduleService) invalidateSlots(ctx context.Context, teacherID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, slotCachePattern(teacherID)); err != nil {
		s.logger.Warn("failed to invalidate slot cache", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

// parseDateRange interprets two YYYY-MM-DD strings as an inclusive date
// range and returns its absolute bounds.
func parseDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(slotDateLayout, startDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrMalformedDate, "")
	}
	end, err := time.ParseInLocation(slotDateLayout, endDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrMalformedDate, "")
	}
	return from, end.AddDate(0, 0, 1), nil
}
