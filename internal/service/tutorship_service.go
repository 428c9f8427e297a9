package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutoria-app/tutoria-api/internal/models"
	"github.com/tutoria-app/tutoria-api/pkg/config"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

type tutorshipRepository interface {
	List(ctx context.Context, filter models.TutorshipFilter) ([]models.Tutorship, int, error)
	FindByID(ctx context.Context, id string) (*models.Tutorship, error)
	Create(ctx context.Context, tutorship *models.Tutorship) error
	UpdateStatus(ctx context.Context, id string, status models.TutorshipStatus) error
}

type tutorshipDirectory interface {
	FindByID(ctx context.Context, userID string) (*models.Professor, error)
}

type tutorshipSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// CreateTutorshipRequest is the booking payload submitted by a student.
type CreateTutorshipRequest struct {
	ProfessorID string    `json:"professor_id" validate:"required,uuid4"`
	SubjectID   string    `json:"subject_id" validate:"required,uuid4"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	PriceUSDT   float64   `json:"price_usdt" validate:"required,gt=0"`
}

// UpdateTutorshipStatusRequest carries a requested lifecycle transition.
type UpdateTutorshipStatusRequest struct {
	Status models.TutorshipStatus `json:"status" validate:"required,oneof=pending active finished canceled"`
}

// statusTransitions maps each tutorship status to the states it may move to.
var statusTransitions = map[models.TutorshipStatus][]models.TutorshipStatus{
	models.TutorshipPending:  {models.TutorshipActive, models.TutorshipCanceled},
	models.TutorshipActive:   {models.TutorshipFinished, models.TutorshipCanceled},
	models.TutorshipFinished: {},
	models.TutorshipCanceled: {},
}

// TutorshipService is the booking gateway. It verifies the professor and
// subject exist and that the booker is the student on the record, then
// persists the booking as pending.
//
// It deliberately does not re-derive the professor's free slots before
// accepting a booking, so two students can book the same slot. Payment
// confirmation is where the business resolves the collision today.
type TutorshipService struct {
	repo      tutorshipRepository
	directory tutorshipDirectory
	subjects  tutorshipSubjectRepository
	cfg       config.BookingConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTutorshipService constructs a TutorshipService.
func NewTutorshipService(repo tutorshipRepository, directory tutorshipDirectory, subjects tutorshipSubjectRepository, cfg config.BookingConfig, validate *validator.Validate, logger *zap.Logger) *TutorshipService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutorshipService{repo: repo, directory: directory, subjects: subjects, cfg: cfg, validator: validate, logger: logger}
}

// Create books a tutoring session for the authenticated student.
func (s *TutorshipService) Create(ctx context.Context, actor *models.JWTClaims, req CreateTutorshipRequest) (*models.Tutorship, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tutorship payload")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can book tutorships")
	}

	if _, err := s.directory.FindByID(ctx, req.ProfessorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up professor")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up subject")
	}

	tutorship := &models.Tutorship{
		ProfessorID:    req.ProfessorID,
		StudentID:      actor.UserID,
		SubjectID:      req.SubjectID,
		Status:         models.TutorshipPending,
		StartTime:      req.StartTime.UTC(),
		EndTime:        req.EndTime.UTC(),
		PriceUSDT:      req.PriceUSDT,
		PlatformFeePct: s.cfg.PlatformFeePct,
	}
	if err := s.repo.Create(ctx, tutorship); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tutorship")
	}
	s.logger.Info("tutorship booked",
		zap.String("tutorship_id", tutorship.ID),
		zap.String("professor_id", tutorship.ProfessorID),
		zap.String("student_id", tutorship.StudentID),
	)
	return tutorship, nil
}

// Get returns a tutorship visible to the actor.
func (s *TutorshipService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Tutorship, error) {
	tutorship, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeeTutorship(actor, tutorship) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return tutorship, nil
}

// List returns the tutorships visible to the actor. Students and teachers
// are pinned to their own records; admins and moderators see everything.
func (s *TutorshipService) List(ctx context.Context, actor *models.JWTClaims, filter models.TutorshipFilter) ([]models.Tutorship, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	case models.RoleTeacher:
		filter.ProfessorID = actor.UserID
	}
	filter.Normalize()

	tutorships, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutorships")
	}
	return tutorships, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// UpdateStatus applies a lifecycle transition if it is allowed from the
// current status and the actor is the right party to drive it.
func (s *TutorshipService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req UpdateTutorshipStatusRequest) (*models.Tutorship, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	tutorship, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeeTutorship(actor, tutorship) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if !transitionActorAllowed(actor, tutorship, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "transition not allowed for this actor")
	}
	if !transitionAllowed(tutorship.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatusChange, "")
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tutorship status")
	}
	tutorship.Status = req.Status
	return tutorship, nil
}

func (s *TutorshipService) find(ctx context.Context, id string) (*models.Tutorship, error) {
	tutorship, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutorship not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutorship")
	}
	return tutorship, nil
}

func canSeeTutorship(actor *models.JWTClaims, t *models.Tutorship) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleModerator:
		return true
	case models.RoleTeacher:
		return t.ProfessorID == actor.UserID
	default:
		return t.StudentID == actor.UserID
	}
}

// transitionActorAllowed gates transitions by party: the professor activates
// and finishes, either party cancels, admins and moderators may do any of it.
// Payment-driven activation bypasses this by writing through the repository.
func transitionActorAllowed(actor *models.JWTClaims, t *models.Tutorship, to models.TutorshipStatus) bool {
	if actor.Role == models.RoleAdmin || actor.Role == models.RoleModerator {
		return true
	}
	switch to {
	case models.TutorshipActive, models.TutorshipFinished:
		return actor.Role == models.RoleTeacher && t.ProfessorID == actor.UserID
	case models.TutorshipCanceled:
		return t.StudentID == actor.UserID || t.ProfessorID == actor.UserID
	default:
		return false
	}
}

func transitionAllowed(from, to models.TutorshipStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
