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

type professorRepository interface {
	List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error)
	FindByID(ctx context.Context, userID string) (*models.Professor, error)
	Upsert(ctx context.Context, professor *models.Professor) error
	ListSubjects(ctx context.Context, professorID string) ([]models.Subject, error)
	AttachSubject(ctx context.Context, professorID, subjectID string) error
	DetachSubject(ctx context.Context, professorID, subjectID string) (bool, error)
}

type professorUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type professorSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// UpsertProfileRequest carries the editable fields of a professor profile.
type UpsertProfileRequest struct {
	Abstract string  `json:"abstract" validate:"max=4000"`
	Picture  *string `json:"picture" validate:"omitempty,max=500"`
}

// ProfessorService is the directory of teacher profiles. Profile creation is
// idempotent: provisioning the same teacher twice updates the existing
// profile instead of failing, so registration retries stay safe.
type ProfessorService struct {
	repo      professorRepository
	users     professorUserRepository
	subjects  professorSubjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfessorService constructs a ProfessorService.
func NewProfessorService(repo professorRepository, users professorUserRepository, subjects professorSubjectRepository, validate *validator.Validate, logger *zap.Logger) *ProfessorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfessorService{repo: repo, users: users, subjects: subjects, validator: validate, logger: logger}
}

// List returns professors ordered by ranking, with pagination.
func (s *ProfessorService) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, *models.Pagination, error) {
	filter.Normalize()
	professors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list professors")
	}
	return professors, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a professor profile with its subjects attached.
func (s *ProfessorService) Get(ctx context.Context, userID string) (*models.Professor, error) {
	professor, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	subjects, err := s.repo.ListSubjects(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor subjects")
	}
	professor.Subjects = subjects
	return professor, nil
}

// EnsureProfile provisions or updates the profile for a teacher account.
func (s *ProfessorService) EnsureProfile(ctx context.Context, userID string, req UpsertProfileRequest) (*models.Professor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only teacher accounts can have a professor profile")
	}

	professor := &models.Professor{
		UserID:   userID,
		Abstract: req.Abstract,
		Picture:  req.Picture,
	}
	if err := s.repo.Upsert(ctx, professor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save professor profile")
	}
	return s.Get(ctx, userID)
}

// ValidateTeacher reports whether the id belongs to a provisioned professor.
func (s *ProfessorService) ValidateTeacher(ctx context.Context, userID string) error {
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up teacher")
	}
	return nil
}

// AttachSubject links a subject the professor teaches. Attaching the same
// subject twice is a no-op.
func (s *ProfessorService) AttachSubject(ctx context.Context, professorID, subjectID string) error {
	if err := s.ValidateTeacher(ctx, professorID); err != nil {
		return err
	}
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if err := s.repo.AttachSubject(ctx, professorID, subjectID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach subject")
	}
	return nil
}

// DetachSubject unlinks a subject from the professor.
func (s *ProfessorService) DetachSubject(ctx context.Context, professorID, subjectID string) error {
	detached, err := s.repo.DetachSubject(ctx, professorID, subjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach subject")
	}
	if !detached {
		return appErrors.Clone(appErrors.ErrNotFound, "subject not linked to professor")
	}
	return nil
}
