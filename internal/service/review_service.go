package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutoria-app/tutoria-api/internal/models"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
	"github.com/tutoria-app/tutoria-api/pkg/jobs"
)

// JobTypeRecomputeRanking identifies the async ranking recompute task.
const JobTypeRecomputeRanking = "recompute_ranking"

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ListByProfessor(ctx context.Context, professorID string) ([]models.Review, error)
	ExistsForTutorship(ctx context.Context, tutorshipID string) (bool, error)
	AverageRating(ctx context.Context, professorID string) (float64, error)
}

type reviewTutorshipRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tutorship, error)
}

type rankingUpdater interface {
	UpdateRanking(ctx context.Context, userID string, ranking float64) error
}

type reviewQueue interface {
	Enqueue(job jobs.Job) error
}

// CreateReviewRequest rates a finished tutorship.
type CreateReviewRequest struct {
	TutorshipID string `json:"tutorship_id" validate:"required,uuid4"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Comment     string `json:"comment" validate:"max=2000"`
}

// ReviewService lets students rate finished tutorships. The professor's
// ranking is recomputed asynchronously so review submission stays fast.
type ReviewService struct {
	repo       reviewRepository
	tutorships reviewTutorshipRepository
	rankings   rankingUpdater
	queue      reviewQueue
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewReviewService constructs a ReviewService. queue may be nil, in which
// case the ranking is recomputed inline.
func NewReviewService(repo reviewRepository, tutorships reviewTutorshipRepository, rankings rankingUpdater, queue reviewQueue, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{repo: repo, tutorships: tutorships, rankings: rankings, queue: queue, validator: validate, logger: logger}
}

// Create submits a review for a finished tutorship the student took part in.
// One review per tutorship.
func (s *ReviewService) Create(ctx context.Context, actor *models.JWTClaims, req CreateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	tutorship, err := s.tutorships.FindByID(ctx, req.TutorshipID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutorship not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutorship")
	}
	if tutorship.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the student on the tutorship can review it")
	}
	if tutorship.Status != models.TutorshipFinished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only finished tutorships can be reviewed")
	}

	exists, err := s.repo.ExistsForTutorship(ctx, req.TutorshipID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing review")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "tutorship already reviewed")
	}

	review := &models.Review{
		StudentID:   actor.UserID,
		ProfessorID: tutorship.ProfessorID,
		TutorshipID: req.TutorshipID,
		Rating:      req.Rating,
		Comment:     req.Comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}

	s.scheduleRankingRecompute(ctx, tutorship.ProfessorID)
	return review, nil
}

// ListByProfessor returns every review left for a professor.
func (s *ReviewService) ListByProfessor(ctx context.Context, professorID string) ([]models.Review, error) {
	reviews, err := s.repo.ListByProfessor(ctx, professorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}

// RecomputeRanking recalculates a professor's ranking from their review
// average. It is the queue handler for JobTypeRecomputeRanking.
func (s *ReviewService) RecomputeRanking(ctx context.Context, professorID string) error {
	avg, err := s.repo.AverageRating(ctx, professorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average rating")
	}
	if err := s.rankings.UpdateRanking(ctx, professorID, avg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update ranking")
	}
	s.logger.Info("ranking recomputed", zap.String("professor_id", professorID), zap.Float64("ranking", avg))
	return nil
}

// HandleRankingJob adapts RecomputeRanking to the queue handler signature.
func (s *ReviewService) HandleRankingJob(ctx context.Context, job jobs.Job) error {
	professorID, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("ranking job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.RecomputeRanking(ctx, professorID)
}

func (s *ReviewService) scheduleRankingRecompute(ctx context.Context, professorID string) {
	if s.queue == nil {
		if err := s.RecomputeRanking(ctx, professorID); err != nil {
			s.logger.Error("inline ranking recompute failed", zap.String("professor_id", professorID), zap.Error(err))
		}
		return
	}
	err := s.queue.Enqueue(jobs.Job{Type: JobTypeRecomputeRanking, Payload: professorID})
	if err != nil {
		s.logger.Warn("failed to enqueue ranking recompute, running inline", zap.String("professor_id", professorID), zap.Error(err))
		if err := s.RecomputeRanking(ctx, professorID); err != nil {
			s.logger.Error("inline ranking recompute failed", zap.String("professor_id", professorID), zap.Error(err))
		}
	}
}
