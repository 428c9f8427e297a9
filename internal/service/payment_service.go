package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutoria-app/tutoria-api/internal/models"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

type paymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	ListByTutorship(ctx context.Context, tutorshipID string) ([]models.Payment, error)
}

type paymentTutorshipRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tutorship, error)
	UpdateStatus(ctx context.Context, id string, status models.TutorshipStatus) error
}

// CreatePaymentRequest records a settlement for a tutorship. The transaction
// hash is stored as an opaque reference.
type CreatePaymentRequest struct {
	TutorshipID     string  `json:"tutorship_id" validate:"required,uuid4"`
	TransactionHash string  `json:"transaction_hash" validate:"required,min=10,max=120"`
	AmountUSDT      float64 `json:"amount_usdt" validate:"required,gt=0"`
}

// PaymentService records settlements against tutorships. A confirmed payment
// activates a pending tutorship, which is where a double-booked slot gets
// resolved in practice.
type PaymentService struct {
	repo       paymentRepository
	tutorships paymentTutorshipRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(repo paymentRepository, tutorships paymentTutorshipRepository, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, tutorships: tutorships, validator: validate, logger: logger}
}

// Create records a payment for a tutorship the actor is party to.
func (s *PaymentService) Create(ctx context.Context, actor *models.JWTClaims, req CreatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	tutorship, err := s.tutorships.FindByID(ctx, req.TutorshipID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutorship not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutorship")
	}
	if !canSeeTutorship(actor, tutorship) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	payment := &models.Payment{
		TutorshipID:     req.TutorshipID,
		TransactionHash: req.TransactionHash,
		AmountUSDT:      req.AmountUSDT,
		Status:          models.PaymentConfirmed,
		Timestamp:       time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	if tutorship.Status == models.TutorshipPending {
		if err := s.tutorships.UpdateStatus(ctx, tutorship.ID, models.TutorshipActive); err != nil {
			s.logger.Error("failed to activate tutorship after payment",
				zap.String("tutorship_id", tutorship.ID), zap.Error(err))
		}
	}

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("tutorship_id", payment.TutorshipID),
		zap.Float64("amount_usdt", payment.AmountUSDT),
	)
	return payment, nil
}

// ListByTutorship returns every payment recorded against a tutorship the
// actor is party to.
func (s *PaymentService) ListByTutorship(ctx context.Context, actor *models.JWTClaims, tutorshipID string) ([]models.Payment, error) {
	tutorship, err := s.tutorships.FindByID(ctx, tutorshipID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutorship not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutorship")
	}
	if !canSeeTutorship(actor, tutorship) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	payments, err := s.repo.ListByTutorship(ctx, tutorshipID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}
