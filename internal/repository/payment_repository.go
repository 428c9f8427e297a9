package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutoria-app/tutoria-api/internal/models"
)

// PaymentRepository persists payment records attached to tutorships.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a payment repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	if payment.Timestamp.IsZero() {
		payment.Timestamp = now
	}
	const query = `INSERT INTO payments (id, tutorship_id, transaction_hash, amount_usdt, status, timestamp, created_at)
VALUES (:id, :tutorship_id, :transaction_hash, :amount_usdt, :status, :timestamp, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID fetches a payment by ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, tutorship_id, transaction_hash, amount_usdt, status, timestamp, created_at FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByTutorship returns payments attached to a tutorship.
func (r *PaymentRepository) ListByTutorship(ctx context.Context, tutorshipID string) ([]models.Payment, error) {
	const query = `SELECT id, tutorship_id, transaction_hash, amount_usdt, status, timestamp, created_at
FROM payments WHERE tutorship_id = $1 ORDER BY timestamp DESC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, tutorshipID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
