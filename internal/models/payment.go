package models

import "time"

// PaymentStatus tracks the settlement state of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records a settlement tied to a tutorship. The chain transaction is
// referenced by hash only; no on-chain verification happens here.
type Payment struct {
	ID              string        `db:"id" json:"id"`
	TutorshipID     string        `db:"tutorship_id" json:"tutorship_id"`
	TransactionHash string        `db:"transaction_hash" json:"transaction_hash"`
	AmountUSDT      float64       `db:"amount_usdt" json:"amount_usdt"`
	Status          PaymentStatus `db:"status" json:"status"`
	Timestamp       time.Time     `db:"timestamp" json:"timestamp"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}
