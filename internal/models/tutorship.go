package models

import "time"

// TutorshipStatus tracks the lifecycle of a booked session.
type TutorshipStatus string

const (
	TutorshipPending  TutorshipStatus = "pending"
	TutorshipActive   TutorshipStatus = "active"
	TutorshipFinished TutorshipStatus = "finished"
	TutorshipCanceled TutorshipStatus = "canceled"
)

// Tutorship is a booked tutoring session between a student and a professor
// for a subject.
type Tutorship struct {
	ID             string          `db:"id" json:"id"`
	ProfessorID    string          `db:"professor_id" json:"professor_id"`
	StudentID      string          `db:"student_id" json:"student_id"`
	SubjectID      string          `db:"subject_id" json:"subject_id"`
	Status         TutorshipStatus `db:"status" json:"status"`
	StartTime      time.Time       `db:"start_time" json:"start_time"`
	EndTime        time.Time       `db:"end_time" json:"end_time"`
	PriceUSDT      float64         `db:"price_usdt" json:"price_usdt"`
	PlatformFeePct float64         `db:"platform_fee_pct" json:"platform_fee_pct"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// TutorshipFilter narrows tutorship listings.
type TutorshipFilter struct {
	ProfessorID string
	StudentID   string
	Status      *TutorshipStatus
	Page        int
	PageSize    int
}

// Normalize clamps pagination to sane bounds.
func (f *TutorshipFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}
