package models

import "time"

// Review is a student's rating of a finished tutorship.
type Review struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	ProfessorID string    `db:"professor_id" json:"professor_id"`
	TutorshipID string    `db:"tutorship_id" json:"tutorship_id"`
	Rating      int       `db:"rating" json:"rating"`
	Comment     string    `db:"comment" json:"comment"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
