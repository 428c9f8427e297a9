package models

import "time"

// Professor represents the public teaching profile attached to a user.
type Professor struct {
	UserID    string    `db:"user_id" json:"user_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Abstract  string    `db:"abstract" json:"abstract"`
	Picture   *string   `db:"picture" json:"picture,omitempty"`
	Ranking   float64   `db:"ranking" json:"ranking"`
	Subjects  []Subject `db:"-" json:"subjects,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ProfessorSubject links a professor to a subject they teach.
type ProfessorSubject struct {
	ID          string    `db:"id" json:"id"`
	ProfessorID string    `db:"professor_id" json:"professor_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ProfessorFilter narrows the professor directory listing.
type ProfessorFilter struct {
	Search    string
	SubjectID string
	Page      int
	PageSize  int
}

// Normalize clamps pagination to sane bounds.
func (f *ProfessorFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}
