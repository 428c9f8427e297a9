package models

import "time"

// SubjectLevel classifies the education stage a subject targets.
type SubjectLevel string

const (
	LevelPrimaria   SubjectLevel = "primaria"
	LevelSecundaria SubjectLevel = "secundaria"
	LevelTerciaria  SubjectLevel = "terciaria"
)

// Subject is a catalog entry professors can attach to their profile.
type Subject struct {
	ID          string       `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description"`
	Level       SubjectLevel `db:"level" json:"level"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures filtering options for listing subjects.
type SubjectFilter struct {
	Search   string
	Level    *SubjectLevel
	Page     int
	PageSize int
}

// Normalize clamps pagination to sane bounds.
func (f *SubjectFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}
