package models

import "time"

// ScheduleEvent is a one-off calendar entry on a teacher's agenda. Blocking
// events remove availability for their interval; informational events do not.
type ScheduleEvent struct {
	ID            string    `db:"id" json:"id"`
	TeacherID     string    `db:"teacher_id" json:"teacher_id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	StartDatetime time.Time `db:"start_datetime" json:"start_datetime"`
	EndDatetime   time.Time `db:"end_datetime" json:"end_datetime"`
	IsBlocked     bool      `db:"is_blocked" json:"is_blocked"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
