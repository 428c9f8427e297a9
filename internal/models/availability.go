package models

import (
	"fmt"
	"time"
)

// AvailabilityWindow is a recurring weekly interval during which a teacher is
// open to booking. Times are wall-clock HH:MM strings with minute precision;
// the zero-padded format keeps lexicographic and chronological order equal.
// DayOfWeek runs 0 = Monday through 6 = Sunday, the numbering the web client
// stores; see WeekdayNumber for the time.Weekday conversion.
type AvailabilityWindow struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Slot is a derived bookable interval. Slots are computed on demand and never
// persisted.
type Slot struct {
	StartDatetime   time.Time `json:"start_datetime"`
	EndDatetime     time.Time `json:"end_datetime"`
	DurationMinutes int       `json:"duration_minutes"`
}

// AvailableSlots is the payload returned by the slot computation endpoint.
type AvailableSlots struct {
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	Slots       []Slot `json:"available_slots"`
}

// WeekdayNumber converts a time.Weekday (0 = Sunday) to the day_of_week
// numbering used throughout the API (0 = Monday .. 6 = Sunday).
func WeekdayNumber(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// MinuteOfDay parses an HH:MM clock string into minutes since midnight.
func MinuteOfDay(clock string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", clock)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", clock)
	}
	return h*60 + m, nil
}
