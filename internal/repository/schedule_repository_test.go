package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutoria-app/tutoria-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func scheduleRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "title", "description", "start_datetime", "end_datetime", "is_blocked", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "t1", "Lesson", "", time.Now(), time.Now().Add(time.Hour), true, time.Now(), time.Now())
	}
	return rows
}

func TestScheduleRepositoryListByRange(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	mock.ExpectQuery(`start_datetime >= \$2 AND end_datetime <= \$3`).
		WithArgs("t1", from, to).
		WillReturnRows(scheduleRows("e1"))

	events, err := repo.ListByRange(context.Background(), "t1", from, to)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListBlockedOverlapping(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	mock.ExpectQuery(`is_blocked = TRUE AND start_datetime < \$3 AND end_datetime > \$2`).
		WithArgs("t1", from, to).
		WillReturnRows(scheduleRows("e1", "e2"))

	events, err := repo.ListBlockedOverlapping(context.Background(), "t1", from, to)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO schedule_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.ScheduleEvent{
		TeacherID:     "t1",
		Title:         "Dentist",
		StartDatetime: time.Now(),
		EndDatetime:   time.Now().Add(time.Hour),
		IsBlocked:     true,
	}
	require.NoError(t, repo.Create(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("DELETE FROM schedule_events").
		WithArgs("missing", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "t1", "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
