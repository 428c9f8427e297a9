package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutoria-app/tutoria-api/internal/models"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

func newAvailabilityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAvailabilityRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "day_of_week", "start_time", "end_time", "is_available", "created_at", "updated_at"}).
		AddRow("w1", "t1", 1, "09:00", "11:00", true, time.Now(), time.Now()).
		AddRow("w2", "t1", 1, "14:00", "16:00", true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, teacher_id, day_of_week, start_time, end_time, is_available").
		WithArgs("t1").
		WillReturnRows(rows)

	windows, err := repo.ListByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, windows, 2)
	assert.Equal(t, "09:00", windows[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("t1:1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM availability_windows")).
		WithArgs("t1", 1, "09:00", "11:00").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO availability_windows").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	window := &models.AvailabilityWindow{
		TeacherID:   "t1",
		DayOfWeek:   1,
		StartTime:   "09:00",
		EndTime:     "11:00",
		IsAvailable: true,
	}
	require.NoError(t, repo.Create(context.Background(), window))
	assert.NotEmpty(t, window.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryCreateRejectsOverlap(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("t1:1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM availability_windows")).
		WithArgs("t1", 1, "09:30", "10:30").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.AvailabilityWindow{
		TeacherID: "t1",
		DayOfWeek: 1,
		StartTime: "09:30",
		EndTime:   "10:30",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrAvailabilityOverlap.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryUpdateExcludesSelf(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("t1:2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM availability_windows")).
		WithArgs("t1", 2, "10:00", "12:00", "w1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE availability_windows SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	window := &models.AvailabilityWindow{
		ID:          "w1",
		TeacherID:   "t1",
		DayOfWeek:   2,
		StartTime:   "10:00",
		EndTime:     "12:00",
		IsAvailable: true,
	}
	require.NoError(t, repo.Update(context.Background(), window))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("DELETE FROM availability_windows").
		WithArgs("w1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.Delete(context.Background(), "t1", "w1")
	require.NoError(t, err)
	assert.True(t, deleted)

	mock.ExpectExec("DELETE FROM availability_windows").
		WithArgs("missing", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err = repo.Delete(context.Background(), "t1", "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
