package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutoria-app/tutoria-api/internal/models"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

type mockAvailabilityRepo struct {
	items map[string]*models.AvailabilityWindow
}

func (m *mockAvailabilityRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityWindow, error) {
	var out []models.AvailabilityWindow
	for _, w := range m.items {
		if w.TeacherID == teacherID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *mockAvailabilityRepo) FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	if w, ok := m.items[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAvailabilityRepo) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if err := m.checkOverlap(window, ""); err != nil {
		return err
	}
	if m.items == nil {
		m.items = make(map[string]*models.AvailabilityWindow)
	}
	if window.ID == "" {
		window.ID = fmt.Sprintf("generated-%d", len(m.items)+1)
	}
	cp := *window
	m.items[window.ID] = &cp
	return nil
}

func (m *mockAvailabilityRepo) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	if err := m.checkOverlap(window, window.ID); err != nil {
		return err
	}
	cp := *window
	m.items[window.ID] = &cp
	return nil
}

func (m *mockAvailabilityRepo) Delete(ctx context.Context, teacherID, id string) (bool, error) {
	if w, ok := m.items[id]; ok && w.TeacherID == teacherID {
		delete(m.items, id)
		return true, nil
	}
	return false, nil
}

// checkOverlap mirrors the production conflict scan over half-open intervals.
func (m *mockAvailabilityRepo) checkOverlap(window *models.AvailabilityWindow, excludeID string) error {
	start, _ := models.MinuteOfDay(window.StartTime)
	end, _ := models.MinuteOfDay(window.EndTime)
	for id, existing := range m.items {
		if id == excludeID || existing.TeacherID != window.TeacherID || existing.DayOfWeek != window.DayOfWeek {
			continue
		}
		es, _ := models.MinuteOfDay(existing.StartTime)
		ee, _ := models.MinuteOfDay(existing.EndTime)
		if !(ee <= start || es >= end) {
			return appErrors.Clone(appErrors.ErrAvailabilityOverlap, "")
		}
	}
	return nil
}

type mockDirectory struct {
	professors map[string]*models.Professor
}

func (m *mockDirectory) FindByID(ctx context.Context, userID string) (*models.Professor, error) {
	if p, ok := m.professors[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockInvalidator struct {
	patterns []string
}

func (m *mockInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func newAvailabilityFixture() (*AvailabilityService, *mockAvailabilityRepo, *mockInvalidator) {
	repo := &mockAvailabilityRepo{items: map[string]*models.AvailabilityWindow{}}
	directory := &mockDirectory{professors: map[string]*models.Professor{
		"t1": {UserID: "t1", FullName: "Prof One"},
	}}
	cache := &mockInvalidator{}
	return NewAvailabilityService(repo, directory, cache, nil, nil), repo, cache
}

func intPtr(v int) *int { return &v }

func TestAvailabilityCreate(t *testing.T) {
	svc, repo, cache := newAvailabilityFixture()

	window, err := svc.Create(context.Background(), "t1", CreateAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: "09:00",
		EndTime:   "11:00",
	})
	require.NoError(t, err)
	assert.True(t, window.IsAvailable)
	assert.Len(t, repo.items, 1)
	assert.Equal(t, []string{"slots:t1:*"}, cache.patterns)
}

func TestAvailabilityCreateRejectsInvertedInterval(t *testing.T) {
	svc, _, _ := newAvailabilityFixture()

	_, err := svc.Create(context.Background(), "t1", CreateAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: "11:00",
		EndTime:   "09:00",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAvailabilityCreateRejectsMalformedClock(t *testing.T) {
	svc, _, _ := newAvailabilityFixture()

	_, err := svc.Create(context.Background(), "t1", CreateAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: "9:00",
		EndTime:   "11:00",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAvailabilityCreateRejectsOverlap(t *testing.T) {
	svc, _, _ := newAvailabilityFixture()

	_, err := svc.Create(context.Background(), "t1", CreateAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "t1", CreateAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: "09:30",
		EndTime:   "10:30",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrAvailabilityOverlap.Code, appErr.Code)
}

func TestAvailabilityTouchingWindowsAllowed(t *testing.T) {
	svc, repo, _ := newAvailabilityFixture()

	_, err := svc.Create(context.Background(), "t1", CreateAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "t1", CreateAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	require.NoError(t, err)
	assert.Len(t, repo.items, 2)
}

func TestAvailabilityCreateUnknownTeacher(t *testing.T) {
	svc, _, _ := newAvailabilityFixture()

	_, err := svc.Create(context.Background(), "ghost", CreateAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAvailabilityUpdateForeignWindow(t *testing.T) {
	svc, repo, _ := newAvailabilityFixture()
	repo.items["w1"] = &models.AvailabilityWindow{
		ID: "w1", TeacherID: "other", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00",
	}

	_, err := svc.Update(context.Background(), "t1", "w1", UpdateAvailabilityRequest{
		DayOfWeek: intPtr(1),
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAvailabilityDeleteMissing(t *testing.T) {
	svc, _, _ := newAvailabilityFixture()

	err := svc.Delete(context.Background(), "t1", "missing")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
