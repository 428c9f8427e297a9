package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutoria-app/tutoria-api/internal/models"
	"github.com/tutoria-app/tutoria-api/pkg/config"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

// 2026-03-02 is a Monday.
const testMonday = "2026-03-02"

type mockSlotWindows struct {
	windows []models.AvailabilityWindow
}

func (m *mockSlotWindows) ListAvailableByDay(ctx context.Context, teacherID string, dayOfWeek int) ([]models.AvailabilityWindow, error) {
	var out []models.AvailabilityWindow
	for _, w := range m.windows {
		if w.TeacherID == teacherID && w.DayOfWeek == dayOfWeek && w.IsAvailable {
			out = append(out, w)
		}
	}
	return out, nil
}

type mockSlotSchedule struct {
	events []models.ScheduleEvent
	calls  int
}

func (m *mockSlotSchedule) ListBlockedOverlapping(ctx context.Context, teacherID string, from, to time.Time) ([]models.ScheduleEvent, error) {
	m.calls++
	var out []models.ScheduleEvent
	for _, e := range m.events {
		if e.TeacherID == teacherID && e.IsBlocked && e.StartDatetime.Before(to) && e.EndDatetime.After(from) {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockSlotCache struct {
	entries map[string][]byte
}

func (m *mockSlotCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "")
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockSlotCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	return nil
}

func newSlotFixture(windows []models.AvailabilityWindow, events []models.ScheduleEvent) (*SlotService, *mockSlotSchedule, *mockSlotCache) {
	schedule := &mockSlotSchedule{events: events}
	cache := &mockSlotCache{}
	directory := &mockDirectory{professors: map[string]*models.Professor{
		"t1": {UserID: "t1", FullName: "Prof One"},
	}}
	cfg := config.SlotsConfig{CacheTTL: time.Minute, MaxRangeDays: 31, DefaultDurationMinutes: 60}
	svc := NewSlotService(&mockSlotWindows{windows: windows}, schedule, directory, cache, nil, cfg, nil)
	return svc, schedule, cache
}

// day_of_week 0 is Monday.
func mondayWindow(start, end string) models.AvailabilityWindow {
	return models.AvailabilityWindow{
		ID: "w1", TeacherID: "t1", DayOfWeek: 0,
		StartTime: start, EndTime: end, IsAvailable: true,
	}
}

func TestAvailableSlotsSingleDay(t *testing.T) {
	svc, _, _ := newSlotFixture([]models.AvailabilityWindow{mondayWindow("09:00", "11:00")}, nil)

	result, err := svc.AvailableSlots(context.Background(), "t1", testMonday, "2026-03-03", 60)
	require.NoError(t, err)
	assert.Equal(t, "Prof One", result.TeacherName)
	require.Len(t, result.Slots, 2)

	first := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, first, result.Slots[0].StartDatetime)
	assert.Equal(t, first.Add(time.Hour), result.Slots[0].EndDatetime)
	assert.Equal(t, first.Add(time.Hour), result.Slots[1].StartDatetime)
	assert.Equal(t, 60, result.Slots[1].DurationMinutes)
}

func TestAvailableSlotsWeekdayNumberingStartsMonday(t *testing.T) {
	svc, _, _ := newSlotFixture([]models.AvailabilityWindow{mondayWindow("09:00", "10:00")}, nil)

	// Sunday 2026-03-01: a day_of_week=0 window must not surface here.
	sunday, err := svc.AvailableSlots(context.Background(), "t1", "2026-03-01", testMonday, 60)
	require.NoError(t, err)
	assert.Empty(t, sunday.Slots)

	monday, err := svc.AvailableSlots(context.Background(), "t1", testMonday, "2026-03-03", 60)
	require.NoError(t, err)
	require.Len(t, monday.Slots, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), monday.Slots[0].StartDatetime)
}

func TestAvailableSlotsBlockedEventSplitsWindow(t *testing.T) {
	block := models.ScheduleEvent{
		ID: "e1", TeacherID: "t1", IsBlocked: true,
		StartDatetime: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		EndDatetime:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}
	svc, _, _ := newSlotFixture([]models.AvailabilityWindow{mondayWindow("09:00", "12:00")}, []models.ScheduleEvent{block})

	result, err := svc.AvailableSlots(context.Background(), "t1", testMonday, "2026-03-03", 60)
	require.NoError(t, err)
	require.Len(t, result.Slots, 2)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), result.Slots[0].StartDatetime)
	assert.Equal(t, time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), result.Slots[1].StartDatetime)
}

func TestAvailableSlotsFullyBlocked(t *testing.T) {
	block := models.ScheduleEvent{
		ID: "e1", TeacherID: "t1", IsBlocked: true,
		StartDatetime: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		EndDatetime:   time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
	}
	svc, _, _ := newSlotFixture([]models.AvailabilityWindow{mondayWindow("09:00", "11:00")}, []models.ScheduleEvent{block})

	result, err := svc.AvailableSlots(context.Background(), "t1", testMonday, "2026-03-03", 60)
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
}

func TestAvailableSlotsInvertedRange(t *testing.T) {
	svc, _, _ := newSlotFixture([]models.AvailabilityWindow{mondayWindow("09:00", "11:00")}, nil)

	result, err := svc.AvailableSlots(context.Background(), "t1", "2026-03-09", testMonday, 60)
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
}

func TestAvailableSlotsMalformedDate(t *testing.T) {
	svc, _, _ := newSlotFixture(nil, nil)

	_, err := svc.AvailableSlots(context.Background(), "t1", "02-03-2026", "2026-03-03", 60)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrMalformedDate.Code, appErr.Code)
}

func TestAvailableSlotsUnknownTeacher(t *testing.T) {
	svc, _, _ := newSlotFixture(nil, nil)

	_, err := svc.AvailableSlots(context.Background(), "ghost", testMonday, "2026-03-03", 60)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAvailableSlotsServedFromCache(t *testing.T) {
	svc, schedule, _ := newSlotFixture([]models.AvailabilityWindow{mondayWindow("09:00", "11:00")}, nil)

	first, err := svc.AvailableSlots(context.Background(), "t1", testMonday, "2026-03-03", 60)
	require.NoError(t, err)
	require.Equal(t, 1, schedule.calls)

	second, err := svc.AvailableSlots(context.Background(), "t1", testMonday, "2026-03-03", 60)
	require.NoError(t, err)
	assert.Equal(t, 1, schedule.calls)
	assert.Equal(t, len(first.Slots), len(second.Slots))
}

func TestAvailableSlotsDefaultDuration(t *testing.T) {
	svc, _, _ := newSlotFixture([]models.AvailabilityWindow{mondayWindow("09:00", "10:30")}, nil)

	result, err := svc.AvailableSlots(context.Background(), "t1", testMonday, "2026-03-03", 0)
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	assert.Equal(t, 60, result.Slots[0].DurationMinutes)
}
