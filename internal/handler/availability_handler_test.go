package handler

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/tutoria-app/tutoria-api/internal/middleware"
	"github.com/tutoria-app/tutoria-api/internal/models"
	"github.com/tutoria-app/tutoria-api/internal/service"
	"github.com/tutoria-app/tutoria-api/pkg/config"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

type availabilityStore struct {
	windows []models.AvailabilityWindow
	seq     int
}

func (s *availabilityStore) ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityWindow, error) {
	var out []models.AvailabilityWindow
	for _, w := range s.windows {
		if w.TeacherID == teacherID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *availabilityStore) FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	for _, w := range s.windows {
		if w.ID == id {
			cp := w
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *availabilityStore) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if s.conflicts(window, "") {
		return appErrors.Clone(appErrors.ErrAvailabilityOverlap, "")
	}
	s.seq++
	window.ID = fmt.Sprintf("w-%d", s.seq)
	s.windows = append(s.windows, *window)
	return nil
}

func (s *availabilityStore) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	if s.conflicts(window, window.ID) {
		return appErrors.Clone(appErrors.ErrAvailabilityOverlap, "")
	}
	for i, w := range s.windows {
		if w.ID == window.ID {
			s.windows[i] = *window
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *availabilityStore) Delete(ctx context.Context, teacherID, id string) (bool, error) {
	for i, w := range s.windows {
		if w.ID == id && w.TeacherID == teacherID {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *availabilityStore) ListAvailableByDay(ctx context.Context, teacherID string, dayOfWeek int) ([]models.AvailabilityWindow, error) {
	var out []models.AvailabilityWindow
	for _, w := range s.windows {
		if w.TeacherID == teacherID && w.DayOfWeek == dayOfWeek && w.IsAvailable {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *availabilityStore) conflicts(candidate *models.AvailabilityWindow, excludeID string) bool {
	cs, _ := models.MinuteOfDay(candidate.StartTime)
	ce, _ := models.MinuteOfDay(candidate.EndTime)
	for _, w := range s.windows {
		if w.TeacherID != candidate.TeacherID || w.DayOfWeek != candidate.DayOfWeek || w.ID == excludeID {
			continue
		}
		ws, _ := models.MinuteOfDay(w.StartTime)
		we, _ := models.MinuteOfDay(w.EndTime)
		if !(we <= cs || ws >= ce) {
			return true
		}
	}
	return false
}

type directoryStub struct {
	professors map[string]*models.Professor
}

func (d *directoryStub) FindByID(ctx context.Context, userID string) (*models.Professor, error) {
	if p, ok := d.professors[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type scheduleStub struct{}

func (scheduleStub) ListBlockedOverlapping(ctx context.Context, teacherID string, from, to time.Time) ([]models.ScheduleEvent, error) {
	return nil, nil
}

type invalidatorStub struct{}

func (invalidatorStub) DeleteByPattern(ctx context.Context, pattern string) error { return nil }

func buildAvailabilityRouter(store *availabilityStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: c.GetHeader("X-Test-User"),
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	directory := &directoryStub{professors: map[string]*models.Professor{
		"t1": {UserID: "t1", FullName: "Prof One"},
	}}
	availabilityService := service.NewAvailabilityService(store, directory, invalidatorStub{}, nil, nil)
	slotService := service.NewSlotService(store, scheduleStub{}, directory, nil, nil, config.SlotsConfig{
		CacheTTL:               time.Minute,
		MaxRangeDays:           31,
		DefaultDurationMinutes: 60,
	}, nil)
	h := NewAvailabilityHandler(availabilityService, slotService)

	teachers := router.Group("/teachers/:teacher_id")
	teachers.GET("/availability", h.List)
	teachers.GET("/available-slots", h.AvailableSlots)

	owned := teachers.Group("")
	owned.Use(internalmiddleware.OwnTeacherResource())
	owned.POST("/availability", h.Create)
	owned.PUT("/availability/:id", h.Update)
	owned.DELETE("/availability/:id", h.Delete)

	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAvailabilityRoutes(t *testing.T) {
	store := &availabilityStore{}
	router := buildAvailabilityRouter(store)

	create := func(body string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodPost, "/teachers/t1/availability", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		req.Header.Set("X-Test-User", "t1")
		return performRequest(router, req)
	}

	t.Run("create window", func(t *testing.T) {
		// day_of_week 0 is Monday
		resp := create(`{"day_of_week":0,"start_time":"09:00","end_time":"11:00"}`)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"day_of_week":0`)
	})

	t.Run("overlapping window rejected", func(t *testing.T) {
		resp := create(`{"day_of_week":0,"start_time":"10:00","end_time":"12:00"}`)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		require.Contains(t, resp.Body.String(), appErrors.ErrAvailabilityOverlap.Code)
	})

	t.Run("foreign teacher forbidden", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/teachers/t1/availability", bytes.NewBufferString(`{"day_of_week":2,"start_time":"09:00","end_time":"11:00"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		req.Header.Set("X-Test-User", "t2")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("list windows", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/teachers/t1/availability", nil)
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		req.Header.Set("X-Test-User", "s1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"start_time":"09:00"`)
	})

	t.Run("available slots", func(t *testing.T) {
		// 2026-03-02 is a Monday, matching the day_of_week=1 window.
		req, _ := http.NewRequest(http.MethodGet, "/teachers/t1/available-slots?start_date=2026-03-02&end_date=2026-03-03&duration=60", nil)
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		req.Header.Set("X-Test-User", "s1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"teacher_name":"Prof One"`)
	})

	t.Run("malformed date", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/teachers/t1/available-slots?start_date=bad&end_date=2026-03-03", nil)
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		req.Header.Set("X-Test-User", "s1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		require.Contains(t, resp.Body.String(), appErrors.ErrMalformedDate.Code)
	})

	t.Run("bad duration", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/teachers/t1/available-slots?start_date=2026-03-02&end_date=2026-03-03&duration=zero", nil)
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		req.Header.Set("X-Test-User", "s1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
