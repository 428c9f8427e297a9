package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tutoria-app/tutoria-api/internal/models"
	"github.com/tutoria-app/tutoria-api/pkg/config"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

const slotDateLayout = "2006-01-02"

func slotCacheKey(teacherID, start, end string, duration int) string {
	return fmt.Sprintf("slots:%s:%s:%s:%d", teacherID, start, end, duration)
}

func slotCachePattern(teacherID string) string {
	return fmt.Sprintf("slots:%s:*", teacherID)
}

type slotWindowRepository interface {
	ListAvailableByDay(ctx context.Context, teacherID string, dayOfWeek int) ([]models.AvailabilityWindow, error)
}

type slotScheduleRepository interface {
	ListBlockedOverlapping(ctx context.Context, teacherID string, from, to time.Time) ([]models.ScheduleEvent, error)
}

type slotDirectory interface {
	FindByID(ctx context.Context, userID string) (*models.Professor, error)
}

type slotCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type slotMetrics interface {
	ObserveSlotComputation(teacherID string, seconds float64)
	CacheHit()
	CacheMiss()
}

// SlotService derives concrete bookable slots from the weekly availability
// grid minus blocking calendar events. Results are cached per query because
// slot derivation is read-heavy and windows change rarely.
type SlotService struct {
	windows   slotWindowRepository
	schedule  slotScheduleRepository
	directory slotDirectory
	cache     slotCache
	metrics   slotMetrics
	cfg       config.SlotsConfig
	logger    *zap.Logger
}

// NewSlotService constructs a SlotService. cache and metrics may be nil.
func NewSlotService(windows slotWindowRepository, schedule slotScheduleRepository, directory slotDirectory, cache slotCache, metrics slotMetrics, cfg config.SlotsConfig, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		windows:   windows,
		schedule:  schedule,
		directory: directory,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// AvailableSlots computes the bookable slots for a teacher over the
// half-open date range [startDate, endDate). An inverted range yields an
// empty result rather than an error; malformed dates are rejected.
func (s *SlotService) AvailableSlots(ctx context.Context, teacherID, startDate, endDate string, durationMinutes int) (*models.AvailableSlots, error) {
	start, err := time.ParseInLocation(slotDateLayout, startDate, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedDate, "")
	}
	end, err := time.ParseInLocation(slotDateLayout, endDate, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedDate, "")
	}
	if durationMinutes <= 0 {
		durationMinutes = s.cfg.DefaultDurationMinutes
	}

	professor, err := s.directory.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up teacher")
	}

	result := &models.AvailableSlots{
		TeacherID:   teacherID,
		TeacherName: professor.FullName,
		Slots:       []models.Slot{},
	}
	if !end.After(start) {
		return result, nil
	}

	if max := s.cfg.MaxRangeDays; max > 0 {
		if capped := start.AddDate(0, 0, max); end.After(capped) {
			end = capped
		}
	}

	key := slotCacheKey(teacherID, start.Format(slotDateLayout), end.Format(slotDateLayout), durationMinutes)
	if s.cache != nil {
		var cached models.AvailableSlots
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.CacheHit()
			}
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("slot cache read failed", zap.String("key", key), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.CacheMiss()
		}
	}

	began := time.Now()
	blocked, err := s.schedule.ListBlockedOverlapping(ctx, teacherID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blocking events")
	}

	duration := time.Duration(durationMinutes) * time.Minute
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		windows, err := s.windows.ListAvailableByDay(ctx, teacherID, models.WeekdayNumber(day.Weekday()))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability windows")
		}
		for _, w := range windows {
			iv, err := windowInterval(day, w)
			if err != nil {
				s.logger.Warn("skipping malformed availability window", zap.String("window_id", w.ID), zap.Error(err))
				continue
			}
			for _, free := range subtractBlocked(iv, blocked) {
				for t := free.start; !t.Add(duration).After(free.end); t = t.Add(duration) {
					result.Slots = append(result.Slots, models.Slot{
						StartDatetime:   t,
						EndDatetime:     t.Add(duration),
						DurationMinutes: durationMinutes,
					})
				}
			}
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveSlotComputation(teacherID, time.Since(began).Seconds())
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("slot cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}

// interval is a half-open [start, end) span on the absolute timeline.
type interval struct {
	start time.Time
	end   time.Time
}

func windowInterval(day time.Time, w models.AvailabilityWindow) (interval, error) {
	startMin, err := models.MinuteOfDay(w.StartTime)
	if err != nil {
		return interval{}, err
	}
	endMin, err := models.MinuteOfDay(w.EndTime)
	if err != nil {
		return interval{}, err
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return interval{
		start: midnight.Add(time.Duration(startMin) * time.Minute),
		end:   midnight.Add(time.Duration(endMin) * time.Minute),
	}, nil
}

// subtractBlocked carves the blocked events out of a window, returning the
// remaining free sub-intervals in chronological order.
func subtractBlocked(win interval, blocked []models.ScheduleEvent) []interval {
	free := []interval{win}
	for _, b := range blocked {
		var next []interval
		for _, iv := range free {
			if !b.EndDatetime.After(iv.start) || !b.StartDatetime.Before(iv.end) {
				next = append(next, iv)
				continue
			}
			if b.StartDatetime.After(iv.start) {
				next = append(next, interval{start: iv.start, end: b.StartDatetime})
			}
			if b.EndDatetime.Before(iv.end) {
				next = append(next, interval{start: b.EndDatetime, end: iv.end})
			}
		}
		free = next
	}
	return free
}
