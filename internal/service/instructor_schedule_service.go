package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-class-scheduler/internal/models"
	"github.com/noah-isme/sma-class-scheduler/pkg/cache"
	appErrors "github.com/noah-isme/sma-class-scheduler/pkg/errors"
	"github.com/noah-isme/sma-class-scheduler/pkg/jobs"
	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

type instructorTimeslotReader interface {
	ListForRange(ctx context.Context, instructorID string, from, to time.Time) ([]models.InstructorTimeslot, error)
}

type instructorSessionReader interface {
	ListByInstructorRange(ctx context.Context, instructorID string, from, to time.Time) ([]models.ClassSession, error)
}

// BusySnapshot is an instructor's commitments over a window, taken once per
// request and passed by value.
type BusySnapshot struct {
	Intervals []scheduling.BusyInterval `json:"intervals"`
	// Own holds the stored sessions of the class under edit.
	Own      []scheduling.SessionRef `json:"own"`
	CacheHit bool                    `json:"-"`
}

// OwnKeys indexes the class's own sessions for the resolver.
func (b BusySnapshot) OwnKeys() map[scheduling.DateSlotKey]struct{} {
	return scheduling.OwnSessionKeys(b.Own)
}

// InstructorScheduleService loads and normalises instructor commitments.
type InstructorScheduleService struct {
	timeslots instructorTimeslotReader
	sessions  instructorSessionReader
	cache     *CacheService
	logger    *zap.Logger
}

// NewInstructorScheduleService constructs the provider.
func NewInstructorScheduleService(timeslots instructorTimeslotReader, sessions instructorSessionReader, cache *CacheService, logger *zap.Logger) *InstructorScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorScheduleService{timeslots: timeslots, sessions: sessions, cache: cache, logger: logger}
}

type cachedBusy struct {
	Intervals []scheduling.BusyInterval `json:"intervals"`
}

// Snapshot returns the busy entries of instructorID dated inside [from, to]
// plus every recurring entry. Sessions of excludeClassID are moved to Own.
func (s *InstructorScheduleService) Snapshot(ctx context.Context, instructorID, excludeClassID string, from, to time.Time) (BusySnapshot, error) {
	from, to = scheduling.DateOf(from), scheduling.DateOf(to)
	if instructorID == "" {
		return BusySnapshot{}, appErrors.Clone(appErrors.ErrValidation, "instructorId is required")
	}
	if to.Before(from) {
		to = from
	}

	key := busyCacheKey(instructorID, from, to)
	var payload cachedBusy
	hit, _ := s.cache.Get(ctx, key, &payload)
	if !hit {
		intervals, err := s.load(ctx, instructorID, from, to)
		if err != nil {
			return BusySnapshot{}, err
		}
		payload = cachedBusy{Intervals: intervals}
		_ = s.cache.Set(ctx, key, payload, 0)
	}

	snapshot := splitOwnSessions(payload.Intervals, excludeClassID)
	snapshot.CacheHit = hit
	return snapshot, nil
}

// Invalidate drops every cached snapshot of the instructor.
func (s *InstructorScheduleService) Invalidate(ctx context.Context, instructorID string) error {
	return s.cache.Invalidate(ctx, cache.Key("busy", instructorID, "*"))
}

// HandleInvalidateJob processes JobInvalidateBusy jobs.
func (s *InstructorScheduleService) HandleInvalidateJob(ctx context.Context, job jobs.Job) error {
	instructorID, ok := job.Payload.(string)
	if !ok || instructorID == "" {
		return fmt.Errorf("invalidate busy job %s: missing instructor id", job.ID)
	}
	return s.Invalidate(ctx, instructorID)
}

func (s *InstructorScheduleService) load(ctx context.Context, instructorID string, from, to time.Time) ([]scheduling.BusyInterval, error) {
	registered, err := s.timeslots.ListForRange(ctx, instructorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor timeslots")
	}
	sessions, err := s.sessions.ListByInstructorRange(ctx, instructorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor sessions")
	}

	intervals := make([]scheduling.BusyInterval, 0, len(registered)+len(sessions))
	for _, item := range registered {
		interval, ok := timeslotInterval(item)
		if !ok {
			s.logger.Debug("skipping malformed instructor timeslot", zap.String("id", item.ID))
			continue
		}
		intervals = append(intervals, interval)
	}
	for _, item := range sessions {
		intervals = append(intervals, sessionInterval(item))
	}
	return intervals, nil
}

func busyCacheKey(instructorID string, from, to time.Time) string {
	return cache.Key("busy", instructorID, scheduling.FormatDate(from), scheduling.FormatDate(to))
}

// timeslotInterval converts a registration: a specific date wins over
// day_of_week and fixes the weekday.
func timeslotInterval(item models.InstructorTimeslot) (scheduling.BusyInterval, bool) {
	if item.TimeslotID == "" {
		return scheduling.BusyInterval{}, false
	}
	interval := scheduling.BusyInterval{
		TimeslotID: item.TimeslotID,
		Status:     scheduling.BusyStatus(item.Status),
		Source:     scheduling.SourceInstructorTimeslot,
	}
	if item.ClassID != nil {
		interval.ClassID = *item.ClassID
	}
	switch {
	case item.SpecificDate != nil && !item.SpecificDate.IsZero():
		date := scheduling.DateOf(*item.SpecificDate)
		interval.Date = &date
		interval.Weekday = date.Weekday()
	case item.DayOfWeek != nil && scheduling.ValidWeekday(time.Weekday(*item.DayOfWeek)):
		interval.Weekday = time.Weekday(*item.DayOfWeek)
	default:
		return scheduling.BusyInterval{}, false
	}
	return interval, true
}

func sessionInterval(item models.ClassSession) scheduling.BusyInterval {
	date := scheduling.DateOf(item.SessionDate)
	return scheduling.BusyInterval{
		Weekday:    date.Weekday(),
		Date:       &date,
		TimeslotID: item.TimeslotID,
		Status:     scheduling.BusySession,
		Source:     scheduling.SourceSession,
		ClassID:    item.ClassID,
		SessionID:  item.ID,
	}
}

func splitOwnSessions(intervals []scheduling.BusyInterval, classID string) BusySnapshot {
	snapshot := BusySnapshot{Intervals: make([]scheduling.BusyInterval, 0, len(intervals))}
	for _, entry := range intervals {
		if classID != "" && entry.Source == scheduling.SourceSession && entry.ClassID == classID {
			snapshot.Own = append(snapshot.Own, scheduling.SessionRef{SessionID: entry.SessionID, Date: *entry.Date, TimeslotID: entry.TimeslotID})
			continue
		}
		snapshot.Intervals = append(snapshot.Intervals, entry)
	}
	return snapshot
}
