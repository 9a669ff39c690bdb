package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-class-scheduler/internal/dto"
	"github.com/noah-isme/sma-class-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-class-scheduler/pkg/errors"
	"github.com/noah-isme/sma-class-scheduler/pkg/middleware/requestid"
	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

const warnBusyUnavailable = "instructor schedule unavailable; availability may be optimistic"

type timeslotCatalogReader interface {
	List(ctx context.Context) ([]models.Timeslot, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type instructorReader interface {
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
}

type busyProvider interface {
	Snapshot(ctx context.Context, instructorID, excludeClassID string, from, to time.Time) (BusySnapshot, error)
}

type blockedDayAnalyzer interface {
	Analyze(snapshot BusySnapshot, from, to time.Time, pattern scheduling.WeeklyPattern, catalog scheduling.TimeslotCatalog) scheduling.BlockedDayMap
}

// PlanningRequest names what a planning context is built for.
type PlanningRequest struct {
	InstructorID string
	ClassID      string
	From         time.Time
	To           time.Time
	Pattern      scheduling.WeeklyPattern
	// Catalog skips the catalog lookup when already loaded.
	Catalog scheduling.TimeslotCatalog
}

// PlanningContext is the snapshot every scheduling operation works on.
type PlanningContext struct {
	Class      *models.Class
	Instructor *models.Instructor
	Catalog    scheduling.TimeslotCatalog
	Busy       BusySnapshot
	Blocked    scheduling.BlockedDayMap
	Warnings   []string
	// Degraded is set when the busy snapshot could not be read and Busy is
	// empty rather than known to be free.
	Degraded bool
}

// InstructorType maps the employment type onto the engine's enum.
func (p *PlanningContext) InstructorType() scheduling.InstructorType {
	if p.Instructor != nil && p.Instructor.EmploymentType == models.EmploymentPartTime {
		return scheduling.InstructorPartTime
	}
	return scheduling.InstructorFullTime
}

// BaseQuery returns a resolver query sharing this context.
func (p *PlanningContext) BaseQuery(start, end time.Time, pattern scheduling.WeeklyPattern, sessionsPerWeek, lockThreshold int) scheduling.SlotQuery {
	query := scheduling.SlotQuery{
		StartDate:           start,
		EndDate:             end,
		Blocked:             p.Blocked,
		Busy:                p.Busy.Intervals,
		InstructorType:      p.InstructorType(),
		PartTimeSlots:       scheduling.PartTimeAvailability(p.Busy.Intervals),
		RegistrationUnknown: p.Degraded,
		Pattern:             pattern,
		Catalog:             p.Catalog,
		SessionsPerWeek:     sessionsPerWeek,
		OwnSessions:         p.Busy.OwnKeys(),
		LockThreshold:       lockThreshold,
	}
	if p.Class != nil && p.Class.IsDraft() {
		query.IsDraftClass = true
		query.LockedTimeslotID = p.Class.LockedTimeslot()
	}
	return query
}

// SlotAvailabilityService builds planning contexts and answers slot and
// end-date questions.
type SlotAvailabilityService struct {
	timeslots     timeslotCatalogReader
	classes       classReader
	instructors   instructorReader
	busy          busyProvider
	blocked       blockedDayAnalyzer
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	lockThreshold int
	defaultTotal  int
}

// SlotAvailabilityConfig governs resolution behaviour.
type SlotAvailabilityConfig struct {
	LockThreshold int
	// DefaultTotalSessions sizes the status window and end-date estimate
	// when the request names no total.
	DefaultTotalSessions int
}

// NewSlotAvailabilityService wires the availability dependencies.
func NewSlotAvailabilityService(
	timeslots timeslotCatalogReader,
	classes classReader,
	instructors instructorReader,
	busy busyProvider,
	blocked blockedDayAnalyzer,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SlotAvailabilityConfig,
) *SlotAvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockThreshold < 1 {
		cfg.LockThreshold = 1
	}
	if cfg.DefaultTotalSessions <= 0 {
		cfg.DefaultTotalSessions = scheduling.DefaultTotalSessions
	}
	return &SlotAvailabilityService{
		timeslots:     timeslots,
		classes:       classes,
		instructors:   instructors,
		busy:          busy,
		blocked:       blocked,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		lockThreshold: cfg.LockThreshold,
		defaultTotal:  cfg.DefaultTotalSessions,
	}
}

// LockThreshold exposes the configured busy-count threshold.
func (s *SlotAvailabilityService) LockThreshold() int {
	return s.lockThreshold
}

// Catalog returns the timeslot catalog.
func (s *SlotAvailabilityService) Catalog(ctx context.Context) ([]models.Timeslot, error) {
	items, err := s.timeslots.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timeslots")
	}
	return items, nil
}

// Load assembles the planning context. Busy data failures degrade to an
// empty snapshot with a warning.
func (s *SlotAvailabilityService) Load(ctx context.Context, req PlanningRequest) (*PlanningContext, error) {
	planning := &PlanningContext{Catalog: req.Catalog}
	if planning.Catalog == nil {
		items, err := s.Catalog(ctx)
		if err != nil {
			return nil, err
		}
		planning.Catalog = models.Catalog(items)
	}

	if req.ClassID != "" {
		class, err := s.classes.FindByID(ctx, req.ClassID)
		if err != nil {
			return nil, notFoundOrInternal(err, "class not found", "failed to load class")
		}
		planning.Class = class
		if req.InstructorID == "" {
			req.InstructorID = class.InstructorID
		}
	}
	if req.InstructorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructorId is required")
	}

	instructor, err := s.instructors.FindByID(ctx, req.InstructorID)
	if err != nil {
		return nil, notFoundOrInternal(err, "instructor not found", "failed to load instructor")
	}
	planning.Instructor = instructor

	snapshot, err := s.busy.Snapshot(ctx, req.InstructorID, req.ClassID, req.From, req.To)
	if err != nil {
		s.logger.Warn("busy snapshot failed, continuing without it",
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.String("instructor_id", req.InstructorID),
			zap.Error(err),
		)
		s.metrics.RecordFailOpen("busy_provider")
		planning.Warnings = append(planning.Warnings, warnBusyUnavailable)
		planning.Degraded = true
		snapshot = BusySnapshot{}
	}
	planning.Busy = snapshot
	planning.Blocked = s.blocked.Analyze(snapshot, req.From, req.To, req.Pattern, planning.Catalog)
	return planning, nil
}

// SlotStatus resolves every pair of the requested pattern.
func (s *SlotAvailabilityService) SlotStatus(ctx context.Context, req dto.SlotStatusRequest) (*dto.SlotStatusResponse, []string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot status payload")
	}
	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, nil, err
	}
	pattern := dto.WeeklyPattern(req.Pattern)

	items, err := s.Catalog(ctx)
	if err != nil {
		return nil, nil, err
	}
	catalog := models.Catalog(items)
	if err := validatePatternSlots(pattern, catalog); err != nil {
		return nil, nil, err
	}
	windowEnd := scheduling.EffectiveEndDate(start, end, pattern, catalog, req.SessionsPerWeek, s.defaultTotal)

	planning, err := s.Load(ctx, PlanningRequest{
		InstructorID: req.InstructorID,
		ClassID:      req.ClassID,
		From:         start,
		To:           windowEnd,
		Pattern:      pattern,
		Catalog:      catalog,
	})
	if err != nil {
		return nil, nil, err
	}

	query := planning.BaseQuery(start, windowEnd, pattern, req.SessionsPerWeek, s.lockThreshold)
	query.TotalSessions = s.defaultTotal
	grid := scheduling.ResolveGrid(query, pattern)
	s.metrics.RecordSlotGrid(grid)

	return &dto.SlotStatusResponse{
		StartDate:      scheduling.FormatDate(start),
		EndDate:        scheduling.FormatDate(windowEnd),
		Slots:          grid,
		AllAvailable:   grid.AllAvailable(),
		AvailableCount: grid.AvailableCount(),
		CacheHit:       planning.Busy.CacheHit,
	}, planning.Warnings, nil
}

// EstimateEndDate estimates when a course of totalSessions would end.
func (s *SlotAvailabilityService) EstimateEndDate(ctx context.Context, req dto.EndDateRequest) (*dto.EndDateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date payload")
	}
	start, err := scheduling.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}
	items, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	pattern := dto.WeeklyPattern(req.Pattern)
	catalog := models.Catalog(items)
	if err := validatePatternSlots(pattern, catalog); err != nil {
		return nil, err
	}

	target := req.TotalSessions
	if target <= 0 {
		target = s.defaultTotal
	}
	end, ok := scheduling.EstimateEndDate(start, target, pattern, catalog)
	return &dto.EndDateResponse{
		StartDate:     scheduling.FormatDate(start),
		EndDate:       scheduling.FormatDate(end),
		TotalSessions: target,
		Estimated:     ok,
	}, nil
}

func parseWindow(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, err := scheduling.ParseDate(rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}
	if rawEnd == "" {
		return start, time.Time{}, nil
	}
	end, err := scheduling.ParseDate(rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endDate")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	return start, end, nil
}

func validatePatternSlots(pattern scheduling.WeeklyPattern, catalog scheduling.TimeslotCatalog) error {
	for _, day := range pattern.Days() {
		for _, id := range pattern[day] {
			if _, ok := catalog.Find(id); !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timeslot %q", id))
			}
		}
	}
	return nil
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
