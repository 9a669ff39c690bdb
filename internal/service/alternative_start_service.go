package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-class-scheduler/internal/dto"
	appErrors "github.com/noah-isme/sma-class-scheduler/pkg/errors"
	"github.com/noah-isme/sma-class-scheduler/pkg/middleware/requestid"
	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

// AlternativeStartConfig governs the search.
type AlternativeStartConfig struct {
	Timeout              time.Duration
	MaxAlternatives      int
	LockThreshold        int
	DefaultTotalSessions int
	// Now anchors "today"; defaults to time.Now.
	Now func() time.Time
}

// AlternativeStartService suggests start dates where a whole pattern is free.
type AlternativeStartService struct {
	loader    planningLoader
	tracker   *SearchTracker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AlternativeStartConfig
}

// NewAlternativeStartService wires the search dependencies.
func NewAlternativeStartService(loader planningLoader, tracker *SearchTracker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AlternativeStartConfig) *AlternativeStartService {
	if tracker == nil {
		tracker = NewSearchTracker()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxAlternatives <= 0 {
		cfg.MaxAlternatives = scheduling.DefaultMaxAlternatives
	}
	if cfg.DefaultTotalSessions <= 0 {
		cfg.DefaultTotalSessions = scheduling.DefaultTotalSessions
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AlternativeStartService{loader: loader, tracker: tracker, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// Search scans forward week by week from the requested start. A newer search
// for the same instructor and class supersedes this one.
func (s *AlternativeStartService) Search(ctx context.Context, req dto.AlternativesRequest) (*dto.AlternativesResponse, []string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alternatives payload")
	}
	start, err := scheduling.ParseDate(req.StartDate)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}
	pattern := dto.WeeklyPattern(req.Pattern)

	target := req.TotalSessions
	if target <= 0 {
		target = s.cfg.DefaultTotalSessions
	}
	planning, err := s.loader.Load(ctx, PlanningRequest{
		InstructorID: req.InstructorID,
		ClassID:      req.ClassID,
		From:         start,
		To:           searchHorizon(start, target, pattern),
		Pattern:      pattern,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := validatePatternSlots(pattern, planning.Catalog); err != nil {
		return nil, nil, err
	}
	if req.TotalSessions <= 0 && planning.Class != nil && planning.Class.TotalSessions > 0 {
		target = planning.Class.TotalSessions
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = s.cfg.MaxAlternatives
	}

	ticket := s.tracker.Begin(ctx, req.InstructorID+":"+req.ClassID)
	defer s.tracker.Finish(ticket)
	searchCtx, cancel := context.WithTimeout(ticket.Context(), s.cfg.Timeout)
	defer cancel()

	began := time.Now()
	result, err := scheduling.SearchAlternativeStartDates(searchCtx, scheduling.AlternativeQuery{
		Base:                 planning.BaseQuery(start, time.Time{}, pattern, 0, s.cfg.LockThreshold),
		Pattern:              pattern,
		Catalog:              planning.Catalog,
		TargetSessions:       target,
		CandidateStart:       start,
		Today:                s.cfg.Now(),
		RequiredSlotsPerWeek: req.RequiredSlotsPerWeek,
		MaxResults:           maxResults,
	})
	s.metrics.ObserveAlternativeSearch(time.Since(began))

	if !s.tracker.Current(ticket) {
		s.metrics.RecordStaleSearch()
		return nil, nil, appErrors.Clone(appErrors.ErrStaleSearch, "")
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Warn("alternative search timed out",
				zap.String("request_id", requestid.FromContext(ctx)),
				zap.String("instructor_id", req.InstructorID),
				zap.Int("weeks_scanned", result.WeeksScanned),
			)
			return nil, nil, appErrors.Clone(appErrors.ErrSearchTimeout, "")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "alternative search cancelled")
	}

	views := make([]dto.AlternativeView, 0, len(result.Dates))
	for _, date := range result.Dates {
		views = append(views, dto.AlternativeView{StartDate: scheduling.FormatDate(date.StartDate), EndDate: scheduling.FormatDate(date.EndDate)})
	}
	return &dto.AlternativesResponse{
		Found:        result.Found(),
		Alternatives: views,
		WeeksScanned: result.WeeksScanned,
		Exhausted:    result.Exhausted,
	}, planning.Warnings, nil
}

// searchHorizon covers every probe window: the scanned weeks plus the course length.
func searchHorizon(start time.Time, target int, pattern scheduling.WeeklyPattern) time.Time {
	rate := scheduling.EffectiveSessionsPerWeek(0, pattern)
	weeks := (target + rate - 1) / rate
	return start.AddDate(0, 0, 7*(scheduling.MaxSearchWeeks+weeks+1))
}
