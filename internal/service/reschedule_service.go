package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-class-scheduler/internal/dto"
	"github.com/noah-isme/sma-class-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-class-scheduler/pkg/errors"
	"github.com/noah-isme/sma-class-scheduler/pkg/middleware/requestid"
	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

type rescheduleSessionStore interface {
	classSessionStore
	DeleteByIDsWithTx(ctx context.Context, tx *sqlx.Tx, classID string, ids []string) (int64, error)
	ResequenceWithTx(ctx context.Context, tx *sqlx.Tx, classID string) error
}

// RescheduleConfig governs reschedule defaults.
type RescheduleConfig struct {
	DefaultTotalSessions int
}

// RescheduleService previews and applies a change of start date or pattern
// to a class that already has stored sessions.
type RescheduleService struct {
	loader    planningLoader
	sessions  rescheduleSessionStore
	classes   classScheduleWriter
	tx        txProvider
	jobs      jobEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RescheduleConfig
}

// NewRescheduleService wires the reschedule dependencies.
func NewRescheduleService(
	loader planningLoader,
	sessions rescheduleSessionStore,
	classes classScheduleWriter,
	tx txProvider,
	queue jobEnqueuer,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg RescheduleConfig,
) *RescheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTotalSessions <= 0 {
		cfg.DefaultTotalSessions = scheduling.DefaultTotalSessions
	}
	return &RescheduleService{
		loader:    loader,
		sessions:  sessions,
		classes:   classes,
		tx:        tx,
		jobs:      queue,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

type reschedulePlan struct {
	class    *models.Class
	oldStart time.Time
	start    time.Time
	pattern  scheduling.WeeklyPattern
	target   int
	plan     scheduling.SessionPlan
	lost     []scheduling.SessionRef
	diff     scheduling.ScheduleDiff
	warnings []string
}

// Impact reports the sessions a reschedule would drop and add.
func (s *RescheduleService) Impact(ctx context.Context, req dto.RescheduleRequest) (*dto.ImpactResponse, []string, error) {
	draft, err := s.prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return &dto.ImpactResponse{
		ClassID:      draft.class.ID,
		OldStartDate: scheduling.FormatDate(draft.oldStart),
		NewStartDate: scheduling.FormatDate(draft.start),
		NewEndDate:   scheduling.FormatDate(lastSessionDate(draft.plan)),
		LostByStart:  dto.SessionRefViews(draft.lost),
		Removed:      dto.SessionRefViews(draft.diff.Lost),
		Added:        dto.SessionRefViews(draft.diff.Added),
		Skipped:      draft.plan.Skipped,
		Unchanged:    draft.diff.Empty(),
	}, draft.warnings, nil
}

// Apply replaces the stored schedule: removed sessions are deleted, new ones
// inserted and the class renumbered, all in one transaction.
func (s *RescheduleService) Apply(ctx context.Context, req dto.RescheduleRequest) (*dto.ApplyResponse, error) {
	draft, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	removeIDs := make([]string, 0, len(draft.diff.Lost))
	for _, ref := range draft.diff.Lost {
		if ref.SessionID != "" {
			removeIDs = append(removeIDs, ref.SessionID)
		}
	}
	added := make(map[scheduling.DateSlotKey]struct{}, len(draft.diff.Added))
	for _, ref := range draft.diff.Added {
		added[ref.Key()] = struct{}{}
	}
	var candidates []scheduling.SessionCandidate
	for _, candidate := range draft.plan.Persistable() {
		if _, ok := added[candidate.Ref().Key()]; ok {
			candidates = append(candidates, candidate)
		}
	}
	records := sessionRecords(draft.class.ID, draft.class.InstructorID, draft.class.Title, candidates)
	update, err := scheduleUpdate(draft.class.ID, draft.start, draft.plan, draft.pattern, draft.target)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var removed int64
	if removed, err = s.sessions.DeleteByIDsWithTx(ctx, tx, draft.class.ID, removeIDs); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete replaced sessions")
		return nil, err
	}
	if len(records) > 0 {
		if err = s.sessions.BulkCreateWithTx(ctx, tx, records); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert new sessions")
			return nil, err
		}
	}
	if err = s.sessions.ResequenceWithTx(ctx, tx, draft.class.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to renumber sessions")
		return nil, err
	}
	if err = s.classes.UpdateScheduleWithTx(ctx, tx, update); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class schedule")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reschedule transaction")
		return nil, err
	}

	s.metrics.RecordSessionPlan(draft.plan)
	enqueueInvalidation(s.jobs, s.logger, draft.class.InstructorID)
	s.logger.Info("class rescheduled",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("class_id", draft.class.ID),
		zap.Int64("removed", removed),
		zap.Int("added", len(records)),
	)

	return &dto.ApplyResponse{
		ClassID:   draft.class.ID,
		Removed:   removed,
		Added:     len(records),
		StartDate: scheduling.FormatDate(update.StartDate),
		EndDate:   scheduling.FormatDate(update.EndDate),
	}, nil
}

func (s *RescheduleService) prepare(ctx context.Context, req dto.RescheduleRequest) (*reschedulePlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	pattern := dto.WeeklyPattern(req.Pattern)

	planning, err := s.loader.Load(ctx, PlanningRequest{
		ClassID: req.ClassID,
		From:    start,
		To:      planHorizon(start, end),
		Pattern: pattern,
	})
	if err != nil {
		return nil, err
	}
	class := planning.Class
	if class == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	if len(pattern) == 0 {
		if pattern, err = class.Pattern(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored weekly pattern is unreadable")
		}
	}
	if len(pattern) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pattern is required when the class has none stored")
	}
	if err := validatePatternSlots(pattern, planning.Catalog); err != nil {
		return nil, err
	}

	existing, err := s.sessions.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class sessions")
	}

	target := req.TotalSessions
	if target <= 0 {
		target = class.TotalSessions
	}
	if target <= 0 {
		target = s.cfg.DefaultTotalSessions
	}

	plan := scheduling.GenerateSessions(scheduling.GenerateInput{
		StartDate:      start,
		EndDate:        end,
		Pattern:        pattern,
		Catalog:        planning.Catalog,
		TargetSessions: target,
		Busy:           planning.Busy.Intervals,
	})
	if plan.Empty() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "pattern yields no sessions for the selected window")
	}

	oldRefs := models.SessionRefs(existing)
	oldStart := storedStart(class, existing)
	return &reschedulePlan{
		class:    class,
		oldStart: oldStart,
		start:    start,
		pattern:  pattern,
		target:   target,
		plan:     plan,
		lost:     scheduling.ComputeLostSessions(oldRefs, oldStart, start),
		diff:     scheduling.ComputeScheduleDiff(oldRefs, scheduling.SessionRefs(plan.Persistable())),
		warnings: planning.Warnings,
	}, nil
}

// storedStart prefers the class start date and falls back to the earliest session.
func storedStart(class *models.Class, sessions []models.ClassSession) time.Time {
	if class.StartDate != nil && !class.StartDate.IsZero() {
		return scheduling.DateOf(*class.StartDate)
	}
	var earliest time.Time
	for _, session := range sessions {
		if earliest.IsZero() || session.SessionDate.Before(earliest) {
			earliest = session.SessionDate
		}
	}
	return scheduling.DateOf(earliest)
}
