package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-class-scheduler/internal/dto"
	"github.com/noah-isme/sma-class-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-class-scheduler/pkg/errors"
	"github.com/noah-isme/sma-class-scheduler/pkg/export"
	"github.com/noah-isme/sma-class-scheduler/pkg/jobs"
	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

// JobInvalidateBusy drops cached busy snapshots of the instructor in the payload.
const JobInvalidateBusy = "scheduling.invalidate_busy"

type planningLoader interface {
	Load(ctx context.Context, req PlanningRequest) (*PlanningContext, error)
}

type classSessionStore interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassSession, error)
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sessions []models.ClassSession) error
}

type classScheduleWriter interface {
	UpdateScheduleWithTx(ctx context.Context, tx *sqlx.Tx, update models.ClassScheduleUpdate) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// SessionPlanConfig governs proposal behaviour.
type SessionPlanConfig struct {
	ProposalTTL          time.Duration
	DefaultTotalSessions int
}

// SessionPlanService previews, stores and exports generated session plans.
type SessionPlanService struct {
	loader    planningLoader
	sessions  classSessionStore
	classes   classScheduleWriter
	tx        txProvider
	jobs      jobEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	store     *proposalStore
	defaults  SessionPlanConfig
}

// NewSessionPlanService wires the planner dependencies.
func NewSessionPlanService(
	loader planningLoader,
	sessions classSessionStore,
	classes classScheduleWriter,
	tx txProvider,
	queue jobEnqueuer,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SessionPlanConfig,
) *SessionPlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.DefaultTotalSessions <= 0 {
		cfg.DefaultTotalSessions = scheduling.DefaultTotalSessions
	}
	return &SessionPlanService{
		loader:    loader,
		sessions:  sessions,
		classes:   classes,
		tx:        tx,
		jobs:      queue,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newProposalStore(cfg.ProposalTTL),
		defaults:  cfg,
	}
}

// Preview generates a plan for the class and keeps it as a proposal.
func (s *SessionPlanService) Preview(ctx context.Context, req dto.PreviewSessionsRequest) (*dto.PreviewSessionsResponse, []string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session preview payload")
	}
	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, nil, err
	}
	pattern := dto.WeeklyPattern(req.Pattern)

	planning, err := s.loader.Load(ctx, PlanningRequest{
		ClassID: req.ClassID,
		From:    start,
		To:      planHorizon(start, end),
		Pattern: pattern,
	})
	if err != nil {
		return nil, nil, err
	}
	if planning.Class == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	if err := validatePatternSlots(pattern, planning.Catalog); err != nil {
		return nil, nil, err
	}

	target := req.TotalSessions
	if target <= 0 && planning.Class != nil {
		target = planning.Class.TotalSessions
	}
	if target <= 0 {
		target = s.defaults.DefaultTotalSessions
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
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "pattern yields no sessions for the selected window")
	}
	s.metrics.RecordSessionPlan(plan)

	proposal := sessionProposal{
		ProposalID:     uuid.NewString(),
		ClassID:        planning.Class.ID,
		InstructorID:   planning.Class.InstructorID,
		Title:          planning.Class.Title,
		StartDate:      start,
		Pattern:        pattern,
		TargetSessions: target,
		Plan:           plan,
		RequestedAt:    time.Now().UTC(),
	}
	s.store.Save(proposal)

	s.logger.Debug("session plan generated",
		zap.String("proposal_id", proposal.ProposalID),
		zap.String("class_id", proposal.ClassID),
		zap.Int("normal", plan.Normal),
		zap.Int("skipped", plan.Skipped),
		zap.Int("extended", plan.Extended),
	)

	return &dto.PreviewSessionsResponse{
		ProposalID: proposal.ProposalID,
		ClassID:    proposal.ClassID,
		StartDate:  scheduling.FormatDate(start),
		EndDate:    scheduling.FormatDate(lastSessionDate(plan)),
		Sessions:   dto.SessionViews(plan.Sessions),
		Normal:     plan.Normal,
		Skipped:    plan.Skipped,
		Extended:   plan.Extended,
		Exhausted:  plan.Exhausted,
		ExpiresAt:  proposal.RequestedAt.Add(s.defaults.ProposalTTL),
	}, planning.Warnings, nil
}

// Save persists the NORMAL and EXTENDED sessions of a proposal and activates
// the class schedule in one transaction.
func (s *SessionPlanService) Save(ctx context.Context, req dto.SaveSessionsRequest) (*dto.SaveSessionsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save sessions payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}

	existing, err := s.sessions.ListByClass(ctx, proposal.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class sessions")
	}
	if len(existing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class already has sessions; use reschedule instead")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	records := sessionRecords(proposal.ClassID, proposal.InstructorID, proposal.Title, proposal.Plan.Persistable())
	update, err := scheduleUpdate(proposal.ClassID, proposal.StartDate, proposal.Plan, proposal.Pattern, proposal.TargetSessions)
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

	if err = s.sessions.BulkCreateWithTx(ctx, tx, records); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist class sessions")
		return nil, err
	}
	if err = s.classes.UpdateScheduleWithTx(ctx, tx, update); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class schedule")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit session transaction")
		return nil, err
	}

	s.store.Delete(req.ProposalID)
	enqueueInvalidation(s.jobs, s.logger, proposal.InstructorID)

	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return &dto.SaveSessionsResponse{
		ClassID:    proposal.ClassID,
		Created:    len(records),
		SessionIDs: ids,
		StartDate:  scheduling.FormatDate(update.StartDate),
		EndDate:    scheduling.FormatDate(update.EndDate),
	}, nil
}

// Export renders a stored proposal, SKIPPED rows included, as CSV or PDF.
func (s *SessionPlanService) Export(ctx context.Context, proposalID, rawFormat string) (*ExportResult, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	proposal, ok := s.store.Get(proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}

	body, err := export.Render(format, planDocument(proposal))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render session plan")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("session-plan-%s.%s", proposal.ClassID, format.Extension()),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// ExportResult is a rendered download.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

func planDocument(proposal sessionProposal) export.Document {
	plan := proposal.Plan
	headers := []string{"seq", "date", "weekday", "timeslot", "start", "end", "type"}
	rows := make([]map[string]string, 0, len(plan.Sessions))
	for _, session := range plan.Sessions {
		rows = append(rows, map[string]string{
			"seq":      strconv.Itoa(session.SequenceNumber),
			"date":     scheduling.FormatDate(session.Date),
			"weekday":  session.Weekday.String(),
			"timeslot": session.TimeslotID,
			"start":    session.StartTime,
			"end":      session.EndTime,
			"type":     string(session.Type),
		})
	}
	summary := []string{
		fmt.Sprintf("Class: %s (%s)", proposal.Title, proposal.ClassID),
		fmt.Sprintf("Start: %s  Last session: %s", scheduling.FormatDate(proposal.StartDate), scheduling.FormatDate(lastSessionDate(plan))),
		fmt.Sprintf("Normal: %d  Skipped: %d  Extended: %d", plan.Normal, plan.Skipped, plan.Extended),
	}
	if plan.Exhausted {
		summary = append(summary, "Not every skipped session could be compensated")
	}
	return export.Document{
		Title:     "Session plan",
		Summary:   summary,
		Data:      export.Dataset{Headers: headers, Rows: rows},
		Highlight: func(row map[string]string) bool { return row["type"] == string(scheduling.SessionSkipped) },
	}
}

// planHorizon bounds the busy snapshot: the primary window plus room for
// extension sessions.
func planHorizon(start, end time.Time) time.Time {
	if end.IsZero() {
		end = start.AddDate(0, 0, 7*scheduling.MaxSearchWeeks)
	}
	return end.AddDate(0, 0, 7*scheduling.ExtensionCeilingFactor)
}

func lastSessionDate(plan scheduling.SessionPlan) time.Time {
	var last time.Time
	for _, session := range plan.Sessions {
		if session.Persistable() && session.Date.After(last) {
			last = session.Date
		}
	}
	return last
}

func sessionRecords(classID, instructorID, title string, candidates []scheduling.SessionCandidate) []models.ClassSession {
	records := make([]models.ClassSession, 0, len(candidates))
	for i, candidate := range candidates {
		kind := models.SessionKindNormal
		if candidate.Type == scheduling.SessionExtended {
			kind = models.SessionKindExtended
		}
		records = append(records, models.ClassSession{
			ClassID:        classID,
			InstructorID:   instructorID,
			TimeslotID:     candidate.TimeslotID,
			SessionDate:    candidate.Date,
			SequenceNumber: i + 1,
			Kind:           kind,
			Title:          title,
		})
	}
	return records
}

func scheduleUpdate(classID string, start time.Time, plan scheduling.SessionPlan, pattern scheduling.WeeklyPattern, target int) (models.ClassScheduleUpdate, error) {
	encoded, err := models.EncodePattern(pattern)
	if err != nil {
		return models.ClassScheduleUpdate{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode weekly pattern")
	}
	return models.ClassScheduleUpdate{
		ID:              classID,
		Status:          models.ClassStatusActive,
		StartDate:       start,
		EndDate:         lastSessionDate(plan),
		TotalSessions:   target,
		SessionsPerWeek: pattern.WeeklyRate(),
		WeeklyPattern:   encoded,
		UpdatedAt:       time.Now().UTC(),
	}, nil
}

func enqueueInvalidation(queue jobEnqueuer, logger *zap.Logger, instructorID string) {
	if queue == nil {
		return
	}
	if err := queue.Enqueue(jobs.Job{Type: JobInvalidateBusy, Payload: instructorID}); err != nil {
		logger.Warn("failed to enqueue busy cache invalidation", zap.String("instructor_id", instructorID), zap.Error(err))
	}
}

// --- Proposal cache ---

type sessionProposal struct {
	ProposalID     string
	ClassID        string
	InstructorID   string
	Title          string
	StartDate      time.Time
	Pattern        scheduling.WeeklyPattern
	TargetSessions int
	Plan           scheduling.SessionPlan
	RequestedAt    time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]sessionProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]sessionProposal),
	}
}

func (s *proposalStore) Save(proposal sessionProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (sessionProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return sessionProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return sessionProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
