package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-class-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-class-scheduler/pkg/errors"
	"github.com/noah-isme/sma-class-scheduler/pkg/jobs"
	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	parsed, err := scheduling.ParseDate(raw)
	require.NoError(t, err)
	return parsed
}

func dayPtr(t *testing.T, raw string) *time.Time {
	d := day(t, raw)
	return &d
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func fixtureTimeslots() []models.Timeslot {
	return []models.Timeslot{
		{ID: "slotA", Label: "Morning", StartTime: "08:00", EndTime: "09:30"},
		{ID: "slotB", Label: "Late morning", StartTime: "10:00", EndTime: "11:30"},
	}
}

func datedBusy(t *testing.T, raw, timeslotID string, status scheduling.BusyStatus) scheduling.BusyInterval {
	date := day(t, raw)
	source := scheduling.SourceInstructorTimeslot
	if status == scheduling.BusySession {
		source = scheduling.SourceSession
	}
	return scheduling.BusyInterval{Weekday: date.Weekday(), Date: &date, TimeslotID: timeslotID, Status: status, Source: source}
}

func recurringBusy(weekday time.Weekday, timeslotID string, status scheduling.BusyStatus) scheduling.BusyInterval {
	return scheduling.BusyInterval{Weekday: weekday, TimeslotID: timeslotID, Status: status, Source: scheduling.SourceInstructorTimeslot}
}

// --- repository stubs ---

type timeslotListStub struct {
	items []models.Timeslot
	err   error
}

func (s timeslotListStub) List(ctx context.Context) ([]models.Timeslot, error) {
	return s.items, s.err
}

type classRecordStub struct {
	items map[string]*models.Class
}

func (s classRecordStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := s.items[id]; ok {
		clone := *class
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

type instructorRecordStub struct {
	items map[string]*models.Instructor
}

func (s instructorRecordStub) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	if instructor, ok := s.items[id]; ok {
		return instructor, nil
	}
	return nil, sql.ErrNoRows
}

type busyProviderStub struct {
	snapshot BusySnapshot
	err      error
	calls    int
	lastFrom time.Time
	lastTo   time.Time
}

func (s *busyProviderStub) Snapshot(ctx context.Context, instructorID, excludeClassID string, from, to time.Time) (BusySnapshot, error) {
	s.calls++
	s.lastFrom, s.lastTo = from, to
	return s.snapshot, s.err
}

type timeslotRegistryStub struct {
	items []models.InstructorTimeslot
	err   error
	calls int
}

func (s *timeslotRegistryStub) ListForRange(ctx context.Context, instructorID string, from, to time.Time) ([]models.InstructorTimeslot, error) {
	s.calls++
	return s.items, s.err
}

type sessionStoreStub struct {
	mu           sync.Mutex
	byInstructor []models.ClassSession
	byClass      []models.ClassSession
	created      []models.ClassSession
	deleted      []string
	resequenced  []string
	createErr    error
}

func (s *sessionStoreStub) ListByInstructorRange(ctx context.Context, instructorID string, from, to time.Time) ([]models.ClassSession, error) {
	return s.byInstructor, nil
}

func (s *sessionStoreStub) ListByClass(ctx context.Context, classID string) ([]models.ClassSession, error) {
	return s.byClass, nil
}

func (s *sessionStoreStub) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sessions []models.ClassSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for i := range sessions {
		sessions[i].ID = "new-" + sessions[i].SessionDate.Format("0102") + "-" + sessions[i].TimeslotID
	}
	s.created = append(s.created, sessions...)
	return nil
}

func (s *sessionStoreStub) DeleteByIDsWithTx(ctx context.Context, tx *sqlx.Tx, classID string, ids []string) (int64, error) {
	s.deleted = append(s.deleted, ids...)
	return int64(len(ids)), nil
}

func (s *sessionStoreStub) ResequenceWithTx(ctx context.Context, tx *sqlx.Tx, classID string) error {
	s.resequenced = append(s.resequenced, classID)
	return nil
}

type classWriterStub struct {
	updates []models.ClassScheduleUpdate
	err     error
}

func (s *classWriterStub) UpdateScheduleWithTx(ctx context.Context, tx *sqlx.Tx, update models.ClassScheduleUpdate) error {
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, update)
	return nil
}

type enqueueStub struct {
	jobs []jobs.Job
}

func (s *enqueueStub) Enqueue(job jobs.Job) error {
	s.jobs = append(s.jobs, job)
	return nil
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	items   map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	raw, ok := m.items[key]
	m.mu.Unlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// --- availability fixture ---

type availabilityFixture struct {
	classes     map[string]*models.Class
	instructors map[string]*models.Instructor
	busy        *busyProviderStub
	metrics     *MetricsService
}

func newAvailabilityFixture() *availabilityFixture {
	return &availabilityFixture{
		classes: map[string]*models.Class{
			"class-1": {
				ID:            "class-1",
				Title:         "Algebra",
				InstructorID:  "inst-1",
				Status:        models.ClassStatusDraft,
				TotalSessions: 3,
			},
		},
		instructors: map[string]*models.Instructor{
			"inst-1": {ID: "inst-1", FullName: "Ana", EmploymentType: models.EmploymentFullTime, Active: true},
		},
		busy:    &busyProviderStub{},
		metrics: NewMetricsService(),
	}
}

func (f *availabilityFixture) service() *SlotAvailabilityService {
	return NewSlotAvailabilityService(
		timeslotListStub{items: fixtureTimeslots()},
		classRecordStub{items: f.classes},
		instructorRecordStub{items: f.instructors},
		f.busy,
		NewBlockedDayService(BlockedDayConfig{}),
		f.metrics,
		nil,
		nil,
		SlotAvailabilityConfig{LockThreshold: 1},
	)
}
