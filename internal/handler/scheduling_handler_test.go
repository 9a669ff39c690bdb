package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-class-scheduler/internal/dto"
	"github.com/noah-isme/sma-class-scheduler/internal/middleware"
	"github.com/noah-isme/sma-class-scheduler/internal/models"
	"github.com/noah-isme/sma-class-scheduler/internal/service"
	appErrors "github.com/noah-isme/sma-class-scheduler/pkg/errors"
)

type availabilityMock struct {
	captured dto.SlotStatusRequest
	warnings []string
	err      error
}

func (m *availabilityMock) Catalog(ctx context.Context) ([]models.Timeslot, error) {
	return []models.Timeslot{{ID: "slotA", StartTime: "08:00", EndTime: "09:30"}}, nil
}

func (m *availabilityMock) SlotStatus(ctx context.Context, req dto.SlotStatusRequest) (*dto.SlotStatusResponse, []string, error) {
	m.captured = req
	if m.err != nil {
		return nil, nil, m.err
	}
	return &dto.SlotStatusResponse{StartDate: req.StartDate, AllAvailable: true, AvailableCount: 1, CacheHit: true}, m.warnings, nil
}

func (m *availabilityMock) EstimateEndDate(ctx context.Context, req dto.EndDateRequest) (*dto.EndDateResponse, error) {
	return &dto.EndDateResponse{StartDate: req.StartDate, EndDate: "2025-01-21", TotalSessions: req.TotalSessions, Estimated: true}, nil
}

type plannerMock struct {
	saved string
}

func (m *plannerMock) Preview(ctx context.Context, req dto.PreviewSessionsRequest) (*dto.PreviewSessionsResponse, []string, error) {
	return &dto.PreviewSessionsResponse{ProposalID: "proposal-1", ClassID: req.ClassID}, nil, nil
}

func (m *plannerMock) Save(ctx context.Context, req dto.SaveSessionsRequest) (*dto.SaveSessionsResponse, error) {
	m.saved = req.ProposalID
	return &dto.SaveSessionsResponse{ClassID: "class-1", Created: 3}, nil
}

func (m *plannerMock) Export(ctx context.Context, proposalID, format string) (*service.ExportResult, error) {
	if proposalID != "proposal-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return &service.ExportResult{Filename: "session-plan-class-1.csv", ContentType: "text/csv", Body: []byte("seq,date\n")}, nil
}

type searcherMock struct{}

func (searcherMock) Search(ctx context.Context, req dto.AlternativesRequest) (*dto.AlternativesResponse, []string, error) {
	return nil, nil, appErrors.Clone(appErrors.ErrStaleSearch, "")
}

type reschedulerMock struct{}

func (reschedulerMock) Impact(ctx context.Context, req dto.RescheduleRequest) (*dto.ImpactResponse, []string, error) {
	return &dto.ImpactResponse{ClassID: req.ClassID, Unchanged: true}, nil, nil
}

func (reschedulerMock) Apply(ctx context.Context, req dto.RescheduleRequest) (*dto.ApplyResponse, error) {
	return &dto.ApplyResponse{ClassID: req.ClassID}, nil
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newSchedulingRouter(h *SchedulingHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.WithResponseMeta())
	router.GET("/timeslots", h.Timeslots)
	router.POST("/scheduling/slot-status", h.SlotStatus)
	router.POST("/scheduling/end-date", h.EndDate)
	router.POST("/scheduling/sessions/preview", h.PreviewSessions)
	router.POST("/scheduling/sessions/save", h.SaveSessions)
	router.GET("/scheduling/sessions/preview/:id/export", h.ExportSessions)
	router.POST("/scheduling/alternatives", h.Alternatives)
	router.POST("/scheduling/reschedule/impact", h.RescheduleImpact)
	router.POST("/scheduling/reschedule/apply", h.RescheduleApply)
	return router
}

func newTestSchedulingHandler(availability *availabilityMock, planner *plannerMock) *SchedulingHandler {
	return &SchedulingHandler{
		availability: availability,
		planner:      planner,
		alternatives: searcherMock{},
		reschedule:   reschedulerMock{},
	}
}

func perform(router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestSchedulingHandlerSlotStatusCarriesWarnings(t *testing.T) {
	availability := &availabilityMock{warnings: []string{"instructor schedule unavailable"}}
	router := newSchedulingRouter(newTestSchedulingHandler(availability, &plannerMock{}))

	w, env := perform(router, http.MethodPost, "/scheduling/slot-status",
		`{"instructorId":"inst-1","startDate":"2025-01-06","pattern":[{"weekday":1,"timeslotIds":["slotA"]}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inst-1", availability.captured.InstructorID)
	assert.Equal(t, []dto.PatternDay{{Weekday: 1, TimeslotIDs: []string{"slotA"}}}, availability.captured.Pattern)
	assert.Equal(t, []interface{}{"instructor schedule unavailable"}, env.Meta["warnings"])
	assert.Equal(t, true, env.Meta["busy_cache_hit"])

	var result dto.SlotStatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.AllAvailable)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestSchedulingHandlerRejectsMalformedJSON(t *testing.T) {
	router := newSchedulingRouter(newTestSchedulingHandler(&availabilityMock{}, &plannerMock{}))

	w, env := perform(router, http.MethodPost, "/scheduling/slot-status", `{"instructorId":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestSchedulingHandlerMapsServiceErrors(t *testing.T) {
	availability := &availabilityMock{err: appErrors.Clone(appErrors.ErrNotFound, "instructor not found")}
	router := newSchedulingRouter(newTestSchedulingHandler(availability, &plannerMock{}))

	w, env := perform(router, http.MethodPost, "/scheduling/slot-status", `{"instructorId":"missing"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "instructor not found", env.Error.Message)

	w, env = perform(router, http.MethodPost, "/scheduling/alternatives", `{"instructorId":"inst-1"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrStaleSearch.Code, env.Error.Code)

	availability.err = errors.New("boom")
	w, _ = perform(router, http.MethodPost, "/scheduling/slot-status", `{"instructorId":"inst-1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSchedulingHandlerSessionsLifecycle(t *testing.T) {
	planner := &plannerMock{}
	router := newSchedulingRouter(newTestSchedulingHandler(&availabilityMock{}, planner))

	w, env := perform(router, http.MethodPost, "/scheduling/sessions/preview", `{"classId":"class-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var preview dto.PreviewSessionsResponse
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, "proposal-1", preview.ProposalID)
	assert.Nil(t, env.Meta["warnings"])

	w, _ = perform(router, http.MethodPost, "/scheduling/sessions/save", `{"proposalId":"proposal-1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "proposal-1", planner.saved)

	req := httptest.NewRequest(http.MethodGet, "/scheduling/sessions/preview/proposal-1/export?format=csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "session-plan-class-1.csv")
	assert.Equal(t, "seq,date\n", rec.Body.String())

	w, _ = perform(router, http.MethodGet, "/scheduling/sessions/preview/unknown/export", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchedulingHandlerCatalogAndEstimates(t *testing.T) {
	router := newSchedulingRouter(newTestSchedulingHandler(&availabilityMock{}, &plannerMock{}))

	w, env := perform(router, http.MethodGet, "/timeslots", "")
	require.Equal(t, http.StatusOK, w.Code)
	var slots []models.Timeslot
	require.NoError(t, json.Unmarshal(env.Data, &slots))
	assert.Len(t, slots, 1)

	w, env = perform(router, http.MethodPost, "/scheduling/end-date", `{"startDate":"2025-01-06","totalSessions":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	var estimate dto.EndDateResponse
	require.NoError(t, json.Unmarshal(env.Data, &estimate))
	assert.Equal(t, "2025-01-21", estimate.EndDate)

	w, env = perform(router, http.MethodPost, "/scheduling/reschedule/impact", `{"classId":"class-1","startDate":"2025-01-13"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var impact dto.ImpactResponse
	require.NoError(t, json.Unmarshal(env.Data, &impact))
	assert.True(t, impact.Unchanged)

	w, _ = perform(router, http.MethodPost, "/scheduling/reschedule/apply", `{"classId":"class-1","startDate":"2025-01-13"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewMetricsHandler(service.NewMetricsService(), map[string]DependencyCheck{
		"database": func(context.Context) error { return nil },
	})
	degraded := NewMetricsHandler(nil, map[string]DependencyCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	router := gin.New()
	router.GET("/ready", healthy.Ready)
	router.GET("/degraded", degraded.Ready)
	router.GET("/metrics", healthy.Prometheus)
	router.GET("/metrics-off", degraded.Prometheus)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"database":"ok"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/degraded", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"database":"ok","redis":"connection refused"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-off", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
