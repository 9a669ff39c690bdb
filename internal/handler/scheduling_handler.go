package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-class-scheduler/internal/dto"
	"github.com/noah-isme/sma-class-scheduler/internal/middleware"
	"github.com/noah-isme/sma-class-scheduler/internal/models"
	"github.com/noah-isme/sma-class-scheduler/internal/service"
	appErrors "github.com/noah-isme/sma-class-scheduler/pkg/errors"
	"github.com/noah-isme/sma-class-scheduler/pkg/response"
)

type slotAvailability interface {
	Catalog(ctx context.Context) ([]models.Timeslot, error)
	SlotStatus(ctx context.Context, req dto.SlotStatusRequest) (*dto.SlotStatusResponse, []string, error)
	EstimateEndDate(ctx context.Context, req dto.EndDateRequest) (*dto.EndDateResponse, error)
}

type sessionPlanner interface {
	Preview(ctx context.Context, req dto.PreviewSessionsRequest) (*dto.PreviewSessionsResponse, []string, error)
	Save(ctx context.Context, req dto.SaveSessionsRequest) (*dto.SaveSessionsResponse, error)
	Export(ctx context.Context, proposalID, format string) (*service.ExportResult, error)
}

type alternativeSearcher interface {
	Search(ctx context.Context, req dto.AlternativesRequest) (*dto.AlternativesResponse, []string, error)
}

type rescheduler interface {
	Impact(ctx context.Context, req dto.RescheduleRequest) (*dto.ImpactResponse, []string, error)
	Apply(ctx context.Context, req dto.RescheduleRequest) (*dto.ApplyResponse, error)
}

// SchedulingHandler exposes the class session scheduling endpoints.
type SchedulingHandler struct {
	availability slotAvailability
	planner      sessionPlanner
	alternatives alternativeSearcher
	reschedule   rescheduler
}

// NewSchedulingHandler constructs the handler.
func NewSchedulingHandler(
	availability *service.SlotAvailabilityService,
	planner *service.SessionPlanService,
	alternatives *service.AlternativeStartService,
	reschedule *service.RescheduleService,
) *SchedulingHandler {
	return &SchedulingHandler{
		availability: availability,
		planner:      planner,
		alternatives: alternatives,
		reschedule:   reschedule,
	}
}

// Timeslots godoc
// @Summary List the timeslot catalog
// @Tags Scheduling
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timeslots [get]
func (h *SchedulingHandler) Timeslots(c *gin.Context) {
	items, err := h.availability.Catalog(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// SlotStatus godoc
// @Summary Resolve availability for every weekday/timeslot pair of a pattern
// @Description Warnings appear in meta when instructor data could not be loaded.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.SlotStatusRequest true "Slot status payload"
// @Success 200 {object} response.Envelope
// @Router /scheduling/slot-status [post]
func (h *SchedulingHandler) SlotStatus(c *gin.Context) {
	var req dto.SlotStatusRequest
	if !bindJSON(c, &req, "invalid slot status payload") {
		return
	}
	result, warnings, err := h.availability.SlotStatus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, result.CacheHit)
	middleware.AddWarnings(c, warnings...)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// EndDate godoc
// @Summary Estimate the end date of a course
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.EndDateRequest true "End date payload"
// @Success 200 {object} response.Envelope
// @Router /scheduling/end-date [post]
func (h *SchedulingHandler) EndDate(c *gin.Context) {
	var req dto.EndDateRequest
	if !bindJSON(c, &req, "invalid end date payload") {
		return
	}
	result, err := h.availability.EstimateEndDate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// PreviewSessions godoc
// @Summary Generate a session plan proposal
// @Description SKIPPED sessions are listed for review but never stored.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.PreviewSessionsRequest true "Preview payload"
// @Success 200 {object} response.Envelope
// @Router /scheduling/sessions/preview [post]
func (h *SchedulingHandler) PreviewSessions(c *gin.Context) {
	var req dto.PreviewSessionsRequest
	if !bindJSON(c, &req, "invalid session preview payload") {
		return
	}
	result, warnings, err := h.planner.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.AddWarnings(c, warnings...)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// SaveSessions godoc
// @Summary Persist a session plan proposal
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.SaveSessionsRequest true "Save payload"
// @Success 201 {object} response.Envelope
// @Router /scheduling/sessions/save [post]
func (h *SchedulingHandler) SaveSessions(c *gin.Context) {
	var req dto.SaveSessionsRequest
	if !bindJSON(c, &req, "invalid save sessions payload") {
		return
	}
	result, err := h.planner.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ExportSessions godoc
// @Summary Download a session plan proposal
// @Tags Scheduling
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Proposal ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /scheduling/sessions/preview/{id}/export [get]
func (h *SchedulingHandler) ExportSessions(c *gin.Context) {
	result, err := h.planner.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// Alternatives godoc
// @Summary Suggest start dates where the whole pattern is free
// @Description A newer search for the same instructor and class supersedes this one (409 STALE_SEARCH).
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.AlternativesRequest true "Alternatives payload"
// @Success 200 {object} response.Envelope
// @Router /scheduling/alternatives [post]
func (h *SchedulingHandler) Alternatives(c *gin.Context) {
	var req dto.AlternativesRequest
	if !bindJSON(c, &req, "invalid alternatives payload") {
		return
	}
	result, warnings, err := h.alternatives.Search(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.AddWarnings(c, warnings...)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// RescheduleImpact godoc
// @Summary Preview the sessions a reschedule would drop and add
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.RescheduleRequest true "Reschedule payload"
// @Success 200 {object} response.Envelope
// @Router /scheduling/reschedule/impact [post]
func (h *SchedulingHandler) RescheduleImpact(c *gin.Context) {
	var req dto.RescheduleRequest
	if !bindJSON(c, &req, "invalid reschedule payload") {
		return
	}
	result, warnings, err := h.reschedule.Impact(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.AddWarnings(c, warnings...)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// RescheduleApply godoc
// @Summary Apply a reschedule to the stored sessions
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.RescheduleRequest true "Reschedule payload"
// @Success 200 {object} response.Envelope
// @Router /scheduling/reschedule/apply [post]
func (h *SchedulingHandler) RescheduleApply(c *gin.Context) {
	var req dto.RescheduleRequest
	if !bindJSON(c, &req, "invalid reschedule payload") {
		return
	}
	result, err := h.reschedule.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
