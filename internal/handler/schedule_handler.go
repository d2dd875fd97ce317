package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/membership-api/internal/dto"
	"github.com/noah-isme/membership-api/internal/models"
	"github.com/noah-isme/membership-api/internal/service"
	"github.com/noah-isme/membership-api/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context) ([]models.Schedule, error)
	ListWithStudents(ctx context.Context) ([]models.ScheduleWithStudents, error)
	Create(ctx context.Context, req service.CreateScheduleRequest) (*models.Schedule, error)
	Update(ctx context.Context, rawID string, req service.UpdateScheduleRequest) (*models.Schedule, error)
	Delete(ctx context.Context, rawID string) (*models.Schedule, error)
}

// ScheduleHandler exposes shift endpoints.
type ScheduleHandler struct {
	schedules scheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules scheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// List godoc
// @Summary List shifts
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ScheduleListResponse{Schedules: schedules}, nil)
}

// WithStudents godoc
// @Summary List shifts with their assigned students
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/with-students [get]
func (h *ScheduleHandler) WithStudents(c *gin.Context) {
	schedules, err := h.schedules.ListWithStudents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ScheduleRosterResponse{Schedules: schedules}, nil)
}

// Create godoc
// @Summary Create shift
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequest true "Shift payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, ""))
		return
	}
	schedule, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Update shift
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Shift ID"
// @Param payload body service.UpdateScheduleRequest true "Shift payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, ""))
		return
	}
	schedule, err := h.schedules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete shift; assigned students are detached
// @Tags Schedules
// @Produce json
// @Param id path string true "Shift ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	schedule, err := h.schedules.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ScheduleMutationResponse{Message: service.MsgScheduleDeleted, Schedule: *schedule}, nil)
}
