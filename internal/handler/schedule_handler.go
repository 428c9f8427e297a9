package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutoria-app/tutoria-api/internal/service"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
	"github.com/tutoria-app/tutoria-api/pkg/response"
)

// ScheduleHandler exposes the one-off calendar event endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedule events in a date range
// @Tags Schedule
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end, inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{teacher_id}/schedule [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	events, err := h.service.ListByRange(c.Request.Context(), c.Param("teacher_id"), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Create godoc
// @Summary Create schedule event
// @Tags Schedule
// @Accept json
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Param payload body service.CreateScheduleEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{teacher_id}/schedule [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.service.Create(c.Request.Context(), c.Param("teacher_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Update schedule event
// @Tags Schedule
// @Accept json
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Param id path string true "Event ID"
// @Param payload body service.UpdateScheduleEventRequest true "Event payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{teacher_id}/schedule/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateScheduleEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.service.Update(c.Request.Context(), c.Param("teacher_id"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete godoc
// @Summary Delete schedule event
// @Tags Schedule
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Param id path string true "Event ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{teacher_id}/schedule/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("teacher_id"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export schedule as CSV or PDF
// @Tags Schedule
// @Produce octet-stream
// @Param teacher_id path string true "Teacher ID"
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end, inclusive (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /teachers/{teacher_id}/schedule/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	result, err := h.service.Export(
		c.Request.Context(),
		c.Param("teacher_id"),
		c.Query("start_date"),
		c.Query("end_date"),
		c.DefaultQuery("format", "csv"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
