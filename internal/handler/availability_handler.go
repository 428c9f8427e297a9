package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tutoria-app/tutoria-api/internal/service"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
	"github.com/tutoria-app/tutoria-api/pkg/response"
)

// AvailabilityHandler exposes the weekly availability endpoints plus the
// derived available-slot listing.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
	slots        *service.SlotService
}

// NewAvailabilityHandler constructs an availability handler.
func NewAvailabilityHandler(availability *service.AvailabilityService, slots *service.SlotService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, slots: slots}
}

// List godoc
// @Summary List availability windows
// @Tags Availability
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacher_id}/availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	windows, err := h.availability.List(c.Request.Context(), c.Param("teacher_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Create godoc
// @Summary Create availability window
// @Tags Availability
// @Accept json
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Param payload body service.CreateAvailabilityRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{teacher_id}/availability [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req service.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.availability.Create(c.Request.Context(), c.Param("teacher_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// Update godoc
// @Summary Update availability window
// @Tags Availability
// @Accept json
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Param id path string true "Window ID"
// @Param payload body service.UpdateAvailabilityRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{teacher_id}/availability/{id} [put]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	var req service.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.availability.Update(c.Request.Context(), c.Param("teacher_id"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// Delete godoc
// @Summary Delete availability window
// @Tags Availability
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Param id path string true "Window ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{teacher_id}/availability/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	if err := h.availability.Delete(c.Request.Context(), c.Param("teacher_id"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AvailableSlots godoc
// @Summary List bookable slots
// @Description Derives concrete bookable slots from the weekly availability minus blocking events
// @Tags Availability
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end, exclusive (YYYY-MM-DD)"
// @Param duration query int false "Slot duration in minutes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{teacher_id}/available-slots [get]
func (h *AvailabilityHandler) AvailableSlots(c *gin.Context) {
	duration := 0
	if raw := c.Query("duration"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "duration must be a positive integer"))
			return
		}
		duration = parsed
	}

	slots, err := h.slots.AvailableSlots(
		c.Request.Context(),
		c.Param("teacher_id"),
		c.Query("start_date"),
		c.Query("end_date"),
		duration,
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
