package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutoria-app/tutoria-api/internal/models"
	"github.com/tutoria-app/tutoria-api/internal/service"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
	"github.com/tutoria-app/tutoria-api/pkg/response"
)

// ProfessorHandler exposes the professor directory endpoints.
type ProfessorHandler struct {
	service *service.ProfessorService
	reviews *service.ReviewService
}

// NewProfessorHandler constructs a professor handler.
func NewProfessorHandler(svc *service.ProfessorService, reviews *service.ReviewService) *ProfessorHandler {
	return &ProfessorHandler{service: svc, reviews: reviews}
}

// List godoc
// @Summary List professors
// @Tags Professors
// @Produce json
// @Param search query string false "Search keyword"
// @Param subject_id query string false "Filter by subject"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professors [get]
func (h *ProfessorHandler) List(c *gin.Context) {
	var filter models.ProfessorFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.SubjectID = c.Query("subject_id")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	professors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professors, pagination)
}

// Get godoc
// @Summary Get professor profile
// @Tags Professors
// @Produce json
// @Param id path string true "Professor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /professors/{id} [get]
func (h *ProfessorHandler) Get(c *gin.Context) {
	professor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professor, nil)
}

// UpsertProfile godoc
// @Summary Create or update a professor profile
// @Tags Professors
// @Accept json
// @Produce json
// @Param id path string true "Professor ID"
// @Param payload body service.UpsertProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /professors/{id}/profile [put]
func (h *ProfessorHandler) UpsertProfile(c *gin.Context) {
	var req service.UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	professor, err := h.service.EnsureProfile(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professor, nil)
}

// AttachSubject godoc
// @Summary Attach a subject to a professor
// @Tags Professors
// @Produce json
// @Param id path string true "Professor ID"
// @Param subject_id path string true "Subject ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /professors/{id}/subjects/{subject_id} [put]
func (h *ProfessorHandler) AttachSubject(c *gin.Context) {
	if err := h.service.AttachSubject(c.Request.Context(), c.Param("id"), c.Param("subject_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DetachSubject godoc
// @Summary Detach a subject from a professor
// @Tags Professors
// @Produce json
// @Param id path string true "Professor ID"
// @Param subject_id path string true "Subject ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /professors/{id}/subjects/{subject_id} [delete]
func (h *ProfessorHandler) DetachSubject(c *gin.Context) {
	if err := h.service.DetachSubject(c.Request.Context(), c.Param("id"), c.Param("subject_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListReviews godoc
// @Summary List reviews for a professor
// @Tags Professors
// @Produce json
// @Param id path string true "Professor ID"
// @Success 200 {object} response.Envelope
// @Router /professors/{id}/reviews [get]
func (h *ProfessorHandler) ListReviews(c *gin.Context) {
	reviews, err := h.reviews.ListByProfessor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, nil)
}
