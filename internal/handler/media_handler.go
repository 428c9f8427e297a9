package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutoria-app/tutoria-api/internal/service"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
	"github.com/tutoria-app/tutoria-api/pkg/response"
)

// MediaHandler exposes teaching asset upload and download endpoints.
type MediaHandler struct {
	service *service.MediaService
}

// NewMediaHandler constructs a media handler.
func NewMediaHandler(svc *service.MediaService) *MediaHandler {
	return &MediaHandler{service: svc}
}

// Upload godoc
// @Summary Upload a teaching asset
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Param file formData file true "File content"
// @Param description formData string false "Description"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{teacher_id}/media [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close()

	req := service.UploadMediaRequest{
		OriginalFilename: fileHeader.Filename,
		MimeType:         fileHeader.Header.Get("Content-Type"),
		Size:             fileHeader.Size,
		Description:      c.PostForm("description"),
	}
	file, err := h.service.Upload(c.Request.Context(), c.Param("teacher_id"), req, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// List godoc
// @Summary List a teacher's uploaded assets
// @Tags Media
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacher_id}/media [get]
func (h *MediaHandler) List(c *gin.Context) {
	files, err := h.service.List(c.Request.Context(), c.Param("teacher_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil)
}

// SignedURL godoc
// @Summary Issue a time-limited download link
// @Tags Media
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /media/{id}/signed-url [get]
func (h *MediaHandler) SignedURL(c *gin.Context) {
	signed, err := h.service.SignedURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, signed, nil)
}

// Download godoc
// @Summary Download a file via a signed token
// @Tags Media
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /media/download [get]
func (h *MediaHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, handle, err := h.service.Resolve(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer handle.Close()

	c.Header("Content-Disposition", "attachment; filename=\""+file.OriginalFilename+"\"")
	c.DataFromReader(http.StatusOK, file.FileSize, file.MimeType, handle, nil)
}

// Delete godoc
// @Summary Delete a teaching asset
// @Tags Media
// @Produce json
// @Param teacher_id path string true "Teacher ID"
// @Param id path string true "File ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{teacher_id}/media/{id} [delete]
func (h *MediaHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("teacher_id"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
