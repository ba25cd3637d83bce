package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/service"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
	"github.com/avesta-labs/lms-content-api/pkg/response"
)

// ExportHandler exposes unlock-audit export jobs.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Request godoc
// @Summary Request an unlock-audit export for one assignment
// @Tags Exports
// @Accept json
// @Produce json
// @Param classId path string true "Class id"
// @Param assignmentId path string true "Assignment id"
// @Param payload body dto.RequestExportRequest true "Export payload"
// @Security BearerAuth
// @Success 202 {object} response.Envelope
// @Router /classes/{classId}/assignments/{assignmentId}/exports [post]
func (h *ExportHandler) Request(c *gin.Context) {
	var req dto.RequestExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	job, err := h.exports.RequestExport(c.Request.Context(), scopeFromContext(c), c.Param("assignmentId"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// GetJob godoc
// @Summary Report export job status with a signed download token when done
// @Tags Exports
// @Produce json
// @Param jobId path string true "Export job id"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /exports/{jobId} [get]
func (h *ExportHandler) GetJob(c *gin.Context) {
	result, err := h.exports.GetJob(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a finished export via its signed token
// @Tags Exports
// @Produce octet-stream
// @Param jobId path string true "Export job id"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/{jobId}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter required"))
		return
	}
	file, job, err := h.exports.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	filename := filepath.Base(job.FilePath)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.File(file.Name())
}
