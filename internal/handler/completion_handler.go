package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
	"github.com/avesta-labs/lms-content-api/pkg/response"
)

// ProgressRecorder abstracts the completion service for the handler.
type ProgressRecorder interface {
	RecordProgress(ctx context.Context, actorID, studentID string, req dto.RecordProgressRequest) (*models.Completion, error)
}

// CompletionHandler exposes watch-progress recording.
type CompletionHandler struct {
	completions ProgressRecorder
}

// NewCompletionHandler constructs handler.
func NewCompletionHandler(completions ProgressRecorder) *CompletionHandler {
	return &CompletionHandler{completions: completions}
}

// RecordProgress godoc
// @Summary Record a student's watch progress for one content item
// @Tags Progress
// @Accept json
// @Produce json
// @Param studentId path string true "Student id"
// @Param payload body dto.RecordProgressRequest true "Progress payload"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/progress [post]
func (h *CompletionHandler) RecordProgress(c *gin.Context) {
	var req dto.RecordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	completion, err := h.completions.RecordProgress(c.Request.Context(), claims.UserID, c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, completion, nil)
}
