package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
	"github.com/avesta-labs/lms-content-api/pkg/response"
)

// AssignmentGraphService abstracts the assignment service for the handler.
type AssignmentGraphService interface {
	AssignCourse(ctx context.Context, scope models.Scope, actorID string, req dto.AssignCourseRequest) (*dto.AssignmentSelection, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error)
	ReadSelection(ctx context.Context, assignmentID string) (*dto.AssignmentSelection, error)
	ReplaceSelection(ctx context.Context, scope models.Scope, assignmentID string, req dto.ReplaceSelectionRequest) error
	RemoveAssignment(ctx context.Context, scope models.Scope, assignmentID string) error
	ToggleModuleUnlock(ctx context.Context, scope models.Scope, moduleOverrideID string, isUnlocked bool) error
	ToggleSessionUnlock(ctx context.Context, scope models.Scope, sessionOverrideID string, isUnlocked bool) error
}

// AssignmentHandler exposes the assignment graph: course-to-class bindings
// and their unlock selections.
type AssignmentHandler struct {
	assignments AssignmentGraphService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(assignments AssignmentGraphService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// Assign godoc
// @Summary Assign a course to a class
// @Tags Assignments
// @Accept json
// @Produce json
// @Param classId path string true "Class id"
// @Param payload body dto.AssignCourseRequest true "Assignment payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /classes/{classId}/assignments [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req dto.AssignCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.assignments.AssignCourse(c.Request.Context(), scopeFromContext(c), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param classId query string false "Filter by class"
// @Param courseId query string false "Filter by course"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	filter := models.AssignmentFilter{
		InstitutionID: claims.InstitutionID,
		ClassID:       c.Query("classId"),
		CourseID:      c.Query("courseId"),
		Page:          page,
		PageSize:      pageSize,
	}
	assignments, pagination, err := h.assignments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, pagination)
}

// GetSelection godoc
// @Summary Read back an assignment's persisted selection
// @Tags Assignments
// @Produce json
// @Param classId path string true "Class id"
// @Param assignmentId path string true "Assignment id"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/assignments/{assignmentId}/selection [get]
func (h *AssignmentHandler) GetSelection(c *gin.Context) {
	selection, err := h.assignments.ReadSelection(c.Request.Context(), c.Param("assignmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, selection, nil)
}

// ReplaceSelection godoc
// @Summary Replace an assignment's selection wholesale
// @Tags Assignments
// @Accept json
// @Produce json
// @Param classId path string true "Class id"
// @Param assignmentId path string true "Assignment id"
// @Param payload body dto.ReplaceSelectionRequest true "Selection payload"
// @Security BearerAuth
// @Success 204
// @Router /classes/{classId}/assignments/{assignmentId}/selection [put]
func (h *AssignmentHandler) ReplaceSelection(c *gin.Context) {
	var req dto.ReplaceSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.assignments.ReplaceSelection(c.Request.Context(), scopeFromContext(c), c.Param("assignmentId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remove godoc
// @Summary Remove an assignment and all its overrides
// @Tags Assignments
// @Produce json
// @Param classId path string true "Class id"
// @Param assignmentId path string true "Assignment id"
// @Security BearerAuth
// @Success 204
// @Router /classes/{classId}/assignments/{assignmentId} [delete]
func (h *AssignmentHandler) Remove(c *gin.Context) {
	if err := h.assignments.RemoveAssignment(c.Request.Context(), scopeFromContext(c), c.Param("assignmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ToggleModule godoc
// @Summary Toggle one module override's unlock flag
// @Tags Assignments
// @Accept json
// @Produce json
// @Param classId path string true "Class id"
// @Param overrideId path string true "Module override id"
// @Param payload body dto.ToggleUnlockRequest true "Unlock flag"
// @Security BearerAuth
// @Success 204
// @Router /classes/{classId}/module-overrides/{overrideId} [patch]
func (h *AssignmentHandler) ToggleModule(c *gin.Context) {
	var req dto.ToggleUnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.assignments.ToggleModuleUnlock(c.Request.Context(), scopeFromContext(c), c.Param("overrideId"), req.IsUnlocked); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ToggleSession godoc
// @Summary Toggle one session override's unlock flag
// @Tags Assignments
// @Accept json
// @Produce json
// @Param classId path string true "Class id"
// @Param overrideId path string true "Session override id"
// @Param payload body dto.ToggleUnlockRequest true "Unlock flag"
// @Security BearerAuth
// @Success 204
// @Router /classes/{classId}/session-overrides/{overrideId} [patch]
func (h *AssignmentHandler) ToggleSession(c *gin.Context) {
	var req dto.ToggleUnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.assignments.ToggleSessionUnlock(c.Request.Context(), scopeFromContext(c), c.Param("overrideId"), req.IsUnlocked); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
