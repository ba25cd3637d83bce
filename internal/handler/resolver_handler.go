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

// UnlockResolverService abstracts the resolver service for the handler.
type UnlockResolverService interface {
	ResolveForStudent(ctx context.Context, scope models.Scope, assignmentID, studentID string) (*dto.ResolvedCourseView, error)
	ResolveForManagement(ctx context.Context, scope models.Scope, assignmentID string) (*dto.ResolvedCourseView, error)
	ResolveClassCourses(ctx context.Context, scope models.Scope, studentID string) (*dto.ClassCoursesView, error)
}

// ResolverHandler exposes resolved unlock views. Students always resolve as
// themselves; staff may resolve on behalf of a student via query parameter.
type ResolverHandler struct {
	resolver UnlockResolverService
}

// NewResolverHandler constructs handler.
func NewResolverHandler(resolver UnlockResolverService) *ResolverHandler {
	return &ResolverHandler{resolver: resolver}
}

// StudentView godoc
// @Summary Resolve the student-visible content of one assignment
// @Tags Resolver
// @Produce json
// @Param classId path string true "Class id"
// @Param assignmentId path string true "Assignment id"
// @Param studentId query string false "Student to join completions for (staff only)"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/assignments/{assignmentId}/view [get]
func (h *ResolverHandler) StudentView(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	studentID := c.Query("studentId")
	if claims.Role == models.RoleStudent {
		studentID = claims.UserID
	}
	view, err := h.resolver.ResolveForStudent(c.Request.Context(), scopeFromContext(c), c.Param("assignmentId"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ManagementView godoc
// @Summary Resolve the full audit view of one assignment
// @Tags Resolver
// @Produce json
// @Param classId path string true "Class id"
// @Param assignmentId path string true "Assignment id"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/assignments/{assignmentId}/management-view [get]
func (h *ResolverHandler) ManagementView(c *gin.Context) {
	view, err := h.resolver.ResolveForManagement(c.Request.Context(), scopeFromContext(c), c.Param("assignmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ClassCourses godoc
// @Summary Resolve every course assigned to a class
// @Tags Resolver
// @Produce json
// @Param classId path string true "Class id"
// @Param studentId query string false "Student to join completions for (staff only)"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/courses [get]
func (h *ResolverHandler) ClassCourses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	studentID := c.Query("studentId")
	if claims.Role == models.RoleStudent {
		studentID = claims.UserID
	}
	view, err := h.resolver.ResolveClassCourses(c.Request.Context(), scopeFromContext(c), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
