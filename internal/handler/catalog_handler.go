package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
	"github.com/avesta-labs/lms-content-api/pkg/response"
)

// CatalogIndexService abstracts the catalog service for the handler.
type CatalogIndexService interface {
	LoadCourseTree(ctx context.Context, statuses []models.CourseStatus) ([]models.Course, error)
	GetCourseTree(ctx context.Context, courseID string) (*models.Course, error)
	CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error)
	UpdateCourse(ctx context.Context, id string, req dto.UpdateCourseRequest) error
	AddModule(ctx context.Context, courseID string, req dto.CreateModuleRequest) (*models.Module, error)
	AddSession(ctx context.Context, moduleID string, req dto.CreateSessionRequest) (*models.Session, error)
	AddContentItem(ctx context.Context, sessionID string, req dto.CreateContentItemRequest) (*models.ContentItem, error)
}

// CatalogHandler exposes the course catalog tree and catalog administration.
type CatalogHandler struct {
	catalog CatalogIndexService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog CatalogIndexService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Tree godoc
// @Summary List courses with their full module/session/content tree
// @Tags Catalog
// @Produce json
// @Param status query string false "Comma separated status filter (draft,active,published,archived)"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /catalog/courses [get]
func (h *CatalogHandler) Tree(c *gin.Context) {
	var statuses []models.CourseStatus
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				statuses = append(statuses, models.CourseStatus(trimmed))
			}
		}
	}
	courses, err := h.catalog.LoadCourseTree(c.Request.Context(), statuses)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// GetCourse godoc
// @Summary Get one course with its full subtree
// @Tags Catalog
// @Produce json
// @Param courseId path string true "Course id"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /catalog/courses/{courseId} [get]
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	course, err := h.catalog.GetCourseTree(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// CreateCourse godoc
// @Summary Create a catalog course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /catalog/courses [post]
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.catalog.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// UpdateCourse godoc
// @Summary Update course title, code or status
// @Tags Catalog
// @Accept json
// @Produce json
// @Param courseId path string true "Course id"
// @Param payload body dto.UpdateCourseRequest true "Course payload"
// @Security BearerAuth
// @Success 204
// @Router /catalog/courses/{courseId} [patch]
func (h *CatalogHandler) UpdateCourse(c *gin.Context) {
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.catalog.UpdateCourse(c.Request.Context(), c.Param("courseId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddModule godoc
// @Summary Add a module to a course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param courseId path string true "Course id"
// @Param payload body dto.CreateModuleRequest true "Module payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /catalog/courses/{courseId}/modules [post]
func (h *CatalogHandler) AddModule(c *gin.Context) {
	var req dto.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	module, err := h.catalog.AddModule(c.Request.Context(), c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module)
}

// AddSession godoc
// @Summary Add a session to a module
// @Tags Catalog
// @Accept json
// @Produce json
// @Param moduleId path string true "Module id"
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /catalog/modules/{moduleId}/sessions [post]
func (h *CatalogHandler) AddSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.catalog.AddSession(c.Request.Context(), c.Param("moduleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// AddContentItem godoc
// @Summary Add a content item to a session
// @Tags Catalog
// @Accept json
// @Produce json
// @Param sessionId path string true "Session id"
// @Param payload body dto.CreateContentItemRequest true "Content payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /catalog/sessions/{sessionId}/content [post]
func (h *CatalogHandler) AddContentItem(c *gin.Context) {
	var req dto.CreateContentItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.catalog.AddContentItem(c.Request.Context(), c.Param("sessionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}
