package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
)

type catalogRepository interface {
	ListCourses(ctx context.Context, statuses []models.CourseStatus) ([]models.Course, error)
	FindCourse(ctx context.Context, id string) (*models.Course, error)
	ListModulesByCourseIDs(ctx context.Context, courseIDs []string) ([]models.Module, error)
	ListSessionsByModuleIDs(ctx context.Context, moduleIDs []string) ([]models.Session, error)
	ListContentBySessionIDs(ctx context.Context, sessionIDs []string) ([]models.ContentItem, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, id, title, code string, status models.CourseStatus) error
	SiblingOrderTaken(ctx context.Context, table, parentColumn, parentID string, displayOrder int) (bool, error)
	CreateModule(ctx context.Context, module *models.Module) error
	CreateSession(ctx context.Context, session *models.Session) error
	CreateContentItem(ctx context.Context, item *models.ContentItem) error
	FindModule(ctx context.Context, id string) (*models.Module, error)
	FindSession(ctx context.Context, id string) (*models.Session, error)
}

const catalogCachePrefix = "catalog:tree:"

// CatalogService is the catalog index: it loads and caches the read-mostly
// course tree and owns catalog administration.
type CatalogService struct {
	repo      catalogRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo catalogRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// LoadCourseTree returns courses matching the status filter, each hydrated
// with its ordered modules, sessions and content.
func (s *CatalogService) LoadCourseTree(ctx context.Context, statuses []models.CourseStatus) ([]models.Course, error) {
	cacheKey := treeCacheKey(statuses)
	var cached []models.Course
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	courses, err := s.repo.ListCourses(ctx, statuses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if len(courses) == 0 {
		return courses, nil
	}

	courseIDs := make([]string, len(courses))
	for i, course := range courses {
		courseIDs[i] = course.ID
	}

	hydrated, err := s.hydrate(ctx, courses, courseIDs)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, cacheKey, hydrated)
	return hydrated, nil
}

// GetCourseTree returns one course hydrated with its full subtree.
func (s *CatalogService) GetCourseTree(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.repo.FindCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	hydrated, err := s.hydrate(ctx, []models.Course{*course}, []string{course.ID})
	if err != nil {
		return nil, err
	}
	return &hydrated[0], nil
}

// hydrate attaches ordered modules, sessions and content to the courses.
// Every batched fetch failing partway fails the whole load; a partially
// hydrated tree must never be rendered as if it were complete.
func (s *CatalogService) hydrate(ctx context.Context, courses []models.Course, courseIDs []string) ([]models.Course, error) {
	modules, err := s.repo.ListModulesByCourseIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBatchFetchFailed.Code, appErrors.ErrBatchFetchFailed.Status, "module fetch failed")
	}

	moduleIDs := make([]string, len(modules))
	for i, module := range modules {
		moduleIDs[i] = module.ID
	}
	sessions, err := s.repo.ListSessionsByModuleIDs(ctx, moduleIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBatchFetchFailed.Code, appErrors.ErrBatchFetchFailed.Status, "session fetch failed")
	}

	sessionIDs := make([]string, len(sessions))
	for i, session := range sessions {
		sessionIDs[i] = session.ID
	}
	content, err := s.repo.ListContentBySessionIDs(ctx, sessionIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBatchFetchFailed.Code, appErrors.ErrBatchFetchFailed.Status, "content fetch failed")
	}

	contentBySession := make(map[string][]models.ContentItem, len(sessions))
	for _, item := range content {
		contentBySession[item.SessionID] = append(contentBySession[item.SessionID], item)
	}
	sessionsByModule := make(map[string][]models.Session, len(modules))
	for _, session := range sessions {
		session.Content = contentBySession[session.ID]
		sessionsByModule[session.ModuleID] = append(sessionsByModule[session.ModuleID], session)
	}
	modulesByCourse := make(map[string][]models.Module, len(courses))
	for _, module := range modules {
		module.Sessions = sessionsByModule[module.ID]
		modulesByCourse[module.CourseID] = append(modulesByCourse[module.CourseID], module)
	}

	result := make([]models.Course, len(courses))
	for i, course := range courses {
		course.Modules = modulesByCourse[course.ID]
		result[i] = course
	}
	return result, nil
}

// CreateCourse adds a catalog course.
func (s *CatalogService) CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{Title: req.Title, Code: req.Code, Status: req.Status}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateTreeCache(ctx)
	return course, nil
}

// UpdateCourse updates a course's mutable attributes.
func (s *CatalogService) UpdateCourse(ctx context.Context, id string, req dto.UpdateCourseRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := s.repo.UpdateCourse(ctx, id, req.Title, req.Code, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateTreeCache(ctx)
	return nil
}

// AddModule appends a module to a course, enforcing sibling order uniqueness.
func (s *CatalogService) AddModule(ctx context.Context, courseID string, req dto.CreateModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload")
	}
	if _, err := s.repo.FindCourse(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	taken, err := s.repo.SiblingOrderTaken(ctx, "course_modules", "course_id", courseID, req.DisplayOrder)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check display order")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "display_order already used within course")
	}
	module := &models.Module{CourseID: courseID, Title: req.Title, DisplayOrder: req.DisplayOrder}
	if err := s.repo.CreateModule(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create module")
	}
	s.invalidateTreeCache(ctx)
	return module, nil
}

// AddSession appends a session to a module, enforcing sibling order uniqueness.
func (s *CatalogService) AddSession(ctx context.Context, moduleID string, req dto.CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if _, err := s.repo.FindModule(ctx, moduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	taken, err := s.repo.SiblingOrderTaken(ctx, "course_sessions", "module_id", moduleID, req.DisplayOrder)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check display order")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "display_order already used within module")
	}
	session := &models.Session{ModuleID: moduleID, Title: req.Title, DisplayOrder: req.DisplayOrder}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.invalidateTreeCache(ctx)
	return session, nil
}

// AddContentItem appends a content leaf to a session.
func (s *CatalogService) AddContentItem(ctx context.Context, sessionID string, req dto.CreateContentItemRequest) (*models.ContentItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}
	if _, err := s.repo.FindSession(ctx, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	taken, err := s.repo.SiblingOrderTaken(ctx, "session_content", "session_id", sessionID, req.DisplayOrder)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check display order")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "display_order already used within session")
	}
	item := &models.ContentItem{
		SessionID:    sessionID,
		Title:        req.Title,
		ContentType:  req.ContentType,
		ContentRef:   req.ContentRef,
		DisplayOrder: req.DisplayOrder,
	}
	if err := s.repo.CreateContentItem(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create content item")
	}
	s.invalidateTreeCache(ctx)
	return item, nil
}

func (s *CatalogService) invalidateTreeCache(ctx context.Context) {
	s.cache.Invalidate(ctx, catalogCachePrefix+"*")
}

func treeCacheKey(statuses []models.CourseStatus) string {
	if len(statuses) == 0 {
		return catalogCachePrefix + "all"
	}
	parts := make([]string, len(statuses))
	for i, status := range statuses {
		parts[i] = string(status)
	}
	sort.Strings(parts)
	return catalogCachePrefix + strings.Join(parts, ",")
}
