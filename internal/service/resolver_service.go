package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
)

const resolverCachePrefix = "resolver:view:"

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByClass(ctx context.Context, institutionID, classID string) ([]models.Assignment, error)
}

type overrideLister interface {
	ListModuleOverrides(ctx context.Context, assignmentID string) ([]models.ModuleOverride, error)
	ListSessionOverrides(ctx context.Context, moduleOverrideIDs []string) ([]models.SessionOverride, error)
}

type completionReader interface {
	ListByStudentAndContentIDs(ctx context.Context, studentID string, contentIDs []string) ([]models.Completion, error)
}

// ResolverService computes effective visible content for assignments. It is
// strictly read-only: it never writes unlock state, and resolving the same
// stored state twice yields identical output.
type ResolverService struct {
	assignments assignmentReader
	overrides   overrideLister
	completions completionReader
	catalog     courseTreeReader
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewResolverService constructs ResolverService.
func NewResolverService(assignments assignmentReader, overrides overrideLister, completions completionReader, catalog courseTreeReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ResolverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolverService{
		assignments: assignments,
		overrides:   overrides,
		completions: completions,
		catalog:     catalog,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// ResolveForStudent returns the content a student may see for one assignment.
// Content under locked sessions is omitted entirely rather than flagged, so
// locked material never reaches an unauthorized client. When studentID is set,
// unlocked content is joined with the student's completion rows and a progress
// summary is attached.
func (s *ResolverService) ResolveForStudent(ctx context.Context, scope models.Scope, assignmentID, studentID string) (*dto.ResolvedCourseView, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveResolution("student", time.Since(start)) }()

	cacheKey := fmt.Sprintf("%sstudent:%s:%s:%s", resolverCachePrefix, scope.ClassID, assignmentID, studentID)
	var cached dto.ResolvedCourseView
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	view, err := s.resolve(ctx, scope, assignmentID, false)
	if err != nil {
		return nil, err
	}

	if studentID != "" {
		if err := s.attachCompletions(ctx, studentID, view); err != nil {
			return nil, err
		}
	}

	s.cache.Set(ctx, cacheKey, view)
	return view, nil
}

// ResolveForManagement returns the full tree for one assignment with every
// content item attached and annotated with its lock state, so administrators
// can audit locked material.
func (s *ResolverService) ResolveForManagement(ctx context.Context, scope models.Scope, assignmentID string) (*dto.ResolvedCourseView, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveResolution("management", time.Since(start)) }()

	cacheKey := fmt.Sprintf("%smanagement:%s:%s", resolverCachePrefix, scope.ClassID, assignmentID)
	var cached dto.ResolvedCourseView
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	view, err := s.resolve(ctx, scope, assignmentID, true)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, cacheKey, view)
	return view, nil
}

// ResolveClassCourses resolves every assignment of a class for a student.
// Dangling assignments are skipped and counted instead of failing the whole
// page; any other resolution error is fatal.
func (s *ResolverService) ResolveClassCourses(ctx context.Context, scope models.Scope, studentID string) (*dto.ClassCoursesView, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveResolution("class", time.Since(start)) }()

	assignments, err := s.assignments.ListByClass(ctx, scope.InstitutionID, scope.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class assignments")
	}

	result := &dto.ClassCoursesView{ClassID: scope.ClassID, Courses: []dto.ResolvedCourseView{}}
	for _, assignment := range assignments {
		view, err := s.ResolveForStudent(ctx, scope, assignment.ID, studentID)
		if err != nil {
			if appErrors.HasCode(err, appErrors.ErrDanglingAssignment) {
				s.logger.Warn("skipping dangling assignment",
					zap.String("assignment_id", assignment.ID),
					zap.String("course_id", assignment.CourseID))
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Courses = append(result.Courses, *view)
	}
	return result, nil
}

// resolve builds the effective view for one assignment. The override rows are
// authoritative where present; a module or session without a row keeps the
// catalog default of unlocked, and no rows at all is the ALL sentinel.
func (s *ResolverService) resolve(ctx context.Context, scope models.Scope, assignmentID string, management bool) (*dto.ResolvedCourseView, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if scope.ClassID != "" && assignment.ClassID != scope.ClassID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another class")
	}

	course, err := s.catalog.GetCourseTree(ctx, assignment.CourseID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return nil, appErrors.Wrap(err, appErrors.ErrDanglingAssignment.Code, appErrors.ErrDanglingAssignment.Status, appErrors.ErrDanglingAssignment.Message)
		}
		return nil, err
	}

	queryStart := time.Now()
	moduleOverrides, err := s.overrides.ListModuleOverrides(ctx, assignmentID)
	s.metrics.ObserveDBQuery("list_module_overrides", time.Since(queryStart))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module overrides")
	}

	overridesByModule := make(map[string]models.ModuleOverride, len(moduleOverrides))
	sessionOverridesByModule := make(map[string]map[string]models.SessionOverride)
	if len(moduleOverrides) > 0 {
		overrideIDs := make([]string, len(moduleOverrides))
		moduleByOverrideID := make(map[string]string, len(moduleOverrides))
		for i, override := range moduleOverrides {
			overrideIDs[i] = override.ID
			overridesByModule[override.ModuleID] = override
			moduleByOverrideID[override.ID] = override.ModuleID
		}
		queryStart = time.Now()
		sessionOverrides, err := s.overrides.ListSessionOverrides(ctx, overrideIDs)
		s.metrics.ObserveDBQuery("list_session_overrides", time.Since(queryStart))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session overrides")
		}
		for _, so := range sessionOverrides {
			moduleID := moduleByOverrideID[so.ModuleOverrideID]
			if sessionOverridesByModule[moduleID] == nil {
				sessionOverridesByModule[moduleID] = make(map[string]models.SessionOverride)
			}
			sessionOverridesByModule[moduleID][so.SessionID] = so
		}
	}

	view := &dto.ResolvedCourseView{
		AssignmentID: assignment.ID,
		ClassID:      assignment.ClassID,
		CourseID:     course.ID,
		CourseTitle:  course.Title,
		CourseCode:   course.Code,
		Modules:      make([]dto.ResolvedModule, 0, len(course.Modules)),
	}

	for _, module := range course.Modules {
		resolvedModule := dto.ResolvedModule{
			ID:           module.ID,
			Title:        module.Title,
			DisplayOrder: module.DisplayOrder,
			IsUnlocked:   true,
			UnlockMode:   models.UnlockModeManual,
		}
		if override, ok := overridesByModule[module.ID]; ok {
			resolvedModule.IsUnlocked = override.IsUnlocked
			resolvedModule.UnlockOrder = override.UnlockOrder
			resolvedModule.UnlockMode = override.UnlockMode
		}

		sessionRows := sessionOverridesByModule[module.ID]
		for _, session := range module.Sessions {
			resolvedSession := dto.ResolvedSession{
				ID:           session.ID,
				Title:        session.Title,
				DisplayOrder: session.DisplayOrder,
				IsUnlocked:   true,
				UnlockMode:   models.UnlockModeManual,
			}
			if override, ok := sessionRows[session.ID]; ok {
				resolvedSession.IsUnlocked = override.IsUnlocked
				resolvedSession.UnlockOrder = override.UnlockOrder
				resolvedSession.UnlockMode = override.UnlockMode
			}

			visible := resolvedModule.IsUnlocked && resolvedSession.IsUnlocked
			if management || visible {
				resolvedSession.Content = make([]dto.ResolvedContent, 0, len(session.Content))
				for _, item := range session.Content {
					resolvedSession.Content = append(resolvedSession.Content, dto.ResolvedContent{
						ID:           item.ID,
						Title:        item.Title,
						ContentType:  item.ContentType,
						ContentRef:   item.ContentRef,
						DisplayOrder: item.DisplayOrder,
					})
				}
			}
			resolvedModule.Sessions = append(resolvedModule.Sessions, resolvedSession)
		}
		view.Modules = append(view.Modules, resolvedModule)
	}

	return view, nil
}

// attachCompletions joins visible content with the student's completion rows
// and computes the progress summary over unlocked content.
func (s *ResolverService) attachCompletions(ctx context.Context, studentID string, view *dto.ResolvedCourseView) error {
	var contentIDs []string
	for _, module := range view.Modules {
		for _, session := range module.Sessions {
			for _, item := range session.Content {
				contentIDs = append(contentIDs, item.ID)
			}
		}
	}

	completionsByContent := make(map[string]models.Completion)
	if len(contentIDs) > 0 {
		completions, err := s.completions.ListByStudentAndContentIDs(ctx, studentID, contentIDs)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completions")
		}
		for _, completion := range completions {
			completionsByContent[completion.ContentID] = completion
		}
	}

	summary := &dto.ProgressSummary{}
	for mi := range view.Modules {
		for si := range view.Modules[mi].Sessions {
			session := &view.Modules[mi].Sessions[si]
			for ci := range session.Content {
				item := &session.Content[ci]
				summary.UnlockedContent++
				completed := false
				if completion, ok := completionsByContent[item.ID]; ok {
					completed = completion.CompletedAt != nil
					pct := completion.WatchPercentage
					item.WatchPercentage = &pct
				}
				item.IsCompleted = &completed
				if completed {
					summary.CompletedContent++
				}
			}
		}
	}
	view.Progress = summary
	return nil
}
