package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	"github.com/avesta-labs/lms-content-api/internal/repository"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ExistsByClassAndCourse(ctx context.Context, classID, courseID string) (bool, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	CreateWithSelection(ctx context.Context, assignment *models.Assignment, moduleOverrides []models.ModuleOverride, sessionOverrides []models.SessionOverride) error
	ReplaceSelection(ctx context.Context, assignmentID string, expectedUpdatedAt time.Time, moduleOverrides []models.ModuleOverride, sessionOverrides []models.SessionOverride) error
	Delete(ctx context.Context, id string) error
}

type overrideReader interface {
	ListModuleOverrides(ctx context.Context, assignmentID string) ([]models.ModuleOverride, error)
	ListSessionOverrides(ctx context.Context, moduleOverrideIDs []string) ([]models.SessionOverride, error)
	FindModuleOverride(ctx context.Context, id string) (*models.ModuleOverride, error)
	FindSessionOverride(ctx context.Context, id string) (*models.SessionOverride, error)
	SetModuleUnlock(ctx context.Context, id string, isUnlocked bool) error
	SetSessionUnlock(ctx context.Context, id string, isUnlocked bool) error
}

type courseTreeReader interface {
	GetCourseTree(ctx context.Context, courseID string) (*models.Course, error)
}

// AssignmentService is the assignment graph: the only component that mutates
// unlock state. All calls take the tenant scope explicitly.
type AssignmentService struct {
	repo      assignmentRepository
	overrides overrideReader
	catalog   courseTreeReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(repo assignmentRepository, overrides overrideReader, catalog courseTreeReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, overrides: overrides, catalog: catalog, cache: cache, validator: validate, logger: logger}
}

// AssignCourse binds a course to a class. SelectAll writes no override rows
// (the ALL sentinel); an explicit selection is validated against the current
// catalog tree before anything is written.
func (s *AssignmentService) AssignCourse(ctx context.Context, scope models.Scope, actorID string, req dto.AssignCourseRequest) (*dto.AssignmentSelection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if scope.ClassID == "" || scope.InstitutionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class and institution scope required")
	}
	if !req.SelectAll && len(req.Modules) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "selection requires select_all or at least one module")
	}

	exists, err := s.repo.ExistsByClassAndCourse(ctx, scope.ClassID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateAssignment, "")
	}

	course, err := s.catalog.GetCourseTree(ctx, req.CourseID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, err
	}

	assignment := &models.Assignment{
		ClassID:       scope.ClassID,
		CourseID:      req.CourseID,
		InstitutionID: scope.InstitutionID,
		AssignedBy:    actorID,
	}

	var moduleOverrides []models.ModuleOverride
	var sessionOverrides []models.SessionOverride
	if !req.SelectAll {
		moduleOverrides, sessionOverrides, err = buildOverrideRows(course, req.Modules)
		if err != nil {
			return nil, err
		}
	}

	assignment.ID = uuid.NewString()
	for i := range moduleOverrides {
		moduleOverrides[i].AssignmentID = assignment.ID
	}

	if err := s.repo.CreateWithSelection(ctx, assignment, moduleOverrides, sessionOverrides); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssignment, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrAssignmentWriteFailed.Code, appErrors.ErrAssignmentWriteFailed.Status, appErrors.ErrAssignmentWriteFailed.Message)
	}

	s.invalidateClassViews(ctx, scope.ClassID)

	return &dto.AssignmentSelection{
		Assignment: *assignment,
		SelectAll:  req.SelectAll,
		Modules:    req.Modules,
	}, nil
}

// ReadSelection reproduces the persisted selection exactly. The absence of
// override rows reads back as the ALL sentinel, never as an empty selection.
func (s *AssignmentService) ReadSelection(ctx context.Context, assignmentID string) (*dto.AssignmentSelection, error) {
	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	moduleOverrides, err := s.overrides.ListModuleOverrides(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module overrides")
	}
	if len(moduleOverrides) == 0 {
		return &dto.AssignmentSelection{Assignment: *assignment, SelectAll: true}, nil
	}

	overrideIDs := make([]string, len(moduleOverrides))
	for i, override := range moduleOverrides {
		overrideIDs[i] = override.ID
	}
	sessionOverrides, err := s.overrides.ListSessionOverrides(ctx, overrideIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session overrides")
	}

	sessionsByOverride := make(map[string][]dto.SessionSelection, len(moduleOverrides))
	for _, so := range sessionOverrides {
		sessionsByOverride[so.ModuleOverrideID] = append(sessionsByOverride[so.ModuleOverrideID], dto.SessionSelection{
			SessionID:   so.SessionID,
			IsUnlocked:  so.IsUnlocked,
			UnlockOrder: so.UnlockOrder,
			UnlockMode:  so.UnlockMode,
		})
	}

	modules := make([]dto.ModuleSelection, len(moduleOverrides))
	for i, mo := range moduleOverrides {
		modules[i] = dto.ModuleSelection{
			ModuleID:    mo.ModuleID,
			IsUnlocked:  mo.IsUnlocked,
			UnlockOrder: mo.UnlockOrder,
			UnlockMode:  mo.UnlockMode,
			Sessions:    sessionsByOverride[mo.ID],
		}
	}

	return &dto.AssignmentSelection{Assignment: *assignment, SelectAll: false, Modules: modules}, nil
}

// ReplaceSelection swaps the selection wholesale with compare-and-swap on the
// assignment's updated_at. Select-all expands from the current catalog tree,
// never from previously persisted rows.
func (s *AssignmentService) ReplaceSelection(ctx context.Context, scope models.Scope, assignmentID string, req dto.ReplaceSelectionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}
	if !req.SelectAll && len(req.Modules) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "selection requires select_all or at least one module")
	}

	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	course, err := s.catalog.GetCourseTree(ctx, assignment.CourseID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrDanglingAssignment, "")
		}
		return err
	}

	var moduleOverrides []models.ModuleOverride
	var sessionOverrides []models.SessionOverride
	if !req.SelectAll {
		moduleOverrides, sessionOverrides, err = buildOverrideRows(course, req.Modules)
		if err != nil {
			return err
		}
		for i := range moduleOverrides {
			moduleOverrides[i].AssignmentID = assignmentID
		}
	}

	if err := s.repo.ReplaceSelection(ctx, assignmentID, req.ExpectedUpdatedAt, moduleOverrides, sessionOverrides); err != nil {
		if errors.Is(err, repository.ErrStaleRow) {
			return appErrors.Clone(appErrors.ErrStaleSelection, "")
		}
		return appErrors.Wrap(err, appErrors.ErrAssignmentWriteFailed.Code, appErrors.ErrAssignmentWriteFailed.Status, appErrors.ErrAssignmentWriteFailed.Message)
	}

	s.invalidateClassViews(ctx, scope.ClassID)
	return nil
}

// RemoveAssignment deletes an assignment and all its overrides. Removing a
// missing assignment is a no-op success.
func (s *AssignmentService) RemoveAssignment(ctx context.Context, scope models.Scope, assignmentID string) error {
	if err := s.repo.Delete(ctx, assignmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrAssignmentWriteFailed.Code, appErrors.ErrAssignmentWriteFailed.Status, appErrors.ErrAssignmentWriteFailed.Message)
	}
	s.invalidateClassViews(ctx, scope.ClassID)
	return nil
}

// ToggleModuleUnlock flips one module override. It never cascades to the
// module's sessions: re-locking a module leaves previously unlocked sessions
// untouched.
func (s *AssignmentService) ToggleModuleUnlock(ctx context.Context, scope models.Scope, moduleOverrideID string, isUnlocked bool) error {
	if _, err := s.overrides.FindModuleOverride(ctx, moduleOverrideID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "module override not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module override")
	}
	if err := s.overrides.SetModuleUnlock(ctx, moduleOverrideID, isUnlocked); err != nil {
		return appErrors.Wrap(err, appErrors.ErrAssignmentWriteFailed.Code, appErrors.ErrAssignmentWriteFailed.Status, appErrors.ErrAssignmentWriteFailed.Message)
	}
	s.invalidateClassViews(ctx, scope.ClassID)
	return nil
}

// ToggleSessionUnlock flips one session override. Unlocking promotes a locked
// parent module atomically with the session update.
func (s *AssignmentService) ToggleSessionUnlock(ctx context.Context, scope models.Scope, sessionOverrideID string, isUnlocked bool) error {
	if _, err := s.overrides.FindSessionOverride(ctx, sessionOverrideID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session override not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session override")
	}
	if err := s.overrides.SetSessionUnlock(ctx, sessionOverrideID, isUnlocked); err != nil {
		return appErrors.Wrap(err, appErrors.ErrAssignmentWriteFailed.Code, appErrors.ErrAssignmentWriteFailed.Status, appErrors.ErrAssignmentWriteFailed.Message)
	}
	s.invalidateClassViews(ctx, scope.ClassID)
	return nil
}

// List returns assignments with pagination metadata.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *AssignmentService) invalidateClassViews(ctx context.Context, classID string) {
	if classID == "" {
		return
	}
	s.cache.Invalidate(ctx, fmt.Sprintf("resolver:view:*:%s:*", classID))
}

// buildOverrideRows converts an explicit selection into override rows,
// validating every referenced module and session against the catalog tree.
func buildOverrideRows(course *models.Course, selections []dto.ModuleSelection) ([]models.ModuleOverride, []models.SessionOverride, error) {
	moduleIndex := make(map[string]map[string]struct{}, len(course.Modules))
	for _, module := range course.Modules {
		sessionSet := make(map[string]struct{}, len(module.Sessions))
		for _, session := range module.Sessions {
			sessionSet[session.ID] = struct{}{}
		}
		moduleIndex[module.ID] = sessionSet
	}

	var moduleOverrides []models.ModuleOverride
	var sessionOverrides []models.SessionOverride
	seenModules := make(map[string]struct{}, len(selections))
	for _, selection := range selections {
		sessionSet, ok := moduleIndex[selection.ModuleID]
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("module %s does not belong to course %s", selection.ModuleID, course.ID))
		}
		if _, dup := seenModules[selection.ModuleID]; dup {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("module %s selected twice", selection.ModuleID))
		}
		seenModules[selection.ModuleID] = struct{}{}

		override := models.ModuleOverride{
			ID:          uuid.NewString(),
			ModuleID:    selection.ModuleID,
			IsUnlocked:  selection.IsUnlocked,
			UnlockOrder: selection.UnlockOrder,
			UnlockMode:  defaultMode(selection.UnlockMode),
		}
		moduleOverrides = append(moduleOverrides, override)

		seenSessions := make(map[string]struct{}, len(selection.Sessions))
		for _, sessionSelection := range selection.Sessions {
			if _, ok := sessionSet[sessionSelection.SessionID]; !ok {
				return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("session %s does not belong to module %s", sessionSelection.SessionID, selection.ModuleID))
			}
			if _, dup := seenSessions[sessionSelection.SessionID]; dup {
				return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("session %s selected twice", sessionSelection.SessionID))
			}
			seenSessions[sessionSelection.SessionID] = struct{}{}

			sessionOverrides = append(sessionOverrides, models.SessionOverride{
				ID:               uuid.NewString(),
				ModuleOverrideID: override.ID,
				SessionID:        sessionSelection.SessionID,
				IsUnlocked:       sessionSelection.IsUnlocked,
				UnlockOrder:      sessionSelection.UnlockOrder,
				UnlockMode:       defaultMode(sessionSelection.UnlockMode),
			})
		}
	}
	return moduleOverrides, sessionOverrides, nil
}

func defaultMode(mode models.UnlockMode) models.UnlockMode {
	if mode == "" {
		return models.UnlockModeManual
	}
	return mode
}
