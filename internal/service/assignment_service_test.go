package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	"github.com/avesta-labs/lms-content-api/internal/repository"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]models.Assignment
	moduleRows  map[string][]models.ModuleOverride
	sessionRows map[string][]models.SessionOverride
	existing    map[string]bool
	createErr   error
	replaceErr  error
	deleteCalls int
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{
		assignments: make(map[string]models.Assignment),
		moduleRows:  make(map[string][]models.ModuleOverride),
		sessionRows: make(map[string][]models.SessionOverride),
		existing:    make(map[string]bool),
	}
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &assignment, nil
}

func (m *mockAssignmentRepo) ExistsByClassAndCourse(ctx context.Context, classID, courseID string) (bool, error) {
	return m.existing[classID+"/"+courseID], nil
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	var result []models.Assignment
	for _, assignment := range m.assignments {
		result = append(result, assignment)
	}
	return result, len(result), nil
}

func (m *mockAssignmentRepo) CreateWithSelection(ctx context.Context, assignment *models.Assignment, moduleOverrides []models.ModuleOverride, sessionOverrides []models.SessionOverride) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.assignments[assignment.ID] = *assignment
	m.moduleRows[assignment.ID] = moduleOverrides
	m.sessionRows[assignment.ID] = sessionOverrides
	return nil
}

func (m *mockAssignmentRepo) ReplaceSelection(ctx context.Context, assignmentID string, expectedUpdatedAt time.Time, moduleOverrides []models.ModuleOverride, sessionOverrides []models.SessionOverride) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.moduleRows[assignmentID] = moduleOverrides
	m.sessionRows[assignmentID] = sessionOverrides
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string) error {
	m.deleteCalls++
	delete(m.assignments, id)
	delete(m.moduleRows, id)
	delete(m.sessionRows, id)
	return nil
}

type mockOverrideRepo struct {
	repo            *mockAssignmentRepo
	moduleOverride  *models.ModuleOverride
	sessionOverride *models.SessionOverride
	setModuleCalls  []bool
	setSessionCalls []bool
}

func (m *mockOverrideRepo) ListModuleOverrides(ctx context.Context, assignmentID string) ([]models.ModuleOverride, error) {
	return m.repo.moduleRows[assignmentID], nil
}

func (m *mockOverrideRepo) ListSessionOverrides(ctx context.Context, moduleOverrideIDs []string) ([]models.SessionOverride, error) {
	allowed := make(map[string]struct{}, len(moduleOverrideIDs))
	for _, id := range moduleOverrideIDs {
		allowed[id] = struct{}{}
	}
	var result []models.SessionOverride
	for _, rows := range m.repo.sessionRows {
		for _, row := range rows {
			if _, ok := allowed[row.ModuleOverrideID]; ok {
				result = append(result, row)
			}
		}
	}
	return result, nil
}

func (m *mockOverrideRepo) FindModuleOverride(ctx context.Context, id string) (*models.ModuleOverride, error) {
	if m.moduleOverride == nil || m.moduleOverride.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.moduleOverride, nil
}

func (m *mockOverrideRepo) FindSessionOverride(ctx context.Context, id string) (*models.SessionOverride, error) {
	if m.sessionOverride == nil || m.sessionOverride.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.sessionOverride, nil
}

func (m *mockOverrideRepo) SetModuleUnlock(ctx context.Context, id string, isUnlocked bool) error {
	m.setModuleCalls = append(m.setModuleCalls, isUnlocked)
	return nil
}

func (m *mockOverrideRepo) SetSessionUnlock(ctx context.Context, id string, isUnlocked bool) error {
	m.setSessionCalls = append(m.setSessionCalls, isUnlocked)
	return nil
}

type mockCourseTree struct {
	courses map[string]*models.Course
}

func (m *mockCourseTree) GetCourseTree(ctx context.Context, courseID string) (*models.Course, error) {
	course, ok := m.courses[courseID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}

func roboticsCourse() *models.Course {
	return &models.Course{
		ID:    "course-1",
		Title: "Intro to Robotics",
		Code:  "ROB-101",
		Modules: []models.Module{
			{
				ID: "mod-1", CourseID: "course-1", Title: "Basics", DisplayOrder: 1,
				Sessions: []models.Session{
					{ID: "sess-1", ModuleID: "mod-1", Title: "Safety", DisplayOrder: 1,
						Content: []models.ContentItem{
							{ID: "content-7a", SessionID: "sess-1", Title: "Lab rules", ContentType: "video", DisplayOrder: 1},
							{ID: "content-7b", SessionID: "sess-1", Title: "Quiz", ContentType: "quiz", DisplayOrder: 2},
						}},
					{ID: "sess-2", ModuleID: "mod-1", Title: "Motors", DisplayOrder: 2,
						Content: []models.ContentItem{
							{ID: "content-7c", SessionID: "sess-2", Title: "Servo intro", ContentType: "video", DisplayOrder: 1},
						}},
				},
			},
			{
				ID: "mod-2", CourseID: "course-1", Title: "Sensors", DisplayOrder: 2,
				Sessions: []models.Session{
					{ID: "sess-3", ModuleID: "mod-2", Title: "Ultrasonic", DisplayOrder: 1},
				},
			},
		},
	}
}

func newAssignmentFixture() (*AssignmentService, *mockAssignmentRepo, *mockOverrideRepo) {
	repo := newMockAssignmentRepo()
	overrides := &mockOverrideRepo{repo: repo}
	catalog := &mockCourseTree{courses: map[string]*models.Course{"course-1": roboticsCourse()}}
	svc := NewAssignmentService(repo, overrides, catalog, nil, nil, nil)
	return svc, repo, overrides
}

func testScope() models.Scope {
	return models.Scope{InstitutionID: "inst-1", ClassID: "class-7a"}
}

func TestAssignCourseSelectAllWritesNoOverrideRows(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()

	result, err := svc.AssignCourse(context.Background(), testScope(), "admin-1", dto.AssignCourseRequest{
		CourseID:  "course-1",
		SelectAll: true,
	})
	require.NoError(t, err)
	assert.True(t, result.SelectAll)
	assert.Empty(t, repo.moduleRows[result.Assignment.ID])
	assert.Empty(t, repo.sessionRows[result.Assignment.ID])
}

func TestAssignCourseRejectsDuplicate(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()
	repo.existing["class-7a/course-1"] = true

	_, err := svc.AssignCourse(context.Background(), testScope(), "admin-1", dto.AssignCourseRequest{
		CourseID:  "course-1",
		SelectAll: true,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicateAssignment))
}

func TestAssignCourseMapsUniqueViolationToDuplicate(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()
	repo.createErr = repository.ErrDuplicateKey

	_, err := svc.AssignCourse(context.Background(), testScope(), "admin-1", dto.AssignCourseRequest{
		CourseID:  "course-1",
		SelectAll: true,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicateAssignment))
}

func TestAssignCourseWrapsWriteFailures(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()
	repo.createErr = errors.New("connection reset")

	_, err := svc.AssignCourse(context.Background(), testScope(), "admin-1", dto.AssignCourseRequest{
		CourseID:  "course-1",
		SelectAll: true,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrAssignmentWriteFailed))
	assert.ErrorContains(t, err, "connection reset")
}

func TestAssignCourseRejectsUnknownModule(t *testing.T) {
	svc, _, _ := newAssignmentFixture()

	_, err := svc.AssignCourse(context.Background(), testScope(), "admin-1", dto.AssignCourseRequest{
		CourseID: "course-1",
		Modules:  []dto.ModuleSelection{{ModuleID: "mod-99", IsUnlocked: true}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAssignCourseRejectsSessionOutsideModule(t *testing.T) {
	svc, _, _ := newAssignmentFixture()

	_, err := svc.AssignCourse(context.Background(), testScope(), "admin-1", dto.AssignCourseRequest{
		CourseID: "course-1",
		Modules: []dto.ModuleSelection{{
			ModuleID:   "mod-1",
			IsUnlocked: true,
			Sessions:   []dto.SessionSelection{{SessionID: "sess-3", IsUnlocked: true}},
		}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAssignCourseRejectsEmptyExplicitSelection(t *testing.T) {
	svc, _, _ := newAssignmentFixture()

	_, err := svc.AssignCourse(context.Background(), testScope(), "admin-1", dto.AssignCourseRequest{
		CourseID: "course-1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestSelectionRoundTrip(t *testing.T) {
	svc, _, _ := newAssignmentFixture()

	selection := []dto.ModuleSelection{
		{
			ModuleID:    "mod-1",
			IsUnlocked:  true,
			UnlockOrder: 1,
			UnlockMode:  models.UnlockModeSequential,
			Sessions: []dto.SessionSelection{
				{SessionID: "sess-1", IsUnlocked: true, UnlockOrder: 1, UnlockMode: models.UnlockModeSequential},
				{SessionID: "sess-2", IsUnlocked: false, UnlockOrder: 2, UnlockMode: models.UnlockModeSequential},
			},
		},
		{ModuleID: "mod-2", IsUnlocked: false, UnlockOrder: 2, UnlockMode: models.UnlockModeManual},
	}

	created, err := svc.AssignCourse(context.Background(), testScope(), "admin-1", dto.AssignCourseRequest{
		CourseID: "course-1",
		Modules:  selection,
	})
	require.NoError(t, err)

	read, err := svc.ReadSelection(context.Background(), created.Assignment.ID)
	require.NoError(t, err)
	assert.False(t, read.SelectAll)
	require.Len(t, read.Modules, 2)
	assert.Equal(t, selection[0].ModuleID, read.Modules[0].ModuleID)
	assert.Equal(t, selection[0].UnlockMode, read.Modules[0].UnlockMode)
	require.Len(t, read.Modules[0].Sessions, 2)
	assert.Equal(t, "sess-1", read.Modules[0].Sessions[0].SessionID)
	assert.True(t, read.Modules[0].Sessions[0].IsUnlocked)
	assert.False(t, read.Modules[0].Sessions[1].IsUnlocked)
	assert.Equal(t, "mod-2", read.Modules[1].ModuleID)
	assert.False(t, read.Modules[1].IsUnlocked)
}

func TestReadSelectionReportsSentinelAsSelectAll(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()
	repo.assignments["asg-1"] = models.Assignment{ID: "asg-1", ClassID: "class-7a", CourseID: "course-1"}

	read, err := svc.ReadSelection(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.True(t, read.SelectAll)
	assert.Empty(t, read.Modules)
}

func TestReplaceSelectionReportsStaleConflict(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()
	repo.assignments["asg-1"] = models.Assignment{ID: "asg-1", ClassID: "class-7a", CourseID: "course-1"}
	repo.replaceErr = repository.ErrStaleRow

	err := svc.ReplaceSelection(context.Background(), testScope(), "asg-1", dto.ReplaceSelectionRequest{
		SelectAll:         true,
		ExpectedUpdatedAt: time.Now(),
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStaleSelection))
}

func TestReplaceSelectionSwapsToSentinel(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()

	created, err := svc.AssignCourse(context.Background(), testScope(), "admin-1", dto.AssignCourseRequest{
		CourseID: "course-1",
		Modules:  []dto.ModuleSelection{{ModuleID: "mod-1", IsUnlocked: true}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, repo.moduleRows[created.Assignment.ID])

	err = svc.ReplaceSelection(context.Background(), testScope(), created.Assignment.ID, dto.ReplaceSelectionRequest{
		SelectAll:         true,
		ExpectedUpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Empty(t, repo.moduleRows[created.Assignment.ID])
}

func TestRemoveAssignmentIsIdempotent(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()
	repo.assignments["asg-1"] = models.Assignment{ID: "asg-1", ClassID: "class-7a", CourseID: "course-1"}

	require.NoError(t, svc.RemoveAssignment(context.Background(), testScope(), "asg-1"))
	require.NoError(t, svc.RemoveAssignment(context.Background(), testScope(), "asg-1"))
	assert.Equal(t, 2, repo.deleteCalls)
	assert.Empty(t, repo.assignments)
}

func TestToggleModuleUnlock(t *testing.T) {
	svc, _, overrides := newAssignmentFixture()
	overrides.moduleOverride = &models.ModuleOverride{ID: "ovr-1", ModuleID: "mod-1"}

	require.NoError(t, svc.ToggleModuleUnlock(context.Background(), testScope(), "ovr-1", true))
	assert.Equal(t, []bool{true}, overrides.setModuleCalls)

	err := svc.ToggleModuleUnlock(context.Background(), testScope(), "ovr-missing", true)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestToggleSessionUnlock(t *testing.T) {
	svc, _, overrides := newAssignmentFixture()
	overrides.sessionOverride = &models.SessionOverride{ID: "sovr-1", SessionID: "sess-1"}

	require.NoError(t, svc.ToggleSessionUnlock(context.Background(), testScope(), "sovr-1", true))
	assert.Equal(t, []bool{true}, overrides.setSessionCalls)

	err := svc.ToggleSessionUnlock(context.Background(), testScope(), "sovr-missing", false)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
