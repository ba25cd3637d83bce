package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
)

type mockResolverAssignments struct {
	byID    map[string]models.Assignment
	byClass map[string][]models.Assignment
}

func (m *mockResolverAssignments) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &assignment, nil
}

func (m *mockResolverAssignments) ListByClass(ctx context.Context, institutionID, classID string) ([]models.Assignment, error) {
	return m.byClass[classID], nil
}

type mockOverrideData struct {
	modules  []models.ModuleOverride
	sessions []models.SessionOverride
}

func (m *mockOverrideData) ListModuleOverrides(ctx context.Context, assignmentID string) ([]models.ModuleOverride, error) {
	var rows []models.ModuleOverride
	for _, row := range m.modules {
		if row.AssignmentID == assignmentID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *mockOverrideData) ListSessionOverrides(ctx context.Context, moduleOverrideIDs []string) ([]models.SessionOverride, error) {
	allowed := make(map[string]struct{}, len(moduleOverrideIDs))
	for _, id := range moduleOverrideIDs {
		allowed[id] = struct{}{}
	}
	var rows []models.SessionOverride
	for _, row := range m.sessions {
		if _, ok := allowed[row.ModuleOverrideID]; ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

type mockCompletions struct {
	rows []models.Completion
}

func (m *mockCompletions) ListByStudentAndContentIDs(ctx context.Context, studentID string, contentIDs []string) ([]models.Completion, error) {
	allowed := make(map[string]struct{}, len(contentIDs))
	for _, id := range contentIDs {
		allowed[id] = struct{}{}
	}
	var result []models.Completion
	for _, row := range m.rows {
		if row.StudentID != studentID {
			continue
		}
		if _, ok := allowed[row.ContentID]; ok {
			result = append(result, row)
		}
	}
	return result, nil
}

func newResolverFixture(overrides *mockOverrideData, completions *mockCompletions) *ResolverService {
	assignments := &mockResolverAssignments{
		byID: map[string]models.Assignment{
			"asg-1": {ID: "asg-1", ClassID: "class-7a", CourseID: "course-1", InstitutionID: "inst-1"},
		},
		byClass: map[string][]models.Assignment{
			"class-7a": {{ID: "asg-1", ClassID: "class-7a", CourseID: "course-1", InstitutionID: "inst-1"}},
		},
	}
	if overrides == nil {
		overrides = &mockOverrideData{}
	}
	if completions == nil {
		completions = &mockCompletions{}
	}
	catalog := &mockCourseTree{courses: map[string]*models.Course{"course-1": roboticsCourse()}}
	return NewResolverService(assignments, overrides, completions, catalog, nil, nil, nil)
}

func TestResolveForStudentSentinelUnlocksEverything(t *testing.T) {
	svc := newResolverFixture(nil, nil)

	view, err := svc.ResolveForStudent(context.Background(), testScope(), "asg-1", "")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Robotics", view.CourseTitle)
	require.Len(t, view.Modules, 2)
	for _, module := range view.Modules {
		assert.True(t, module.IsUnlocked)
		for _, session := range module.Sessions {
			assert.True(t, session.IsUnlocked)
		}
	}
	assert.Len(t, view.Modules[0].Sessions[0].Content, 2)
	assert.Len(t, view.Modules[0].Sessions[1].Content, 1)
}

func TestResolveForStudentSentinelEqualsExplicitAllUnlocked(t *testing.T) {
	sentinel := newResolverFixture(nil, nil)
	explicit := newResolverFixture(&mockOverrideData{
		modules: []models.ModuleOverride{
			{ID: "ovr-1", AssignmentID: "asg-1", ModuleID: "mod-1", IsUnlocked: true, UnlockMode: models.UnlockModeManual},
			{ID: "ovr-2", AssignmentID: "asg-1", ModuleID: "mod-2", IsUnlocked: true, UnlockMode: models.UnlockModeManual},
		},
		sessions: []models.SessionOverride{
			{ID: "sovr-1", ModuleOverrideID: "ovr-1", SessionID: "sess-1", IsUnlocked: true, UnlockMode: models.UnlockModeManual},
			{ID: "sovr-2", ModuleOverrideID: "ovr-1", SessionID: "sess-2", IsUnlocked: true, UnlockMode: models.UnlockModeManual},
			{ID: "sovr-3", ModuleOverrideID: "ovr-2", SessionID: "sess-3", IsUnlocked: true, UnlockMode: models.UnlockModeManual},
		},
	}, nil)

	sentinelView, err := sentinel.ResolveForStudent(context.Background(), testScope(), "asg-1", "")
	require.NoError(t, err)
	explicitView, err := explicit.ResolveForStudent(context.Background(), testScope(), "asg-1", "")
	require.NoError(t, err)
	assert.Equal(t, sentinelView, explicitView)
}

func TestResolveForStudentOmitsLockedSessionContent(t *testing.T) {
	svc := newResolverFixture(&mockOverrideData{
		modules: []models.ModuleOverride{
			{ID: "ovr-1", AssignmentID: "asg-1", ModuleID: "mod-1", IsUnlocked: true, UnlockMode: models.UnlockModeManual},
		},
		sessions: []models.SessionOverride{
			{ID: "sovr-2", ModuleOverrideID: "ovr-1", SessionID: "sess-2", IsUnlocked: false, UnlockMode: models.UnlockModeManual},
		},
	}, nil)

	view, err := svc.ResolveForStudent(context.Background(), testScope(), "asg-1", "")
	require.NoError(t, err)

	basics := view.Modules[0]
	assert.True(t, basics.Sessions[0].IsUnlocked)
	assert.NotEmpty(t, basics.Sessions[0].Content)

	motors := basics.Sessions[1]
	assert.False(t, motors.IsUnlocked)
	assert.Empty(t, motors.Content)
}

func TestResolveForStudentLockedModuleHidesSessionContent(t *testing.T) {
	svc := newResolverFixture(&mockOverrideData{
		modules: []models.ModuleOverride{
			{ID: "ovr-1", AssignmentID: "asg-1", ModuleID: "mod-1", IsUnlocked: false, UnlockMode: models.UnlockModeManual},
		},
		sessions: []models.SessionOverride{
			{ID: "sovr-1", ModuleOverrideID: "ovr-1", SessionID: "sess-1", IsUnlocked: true, UnlockMode: models.UnlockModeManual},
		},
	}, nil)

	view, err := svc.ResolveForStudent(context.Background(), testScope(), "asg-1", "")
	require.NoError(t, err)

	basics := view.Modules[0]
	assert.False(t, basics.IsUnlocked)
	assert.True(t, basics.Sessions[0].IsUnlocked)
	assert.Empty(t, basics.Sessions[0].Content)
}

func TestResolveForManagementAnnotatesLockedContent(t *testing.T) {
	svc := newResolverFixture(&mockOverrideData{
		modules: []models.ModuleOverride{
			{ID: "ovr-1", AssignmentID: "asg-1", ModuleID: "mod-1", IsUnlocked: true, UnlockMode: models.UnlockModeManual},
		},
		sessions: []models.SessionOverride{
			{ID: "sovr-2", ModuleOverrideID: "ovr-1", SessionID: "sess-2", IsUnlocked: false, UnlockMode: models.UnlockModeManual},
		},
	}, nil)

	view, err := svc.ResolveForManagement(context.Background(), testScope(), "asg-1")
	require.NoError(t, err)

	motors := view.Modules[0].Sessions[1]
	assert.False(t, motors.IsUnlocked)
	require.Len(t, motors.Content, 1)
	assert.Equal(t, "content-7c", motors.Content[0].ID)
}

func TestResolveForStudentJoinsCompletions(t *testing.T) {
	completedAt := time.Now().UTC()
	svc := newResolverFixture(nil, &mockCompletions{rows: []models.Completion{
		{StudentID: "student-1", ContentID: "content-7a", WatchPercentage: 100, CompletedAt: &completedAt},
		{StudentID: "student-1", ContentID: "content-7c", WatchPercentage: 40},
		{StudentID: "student-2", ContentID: "content-7b", WatchPercentage: 100, CompletedAt: &completedAt},
	}})

	view, err := svc.ResolveForStudent(context.Background(), testScope(), "asg-1", "student-1")
	require.NoError(t, err)

	labRules := view.Modules[0].Sessions[0].Content[0]
	require.NotNil(t, labRules.IsCompleted)
	assert.True(t, *labRules.IsCompleted)
	require.NotNil(t, labRules.WatchPercentage)
	assert.Equal(t, float64(100), *labRules.WatchPercentage)

	servoIntro := view.Modules[0].Sessions[1].Content[0]
	require.NotNil(t, servoIntro.IsCompleted)
	assert.False(t, *servoIntro.IsCompleted)
	require.NotNil(t, servoIntro.WatchPercentage)
	assert.Equal(t, float64(40), *servoIntro.WatchPercentage)

	require.NotNil(t, view.Progress)
	assert.Equal(t, 3, view.Progress.UnlockedContent)
	assert.Equal(t, 1, view.Progress.CompletedContent)
}

func TestResolveForStudentDanglingCourse(t *testing.T) {
	assignments := &mockResolverAssignments{
		byID: map[string]models.Assignment{
			"asg-gone": {ID: "asg-gone", ClassID: "class-7a", CourseID: "course-missing", InstitutionID: "inst-1"},
		},
	}
	catalog := &mockCourseTree{courses: map[string]*models.Course{}}
	svc := NewResolverService(assignments, &mockOverrideData{}, &mockCompletions{}, catalog, nil, nil, nil)

	_, err := svc.ResolveForStudent(context.Background(), testScope(), "asg-gone", "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDanglingAssignment))
}

func TestResolveClassCoursesSkipsDangling(t *testing.T) {
	assignments := &mockResolverAssignments{
		byID: map[string]models.Assignment{
			"asg-1":    {ID: "asg-1", ClassID: "class-7a", CourseID: "course-1", InstitutionID: "inst-1"},
			"asg-gone": {ID: "asg-gone", ClassID: "class-7a", CourseID: "course-missing", InstitutionID: "inst-1"},
		},
		byClass: map[string][]models.Assignment{
			"class-7a": {
				{ID: "asg-1", ClassID: "class-7a", CourseID: "course-1", InstitutionID: "inst-1"},
				{ID: "asg-gone", ClassID: "class-7a", CourseID: "course-missing", InstitutionID: "inst-1"},
			},
		},
	}
	catalog := &mockCourseTree{courses: map[string]*models.Course{"course-1": roboticsCourse()}}
	svc := NewResolverService(assignments, &mockOverrideData{}, &mockCompletions{}, catalog, nil, nil, nil)

	view, err := svc.ResolveClassCourses(context.Background(), testScope(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Skipped)
	require.Len(t, view.Courses, 1)
	assert.Equal(t, "asg-1", view.Courses[0].AssignmentID)
}

func TestResolveForStudentIsDeterministic(t *testing.T) {
	svc := newResolverFixture(&mockOverrideData{
		modules: []models.ModuleOverride{
			{ID: "ovr-1", AssignmentID: "asg-1", ModuleID: "mod-1", IsUnlocked: true, UnlockOrder: 1, UnlockMode: models.UnlockModeSequential},
		},
		sessions: []models.SessionOverride{
			{ID: "sovr-1", ModuleOverrideID: "ovr-1", SessionID: "sess-1", IsUnlocked: false, UnlockOrder: 1, UnlockMode: models.UnlockModeSequential},
		},
	}, nil)

	first, err := svc.ResolveForStudent(context.Background(), testScope(), "asg-1", "")
	require.NoError(t, err)
	second, err := svc.ResolveForStudent(context.Background(), testScope(), "asg-1", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveForStudentRejectsForeignClassScope(t *testing.T) {
	svc := newResolverFixture(nil, nil)

	_, err := svc.ResolveForStudent(context.Background(), models.Scope{InstitutionID: "inst-1", ClassID: "class-8b"}, "asg-1", "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}
