package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/middleware"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
)

type assignmentServiceMock struct {
	assignResp    *dto.AssignmentSelection
	assignErr     error
	readResp      *dto.AssignmentSelection
	readErr       error
	replaceErr    error
	removeErr     error
	toggleErr     error
	lastScope     models.Scope
	lastActor     string
	lastAssignReq dto.AssignCourseRequest
	toggleCalls   []bool
}

func (m *assignmentServiceMock) AssignCourse(ctx context.Context, scope models.Scope, actorID string, req dto.AssignCourseRequest) (*dto.AssignmentSelection, error) {
	m.lastScope = scope
	m.lastActor = actorID
	m.lastAssignReq = req
	return m.assignResp, m.assignErr
}

func (m *assignmentServiceMock) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	return nil, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *assignmentServiceMock) ReadSelection(ctx context.Context, assignmentID string) (*dto.AssignmentSelection, error) {
	return m.readResp, m.readErr
}

func (m *assignmentServiceMock) ReplaceSelection(ctx context.Context, scope models.Scope, assignmentID string, req dto.ReplaceSelectionRequest) error {
	m.lastScope = scope
	return m.replaceErr
}

func (m *assignmentServiceMock) RemoveAssignment(ctx context.Context, scope models.Scope, assignmentID string) error {
	m.lastScope = scope
	return m.removeErr
}

func (m *assignmentServiceMock) ToggleModuleUnlock(ctx context.Context, scope models.Scope, moduleOverrideID string, isUnlocked bool) error {
	m.toggleCalls = append(m.toggleCalls, isUnlocked)
	return m.toggleErr
}

func (m *assignmentServiceMock) ToggleSessionUnlock(ctx context.Context, scope models.Scope, sessionOverrideID string, isUnlocked bool) error {
	m.toggleCalls = append(m.toggleCalls, isUnlocked)
	return m.toggleErr
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, InstitutionID: "inst-1"}
}

func newTestContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, target, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestAssignmentHandlerAssign(t *testing.T) {
	mockSvc := &assignmentServiceMock{
		assignResp: &dto.AssignmentSelection{
			Assignment: models.Assignment{ID: "asg-1", ClassID: "class-7a", CourseID: "course-1"},
			SelectAll:  true,
		},
	}
	h := NewAssignmentHandler(mockSvc)

	c, w := newTestContext(t, http.MethodPost, "/classes/class-7a/assignments", dto.AssignCourseRequest{CourseID: "course-1", SelectAll: true})
	c.Params = gin.Params{{Key: "classId", Value: "class-7a"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	h.Assign(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "class-7a", mockSvc.lastScope.ClassID)
	assert.Equal(t, "inst-1", mockSvc.lastScope.InstitutionID)
	assert.Equal(t, "admin-1", mockSvc.lastActor)
	assert.True(t, mockSvc.lastAssignReq.SelectAll)
}

func TestAssignmentHandlerAssignDuplicateConflict(t *testing.T) {
	mockSvc := &assignmentServiceMock{assignErr: appErrors.Clone(appErrors.ErrDuplicateAssignment, "")}
	h := NewAssignmentHandler(mockSvc)

	c, w := newTestContext(t, http.MethodPost, "/classes/class-7a/assignments", dto.AssignCourseRequest{CourseID: "course-1", SelectAll: true})
	c.Params = gin.Params{{Key: "classId", Value: "class-7a"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	h.Assign(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "DUPLICATE_ASSIGNMENT")
}

func TestAssignmentHandlerAssignInvalidBody(t *testing.T) {
	h := NewAssignmentHandler(&assignmentServiceMock{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/classes/class-7a/assignments", bytes.NewBufferString(`{"course_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, adminClaims())

	h.Assign(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignmentHandlerAssignRequiresAuth(t *testing.T) {
	h := NewAssignmentHandler(&assignmentServiceMock{})

	c, w := newTestContext(t, http.MethodPost, "/classes/class-7a/assignments", dto.AssignCourseRequest{CourseID: "course-1", SelectAll: true})
	c.Params = gin.Params{{Key: "classId", Value: "class-7a"}}

	h.Assign(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAssignmentHandlerGetSelection(t *testing.T) {
	mockSvc := &assignmentServiceMock{
		readResp: &dto.AssignmentSelection{
			Assignment: models.Assignment{ID: "asg-1"},
			SelectAll:  false,
			Modules:    []dto.ModuleSelection{{ModuleID: "mod-1", IsUnlocked: true}},
		},
	}
	h := NewAssignmentHandler(mockSvc)

	c, w := newTestContext(t, http.MethodGet, "/classes/class-7a/assignments/asg-1/selection", nil)
	c.Params = gin.Params{{Key: "classId", Value: "class-7a"}, {Key: "assignmentId", Value: "asg-1"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	h.GetSelection(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mod-1")
}

func TestAssignmentHandlerReplaceSelectionStaleConflict(t *testing.T) {
	mockSvc := &assignmentServiceMock{replaceErr: appErrors.Clone(appErrors.ErrStaleSelection, "")}
	h := NewAssignmentHandler(mockSvc)

	c, w := newTestContext(t, http.MethodPut, "/classes/class-7a/assignments/asg-1/selection", gin.H{
		"select_all":          true,
		"expected_updated_at": "2026-08-01T10:00:00Z",
	})
	c.Params = gin.Params{{Key: "classId", Value: "class-7a"}, {Key: "assignmentId", Value: "asg-1"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	h.ReplaceSelection(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "STALE_SELECTION")
}

func TestAssignmentHandlerRemove(t *testing.T) {
	mockSvc := &assignmentServiceMock{}
	h := NewAssignmentHandler(mockSvc)

	c, w := newTestContext(t, http.MethodDelete, "/classes/class-7a/assignments/asg-1", nil)
	c.Params = gin.Params{{Key: "classId", Value: "class-7a"}, {Key: "assignmentId", Value: "asg-1"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	h.Remove(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestAssignmentHandlerToggleModule(t *testing.T) {
	mockSvc := &assignmentServiceMock{}
	h := NewAssignmentHandler(mockSvc)

	c, w := newTestContext(t, http.MethodPatch, "/classes/class-7a/module-overrides/ovr-1", dto.ToggleUnlockRequest{IsUnlocked: true})
	c.Params = gin.Params{{Key: "classId", Value: "class-7a"}, {Key: "overrideId", Value: "ovr-1"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	h.ToggleModule(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []bool{true}, mockSvc.toggleCalls)
}
