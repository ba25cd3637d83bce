package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/middleware"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
)

type progressRecorderMock struct {
	resp        *models.Completion
	err         error
	lastActor   string
	lastStudent string
}

func (m *progressRecorderMock) RecordProgress(ctx context.Context, actorID, studentID string, req dto.RecordProgressRequest) (*models.Completion, error) {
	m.lastActor = actorID
	m.lastStudent = studentID
	return m.resp, m.err
}

func TestCompletionHandlerRecordProgress(t *testing.T) {
	mockSvc := &progressRecorderMock{resp: &models.Completion{StudentID: "student-1", ContentID: "content-7a", WatchPercentage: 80}}
	h := NewCompletionHandler(mockSvc)

	c, w := newTestContext(t, http.MethodPost, "/students/student-1/progress", dto.RecordProgressRequest{
		ContentID:         "content-7a",
		ClassAssignmentID: "asg-1",
		WatchPercentage:   80,
	})
	c.Params = gin.Params{{Key: "studentId", Value: "student-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent, InstitutionID: "inst-1"})

	h.RecordProgress(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student-1", mockSvc.lastActor)
	assert.Equal(t, "student-1", mockSvc.lastStudent)
}

func TestCompletionHandlerForeignStudentForbidden(t *testing.T) {
	mockSvc := &progressRecorderMock{err: appErrors.Clone(appErrors.ErrForbidden, "progress can only be recorded by the owning student")}
	h := NewCompletionHandler(mockSvc)

	c, w := newTestContext(t, http.MethodPost, "/students/student-2/progress", dto.RecordProgressRequest{
		ContentID:         "content-7a",
		ClassAssignmentID: "asg-1",
		WatchPercentage:   80,
	})
	c.Params = gin.Params{{Key: "studentId", Value: "student-2"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent, InstitutionID: "inst-1"})

	h.RecordProgress(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
