package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
)

type mockCompletionRepo struct {
	upserts []models.Completion
}

func (m *mockCompletionRepo) Upsert(ctx context.Context, completion *models.Completion) error {
	m.upserts = append(m.upserts, *completion)
	return nil
}

type mockCompletionAssignments struct {
	assignments map[string]models.Assignment
}

func (m *mockCompletionAssignments) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &assignment, nil
}

func newCompletionFixture() (*CompletionService, *mockCompletionRepo) {
	repo := &mockCompletionRepo{}
	assignments := &mockCompletionAssignments{assignments: map[string]models.Assignment{
		"asg-1": {ID: "asg-1", ClassID: "class-7a", CourseID: "course-1"},
	}}
	return NewCompletionService(repo, assignments, nil, nil, nil), repo
}

func TestRecordProgressUpserts(t *testing.T) {
	svc, repo := newCompletionFixture()

	completion, err := svc.RecordProgress(context.Background(), "student-1", "student-1", dto.RecordProgressRequest{
		ContentID:         "content-7a",
		ClassAssignmentID: "asg-1",
		WatchPercentage:   42.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "student-1", completion.StudentID)
	assert.Equal(t, 42.5, completion.WatchPercentage)
	assert.Nil(t, completion.CompletedAt)
	require.Len(t, repo.upserts, 1)
}

func TestRecordProgressMarksCompletionAtFullWatch(t *testing.T) {
	svc, _ := newCompletionFixture()

	completion, err := svc.RecordProgress(context.Background(), "student-1", "student-1", dto.RecordProgressRequest{
		ContentID:         "content-7a",
		ClassAssignmentID: "asg-1",
		WatchPercentage:   100,
	})
	require.NoError(t, err)
	require.NotNil(t, completion.CompletedAt)
}

func TestRecordProgressOnlyOwnerWrites(t *testing.T) {
	svc, repo := newCompletionFixture()

	_, err := svc.RecordProgress(context.Background(), "student-2", "student-1", dto.RecordProgressRequest{
		ContentID:         "content-7a",
		ClassAssignmentID: "asg-1",
		WatchPercentage:   10,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	assert.Empty(t, repo.upserts)
}

func TestRecordProgressUnknownAssignment(t *testing.T) {
	svc, _ := newCompletionFixture()

	_, err := svc.RecordProgress(context.Background(), "student-1", "student-1", dto.RecordProgressRequest{
		ContentID:         "content-7a",
		ClassAssignmentID: "asg-missing",
		WatchPercentage:   10,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestRecordProgressRejectsOutOfRangePercentage(t *testing.T) {
	svc, _ := newCompletionFixture()

	_, err := svc.RecordProgress(context.Background(), "student-1", "student-1", dto.RecordProgressRequest{
		ContentID:         "content-7a",
		ClassAssignmentID: "asg-1",
		WatchPercentage:   120,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
