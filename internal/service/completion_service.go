package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
)

// completionThreshold is the watch percentage at which content counts as
// completed.
const completionThreshold = 100

type completionWriter interface {
	Upsert(ctx context.Context, completion *models.Completion) error
}

type completionAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

// CompletionService records student watch progress. Progress is display-only
// state: it never feeds back into unlock decisions.
type CompletionService struct {
	repo        completionWriter
	assignments completionAssignmentReader
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCompletionService constructs CompletionService.
func NewCompletionService(repo completionWriter, assignments completionAssignmentReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CompletionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{repo: repo, assignments: assignments, cache: cache, validator: validate, logger: logger}
}

// RecordProgress upserts one (student, content) progress row. Only the owning
// student may write: actorID must equal studentID.
func (s *CompletionService) RecordProgress(ctx context.Context, actorID, studentID string, req dto.RecordProgressRequest) (*models.Completion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}
	if actorID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "progress can only be recorded by the owning student")
	}

	assignment, err := s.assignments.FindByID(ctx, req.ClassAssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class assignment")
	}

	completion := &models.Completion{
		StudentID:         studentID,
		ContentID:         req.ContentID,
		ClassAssignmentID: assignment.ID,
		WatchPercentage:   req.WatchPercentage,
	}
	if req.WatchPercentage >= completionThreshold {
		now := time.Now().UTC()
		completion.CompletedAt = &now
	}

	if err := s.repo.Upsert(ctx, completion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record progress")
	}

	// Cached student views embed the completion join.
	s.cache.Invalidate(ctx, fmt.Sprintf("%sstudent:*:%s", resolverCachePrefix, studentID))

	return completion, nil
}
