package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avesta-labs/lms-content-api/internal/models"
)

// CompletionRepository persists student watch progress. The resolver only
// reads from it; writes come exclusively from the owning student's progress
// upserts.
type CompletionRepository struct {
	db *sqlx.DB
}

// NewCompletionRepository constructs the repository.
func NewCompletionRepository(db *sqlx.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// Upsert inserts or updates the completion row keyed (student_id, content_id).
func (r *CompletionRepository) Upsert(ctx context.Context, completion *models.Completion) error {
	if completion.ID == "" {
		completion.ID = uuid.NewString()
	}
	completion.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO completions (id, student_id, content_id, class_assignment_id, watch_percentage, completed_at, updated_at)
        VALUES (:id, :student_id, :content_id, :class_assignment_id, :watch_percentage, :completed_at, :updated_at)
        ON CONFLICT (student_id, content_id) DO UPDATE SET
            watch_percentage = EXCLUDED.watch_percentage,
            completed_at = EXCLUDED.completed_at,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, completion); err != nil {
		return fmt.Errorf("upsert completion: %w", err)
	}
	return nil
}

// ListByStudentAndContentIDs returns the student's completions for the given
// content ids, fetched in chunks.
func (r *CompletionRepository) ListByStudentAndContentIDs(ctx context.Context, studentID string, contentIDs []string) ([]models.Completion, error) {
	var completions []models.Completion
	for start := 0; start < len(contentIDs); start += catalogChunkSize {
		end := start + catalogChunkSize
		if end > len(contentIDs) {
			end = len(contentIDs)
		}
		chunk := contentIDs[start:end]
		placeholders := make([]string, len(chunk))
		args := []interface{}{studentID}
		for i, id := range chunk {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, id)
		}
		query := fmt.Sprintf(`SELECT id, student_id, content_id, class_assignment_id, watch_percentage, completed_at, updated_at
        FROM completions WHERE student_id = $1 AND content_id IN (%s)`, strings.Join(placeholders, ","))
		var part []models.Completion
		if err := r.db.SelectContext(ctx, &part, query, args...); err != nil {
			return nil, fmt.Errorf("list completions chunk: %w", err)
		}
		completions = append(completions, part...)
	}
	return completions, nil
}
