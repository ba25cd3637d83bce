package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avesta-labs/lms-content-api/internal/models"
)

// ExportJobRepository persists unlock-audit export jobs.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create stores a new pending export job.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportJobPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO export_jobs (id, assignment_id, format, status, file_path, error_msg, requested_by, created_at)
        VALUES (:id, :assignment_id, :format, :status, :file_path, :error_msg, :requested_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID returns one export job.
func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, assignment_id, format, status, file_path, error_msg, requested_by, created_at, completed_at
        FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatus transitions a job and records its result.
func (r *ExportJobRepository) UpdateStatus(ctx context.Context, id string, status models.ExportJobStatus, filePath, errorMsg string, completedAt *time.Time) error {
	const query = `UPDATE export_jobs SET status = $2, file_path = $3, error_msg = $4, completed_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, filePath, errorMsg, completedAt); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}
