package models

import "time"

// ExportJobStatus tracks the lifecycle of an unlock-audit export job.
type ExportJobStatus string

const (
	ExportJobPending ExportJobStatus = "PENDING"
	ExportJobRunning ExportJobStatus = "RUNNING"
	ExportJobDone    ExportJobStatus = "DONE"
	ExportJobFailed  ExportJobStatus = "FAILED"
)

// ExportFormat selects the rendered artifact type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportJob is a persisted unlock-audit export request. The file is rendered
// asynchronously by the export worker and downloaded via a signed token.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	AssignmentID string          `db:"assignment_id" json:"assignment_id"`
	Format       ExportFormat    `db:"format" json:"format"`
	Status       ExportJobStatus `db:"status" json:"status"`
	FilePath     string          `db:"file_path" json:"-"`
	ErrorMsg     string          `db:"error_msg" json:"error,omitempty"`
	RequestedBy  string          `db:"requested_by" json:"requested_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	CompletedAt  *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}
