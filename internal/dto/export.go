package dto

import (
	"time"

	"github.com/avesta-labs/lms-content-api/internal/models"
)

// RequestExportRequest asks for an unlock-audit export of one assignment.
type RequestExportRequest struct {
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse reports job state and, once done, the signed download URL.
type ExportJobResponse struct {
	Job         models.ExportJob `json:"job"`
	DownloadURL string           `json:"download_url,omitempty"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
}

// RecordProgressRequest upserts a student's watch progress.
type RecordProgressRequest struct {
	ContentID         string  `json:"content_id" validate:"required"`
	ClassAssignmentID string  `json:"class_assignment_id" validate:"required"`
	WatchPercentage   float64 `json:"watch_percentage" validate:"gte=0,lte=100"`
}
