package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avesta-labs/lms-content-api/internal/dto"
	"github.com/avesta-labs/lms-content-api/internal/models"
	appErrors "github.com/avesta-labs/lms-content-api/pkg/errors"
	"github.com/avesta-labs/lms-content-api/pkg/export"
	"github.com/avesta-labs/lms-content-api/pkg/jobs"
	"github.com/avesta-labs/lms-content-api/pkg/storage"
)

const exportJobType = "unlock-audit"

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	UpdateStatus(ctx context.Context, id string, status models.ExportJobStatus, filePath, errorMsg string, completedAt *time.Time) error
}

type managementResolver interface {
	ResolveForManagement(ctx context.Context, scope models.Scope, assignmentID string) (*dto.ResolvedCourseView, error)
}

type exportEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// exportPayload travels through the job queue from request to worker.
type exportPayload struct {
	JobID        string
	AssignmentID string
	Scope        models.Scope
}

// ExportService renders unlock-audit files for assignments: the management
// view flattened into one row per content item, with lock annotations, as CSV
// or PDF. Rendering happens asynchronously; finished files are downloaded
// through signed tokens.
type ExportService struct {
	repo      exportJobRepository
	resolver  managementResolver
	queue     exportEnqueuer
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs ExportService. The queue is attached separately
// because its handler closes over the service.
func NewExportService(repo exportJobRepository, resolver managementResolver, store *storage.LocalStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:      repo,
		resolver:  resolver,
		store:     store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// AttachQueue wires the worker queue used for asynchronous rendering.
func (s *ExportService) AttachQueue(queue exportEnqueuer) {
	s.queue = queue
}

// RequestExport creates a PENDING job row and enqueues the rendering work.
func (s *ExportService) RequestExport(ctx context.Context, scope models.Scope, assignmentID, actorID string, req dto.RequestExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export worker not running")
	}

	job := &models.ExportJob{
		ID:           uuid.NewString(),
		AssignmentID: assignmentID,
		Format:       req.Format,
		Status:       models.ExportJobPending,
		RequestedBy:  actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	err := s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    exportJobType,
		Payload: exportPayload{JobID: job.ID, AssignmentID: assignmentID, Scope: scope},
	})
	if err != nil {
		now := time.Now().UTC()
		if updateErr := s.repo.UpdateStatus(ctx, job.ID, models.ExportJobFailed, "", "enqueue failed", &now); updateErr != nil {
			s.logger.Error("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// Process is the queue handler: it resolves the management view, renders the
// requested format and stores the file. Errors mark the job FAILED and are
// returned so the queue can retry.
func (s *ExportService) Process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}

	if err := s.repo.UpdateStatus(ctx, payload.JobID, models.ExportJobRunning, "", "", nil); err != nil {
		return fmt.Errorf("mark export job running: %w", err)
	}

	stored, err := s.repo.FindByID(ctx, payload.JobID)
	if err != nil {
		return s.fail(ctx, payload.JobID, fmt.Errorf("load export job: %w", err))
	}

	view, err := s.resolver.ResolveForManagement(ctx, payload.Scope, payload.AssignmentID)
	if err != nil {
		return s.fail(ctx, payload.JobID, fmt.Errorf("resolve management view: %w", err))
	}

	dataset := buildAuditDataset(view)
	var rendered []byte
	var extension string
	switch stored.Format {
	case models.ExportFormatPDF:
		rendered, err = s.pdf.Render(dataset, fmt.Sprintf("Unlock audit: %s", view.CourseTitle))
		extension = "pdf"
	default:
		rendered, err = s.csv.Render(dataset)
		extension = "csv"
	}
	if err != nil {
		return s.fail(ctx, payload.JobID, fmt.Errorf("render export: %w", err))
	}

	filename := fmt.Sprintf("audits/%s-%s.%s", payload.AssignmentID, payload.JobID, extension)
	relPath, err := s.store.Save(filename, rendered)
	if err != nil {
		return s.fail(ctx, payload.JobID, fmt.Errorf("store export: %w", err))
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, payload.JobID, models.ExportJobDone, relPath, "", &now); err != nil {
		return fmt.Errorf("mark export job done: %w", err)
	}
	s.logger.Info("export job completed",
		zap.String("job_id", payload.JobID),
		zap.String("assignment_id", payload.AssignmentID),
		zap.String("file", relPath))
	return nil
}

func (s *ExportService) fail(ctx context.Context, jobID string, cause error) error {
	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, jobID, models.ExportJobFailed, "", cause.Error(), &now); err != nil {
		s.logger.Error("failed to mark export job failed", zap.String("job_id", jobID), zap.Error(err))
	}
	return cause
}

// GetJob reports job status; finished jobs carry a signed download token.
func (s *ExportService) GetJob(ctx context.Context, jobID string) (*dto.ExportJobResponse, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}

	resp := &dto.ExportJobResponse{Job: *job}
	if job.Status == models.ExportJobDone && job.FilePath != "" {
		token, expiresAt, err := s.signer.Generate(job.ID, job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		resp.DownloadURL = token
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// Download validates a signed token and opens the stored file.
func (s *ExportService) Download(ctx context.Context, token string) (*os.File, *models.ExportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status != models.ExportJobDone || job.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export file not available")
	}

	file, err := s.store.Open(job.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return file, job, nil
}

// buildAuditDataset flattens a management view into one row per content item.
// Modules and sessions without content still emit a row so fully locked
// branches remain visible in the audit.
func buildAuditDataset(view *dto.ResolvedCourseView) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Module", "Module Unlocked", "Session", "Session Unlocked", "Unlock Mode", "Content", "Content Type"},
	}
	for _, module := range view.Modules {
		if len(module.Sessions) == 0 {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Module": module.Title, "Module Unlocked": strconv.FormatBool(module.IsUnlocked),
				"Session": "", "Session Unlocked": "",
				"Unlock Mode": string(module.UnlockMode), "Content": "", "Content Type": "",
			})
			continue
		}
		for _, session := range module.Sessions {
			if len(session.Content) == 0 {
				dataset.Rows = append(dataset.Rows, map[string]string{
					"Module": module.Title, "Module Unlocked": strconv.FormatBool(module.IsUnlocked),
					"Session": session.Title, "Session Unlocked": strconv.FormatBool(session.IsUnlocked),
					"Unlock Mode": string(session.UnlockMode), "Content": "", "Content Type": "",
				})
				continue
			}
			for _, item := range session.Content {
				dataset.Rows = append(dataset.Rows, map[string]string{
					"Module": module.Title, "Module Unlocked": strconv.FormatBool(module.IsUnlocked),
					"Session": session.Title, "Session Unlocked": strconv.FormatBool(session.IsUnlocked),
					"Unlock Mode": string(session.UnlockMode), "Content": item.Title, "Content Type": item.ContentType,
				})
			}
		}
	}
	return dataset
}
