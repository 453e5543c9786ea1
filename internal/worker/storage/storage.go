package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/leadforge/leadforge/internal/worker/domain"
)

// JobStore handles import job status updates for the worker
type JobStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewJobStore creates a new JobStore instance
func NewJobStore(db *sqlx.DB, logger *slog.Logger) *JobStore {
	return &JobStore{
		db:     db,
		logger: logger,
	}
}

// MarkProcessing moves the job to processing and stamps started_at. The update
// is an unconditional overwrite so a redelivered message can re-run a job that
// already reached a terminal state.
func (s *JobStore) MarkProcessing(ctx context.Context, jobID string) error {
	query := `
		UPDATE import_jobs
		SET status = $1,
		    started_at = NOW()
		WHERE id = $2
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusProcessing, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Info("Import job marked processing",
		slog.String("job_id", jobID),
	)

	return nil
}

// Complete overwrites the job with its final counters and marks it completed
func (s *JobStore) Complete(ctx context.Context, jobID string, result domain.ImportResult) error {
	validationErrors, err := json.Marshal(result.ValidationErrors)
	if err != nil {
		return fmt.Errorf("failed to marshal validation errors: %w", err)
	}

	query := `
		UPDATE import_jobs
		SET status = $1,
		    total_rows = $2,
		    successful_imports = $3,
		    failed_imports = $4,
		    validation_errors = $5,
		    processing_time_ms = $6,
		    error_report = NULL,
		    completed_at = NOW()
		WHERE id = $7
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		domain.JobStatusCompleted,
		result.TotalRows,
		result.SuccessfulImports,
		result.FailedImports,
		validationErrors,
		result.ProcessingTimeMs,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	s.logger.Info("Import job completed",
		slog.String("job_id", jobID),
		slog.Int("total_rows", result.TotalRows),
		slog.Int("successful_imports", result.SuccessfulImports),
		slog.Int("failed_imports", result.FailedImports),
	)

	return nil
}

// Fail marks the job failed with a cause and stamps completed_at
func (s *JobStore) Fail(ctx context.Context, jobID, errorReport string) error {
	query := `
		UPDATE import_jobs
		SET status = $1,
		    error_report = $2,
		    completed_at = NOW()
		WHERE id = $3
	`

	_, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorReport, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	s.logger.Warn("Import job failed",
		slog.String("job_id", jobID),
		slog.String("error_report", errorReport),
	)

	return nil
}

// FindStuckJobs returns jobs left in processing longer than the threshold,
// oldest first, bounded by limit
func (s *JobStore) FindStuckJobs(ctx context.Context, stuckAfter time.Duration, limit int) ([]domain.StuckJob, error) {
	query := `
		SELECT id, storage_key, uploader_id
		FROM import_jobs
		WHERE status = $1
		  AND started_at < NOW() - $2::interval
		ORDER BY started_at ASC
		LIMIT $3
	`

	interval := fmt.Sprintf("%d seconds", int(stuckAfter.Seconds()))

	var jobs []domain.StuckJob
	err := s.db.SelectContext(ctx, &jobs, query, domain.JobStatusProcessing, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find stuck jobs: %w", err)
	}

	return jobs, nil
}
