package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/leadforge/leadforge/internal/api/domain"
	"github.com/leadforge/leadforge/internal/api/model"
	"github.com/leadforge/leadforge/shared/postgresql"
)

const importJobColumns = `
	id, uploader_id, file_name, storage_key, status,
	total_rows, successful_imports, failed_imports,
	validation_errors, error_report, processing_time_ms,
	created_at, started_at, completed_at
`

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// CreateImportJob inserts a new job in pending state
func (s *Storage) CreateImportJob(ctx context.Context, job *model.ImportJob) error {
	query := `
		INSERT INTO import_jobs (
			id, uploader_id, file_name, storage_key,
			status, validation_errors, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.UploaderID,
		job.FileName,
		job.StorageKey,
		job.Status,
		job.ValidationErrors,
		job.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}

	return nil
}

// GetImportJobByID fetches the full job record or a not-found error
func (s *Storage) GetImportJobByID(ctx context.Context, jobID string) (*model.ImportJob, error) {
	var job model.ImportJob
	query := `SELECT ` + importJobColumns + ` FROM import_jobs WHERE id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrImportJobNotFound
		}
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}

	return &job, nil
}

// ListImportJobsByUploader returns the uploader's most recent jobs, newest first
func (s *Storage) ListImportJobsByUploader(ctx context.Context, uploaderID int64, limit int) ([]model.ImportJob, error) {
	query := `
		SELECT ` + importJobColumns + `
		FROM import_jobs
		WHERE uploader_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	var jobs []model.ImportJob
	err := s.db.SelectContext(ctx, &jobs, query, uploaderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}

	return jobs, nil
}
