package dto

import (
	"time"

	"github.com/leadforge/leadforge/internal/api/model"
	"github.com/leadforge/leadforge/internal/contact"
)

// UploadResponse acknowledges a staged upload before any processing happens.
type UploadResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ImportJobDTO is the client-facing status shape of one import job.
type ImportJobDTO struct {
	ID                string                    `json:"id"`
	FileName          string                    `json:"file_name"`
	Status            string                    `json:"status"`
	TotalRows         int                       `json:"total_rows"`
	SuccessfulImports int                       `json:"successful_imports"`
	FailedImports     int                       `json:"failed_imports"`
	ValidationErrors  []contact.ValidationError `json:"validation_errors,omitempty"`
	ProcessingTimeMs  *int64                    `json:"processing_time_ms,omitempty"`
	CreatedAt         *string                   `json:"created_at,omitempty"`
	CompletedAt       *string                   `json:"completed_at,omitempty"`
}

// ListImportJobsResponse wraps the uploader's recent jobs, newest first.
type ListImportJobsResponse struct {
	Jobs []ImportJobDTO `json:"jobs"`
}

// FromModel maps a persisted import job to its client-facing shape.
func FromModel(job *model.ImportJob) ImportJobDTO {
	out := ImportJobDTO{
		ID:                job.ID,
		FileName:          job.FileName,
		Status:            job.Status,
		TotalRows:         job.TotalRows,
		SuccessfulImports: job.SuccessfulImports,
		FailedImports:     job.FailedImports,
		ValidationErrors:  job.ValidationErrors,
	}

	if job.ProcessingTimeMs.Valid {
		ms := job.ProcessingTimeMs.Int64
		out.ProcessingTimeMs = &ms
	}

	if !job.CreatedAt.IsZero() {
		created := job.CreatedAt.Format(time.RFC3339)
		out.CreatedAt = &created
	}

	if job.CompletedAt.Valid {
		completed := job.CompletedAt.Time.Format(time.RFC3339)
		out.CompletedAt = &completed
	}

	return out
}
