package domain

import (
	"errors"
)

// Import job lifecycle. Single forward path, no transition back to pending:
// pending -> processing -> completed | failed.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobTypeCSVProcessing tags queue messages produced by the CSV uploader.
const JobTypeCSVProcessing = "csv_processing"

var (
	ErrImportJobNotFound = errors.New("import job not found")
)
