package worker

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/leadforge/leadforge/internal/contact"
	"github.com/leadforge/leadforge/internal/worker/domain"
	"github.com/leadforge/leadforge/internal/worker/notify"
)

// errBadCSV marks a deterministic parse failure. Requeueing such a message
// would loop forever, so it is rejected to the dead-letter queue instead.
var errBadCSV = errors.New("unparseable CSV file")

// JobStore is the status-store surface used while processing one job
type JobStore interface {
	MarkProcessing(ctx context.Context, jobID string) error
	Complete(ctx context.Context, jobID string, result domain.ImportResult) error
	Fail(ctx context.Context, jobID, errorReport string) error
}

// LeadStore is the dedup bulk writer for validated rows
type LeadStore interface {
	BulkInsert(ctx context.Context, rows []contact.ContactRow) (int64, error)
}

// FileFetcher reads staged upload bytes back via a time-limited signed URL
type FileFetcher interface {
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
}

// Processor runs the download -> parse -> validate -> write -> status update
// pipeline for one queue message at a time
type Processor struct {
	jobs     JobStore
	leads    LeadStore
	files    FileFetcher
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewProcessor creates a new Processor instance
func NewProcessor(jobs JobStore, leads LeadStore, files FileFetcher, notifier notify.Notifier, logger *slog.Logger) *Processor {
	return &Processor{
		jobs:     jobs,
		leads:    leads,
		files:    files,
		notifier: notifier,
		logger:   logger,
	}
}

// Process handles a single job message end to end. A nil return means the
// message can be acknowledged; a RetryableError leaves it queued for
// redelivery. Processing is idempotent at the status-record level: a
// redelivered message overwrites the record with equivalent final values.
func (p *Processor) Process(ctx context.Context, msg domain.JobMessage) error {
	start := time.Now()

	p.logger.Info("Processing import job",
		slog.String("job_id", msg.JobID),
		slog.String("storage_key", msg.StorageKey),
	)

	if err := p.jobs.MarkProcessing(ctx, msg.JobID); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			// The message references a record that does not exist; there is
			// nothing to retry.
			return fmt.Errorf("job %s: %w", msg.JobID, err)
		}
		return domain.NewRetryableError(fmt.Errorf("failed to mark job %s processing: %w", msg.JobID, err))
	}

	reader, err := p.files.Fetch(ctx, msg.StorageKey)
	if err != nil {
		p.failJob(ctx, msg.JobID, fmt.Sprintf("failed to download staged file: %s", err))
		return domain.NewRetryableError(fmt.Errorf("failed to fetch %s: %w", msg.StorageKey, err))
	}
	defer reader.Close()

	validRows, validationErrors, err := parseAndValidate(reader)
	if err != nil {
		p.failJob(ctx, msg.JobID, fmt.Sprintf("failed to parse CSV file: %s", err))
		return fmt.Errorf("job %s: %w: %v", msg.JobID, errBadCSV, err)
	}

	inserted, err := p.leads.BulkInsert(ctx, validRows)
	if err != nil {
		p.failJob(ctx, msg.JobID, fmt.Sprintf("failed to write leads: %s", err))
		return domain.NewRetryableError(fmt.Errorf("failed to bulk insert for job %s: %w", msg.JobID, err))
	}

	result := domain.ImportResult{
		TotalRows:         len(validRows) + len(validationErrors),
		SuccessfulImports: int(inserted),
		FailedImports:     len(validationErrors),
		ValidationErrors:  validationErrors,
		ProcessingTimeMs:  time.Since(start).Milliseconds(),
	}

	if err := p.jobs.Complete(ctx, msg.JobID, result); err != nil {
		// Status write failed: keep the message queued so redelivery can
		// finish the job.
		return domain.NewRetryableError(fmt.Errorf("failed to complete job %s: %w", msg.JobID, err))
	}

	p.logger.Info("Import job processed",
		slog.String("job_id", msg.JobID),
		slog.Int("total_rows", result.TotalRows),
		slog.Int("successful_imports", result.SuccessfulImports),
		slog.Int("failed_imports", result.FailedImports),
		slog.Int64("processing_time_ms", result.ProcessingTimeMs),
	)

	p.notifyFinished(msg, domain.JobStatusCompleted, result)

	return nil
}

// failJob writes the failed status. If even that write fails the record is
// left untouched and redelivery is the sole recovery path.
func (p *Processor) failJob(ctx context.Context, jobID, report string) {
	if err := p.jobs.Fail(ctx, jobID, report); err != nil {
		p.logger.Error("Failed to mark job failed, leaving status untouched",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	p.notifyFinished(domain.JobMessage{JobID: jobID}, domain.JobStatusFailed, domain.ImportResult{})
}

// notifyFinished dispatches the notification detached from the pipeline;
// a delivery failure is logged and dropped
func (p *Processor) notifyFinished(msg domain.JobMessage, status string, result domain.ImportResult) {
	event := notify.ImportNotification{
		JobID:             msg.JobID,
		UploaderID:        msg.UploaderID,
		Status:            status,
		TotalRows:         result.TotalRows,
		SuccessfulImports: result.SuccessfulImports,
		FailedImports:     result.FailedImports,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.notifier.ImportFinished(ctx, event); err != nil {
			p.logger.Warn("Failed to deliver import notification",
				slog.String("job_id", event.JobID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// parseAndValidate stream-parses the CSV using the first row as the header and
// validates every data row. Row numbers are 1-based with the header excluded.
func parseAndValidate(r io.Reader) ([]contact.ContactRow, []contact.ValidationError, error) {
	reader := csv.NewReader(r)
	// ragged rows are handled per row by validation, not as a file-level error
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header row: %w", err)
	}

	fields := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		fields[i] = strings.ToLower(strings.TrimSpace(name))
	}

	var validRows []contact.ContactRow
	var validationErrors []contact.ValidationError

	rowNumber := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row %d: %w", rowNumber+1, err)
		}

		rowNumber++

		raw := make(map[string]string, len(fields))
		for i, name := range fields {
			if i < len(record) {
				raw[name] = record[i]
			}
		}

		row, verr := contact.Validate(rowNumber, raw)
		if verr != nil {
			validationErrors = append(validationErrors, *verr)
			continue
		}
		validRows = append(validRows, row)
	}

	return validRows, validationErrors, nil
}
