package handler

import (
	"context"
	"log/slog"

	"github.com/leadforge/leadforge/internal/api/dispatch"
	"github.com/leadforge/leadforge/internal/api/model"
)

// JobStore is the status-store surface used by the API handlers
type JobStore interface {
	CreateImportJob(ctx context.Context, job *model.ImportJob) error
	GetImportJobByID(ctx context.Context, jobID string) (*model.ImportJob, error)
	ListImportJobsByUploader(ctx context.Context, uploaderID int64, limit int) ([]model.ImportJob, error)
}

// BlobStore stages raw upload bytes in durable object storage
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// JobDispatcher hands a job descriptor to the queue
type JobDispatcher interface {
	DispatchCSVJob(ctx context.Context, msg dispatch.JobMessage) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger         *slog.Logger
	Store          JobStore
	Blobs          BlobStore
	Dispatcher     JobDispatcher
	KeyPrefix      string
	MaxUploadBytes int64
}

// ImportHandler handles CSV import HTTP requests
type ImportHandler struct {
	logger         *slog.Logger
	store          JobStore
	blobs          BlobStore
	dispatcher     JobDispatcher
	keyPrefix      string
	maxUploadBytes int64
}

// NewImportHandler creates a new ImportHandler instance
func NewImportHandler(deps *Dependencies) *ImportHandler {
	return &ImportHandler{
		logger:         deps.Logger,
		store:          deps.Store,
		blobs:          deps.Blobs,
		dispatcher:     deps.Dispatcher,
		keyPrefix:      deps.KeyPrefix,
		maxUploadBytes: deps.MaxUploadBytes,
	}
}
