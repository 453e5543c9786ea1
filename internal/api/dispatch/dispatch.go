package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/leadforge/leadforge/internal/api/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the queue-side surface the dispatcher needs
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string, headers amqp.Table) error
}

// JobMessage is the job descriptor serialized onto the queue
type JobMessage struct {
	JobID      string `json:"jobId"`
	StorageKey string `json:"storageKey"`
	UploaderID int64  `json:"uploaderId"`
}

// Dispatcher hands job descriptors to the message queue
type Dispatcher struct {
	queue  Publisher
	logger *slog.Logger
}

func NewDispatcher(queue Publisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:  queue,
		logger: logger,
	}
}

// DispatchCSVJob serializes the descriptor and publishes it with the
// csv_processing job type attribute
func (d *Dispatcher) DispatchCSVJob(ctx context.Context, msg JobMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}

	headers := amqp.Table{
		"jobType": domain.JobTypeCSVProcessing,
	}

	if err := d.queue.PublishWithRetry(ctx, body, "application/json", headers); err != nil {
		return fmt.Errorf("failed to dispatch job %s: %w", msg.JobID, err)
	}

	d.logger.Info("Import job dispatched",
		slog.String("job_id", msg.JobID),
		slog.String("storage_key", msg.StorageKey),
	)

	return nil
}
