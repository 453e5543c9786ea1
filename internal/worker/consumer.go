package worker

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// jobTypeCSVProcessing is the queue attribute tagging CSV import messages
const jobTypeCSVProcessing = "csv_processing"

// setupConsumer configures QoS for one-at-a-time delivery and starts consuming
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		return nil, fmt.Errorf("rabbitmq channel is nil")
	}

	// prefetch 1 keeps the consumer strictly sequential; scaling out means
	// running more worker processes against the same queue
	err := channel.Qos(
		w.prefetchCount, // prefetch count
		0,               // prefetch size
		false,           // global
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := w.rabbitClient.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("worker_id", w.workerID),
		slog.String("queue", w.rabbitClient.QueueName()),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	return deliveries, nil
}

// decodeJobMessage parses and validates one queue delivery
func decodeJobMessage(delivery amqp.Delivery) (domain.JobMessage, error) {
	if jobType, ok := delivery.Headers["jobType"].(string); ok && jobType != jobTypeCSVProcessing {
		return domain.JobMessage{}, fmt.Errorf("%w: unexpected job type %q", domain.ErrMalformedMessage, jobType)
	}

	var msg domain.JobMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		return domain.JobMessage{}, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	if _, err := uuid.Parse(msg.JobID); err != nil {
		return domain.JobMessage{}, fmt.Errorf("%w: job id %q is not a UUID", domain.ErrMalformedMessage, msg.JobID)
	}

	if msg.StorageKey == "" {
		return domain.JobMessage{}, fmt.Errorf("%w: storage key is empty", domain.ErrMalformedMessage)
	}

	msg.DeliveryTag = delivery.DeliveryTag
	return msg, nil
}
