package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/internal/worker/domain"
	"github.com/leadforge/leadforge/shared/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds worker configuration
type Config struct {
	Logger         *slog.Logger
	RabbitClient   *rabbitmq.Client
	Processor      *Processor
	PrefetchCount  int
	ConsumeBackoff time.Duration
}

// Worker is the long-lived queue consumer. It processes one message at a time;
// horizontal scaling means running more worker processes against the queue.
type Worker struct {
	logger         *slog.Logger
	rabbitClient   *rabbitmq.Client
	processor      *Processor
	prefetchCount  int
	consumeBackoff time.Duration
	workerID       string
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}

	backoff := cfg.ConsumeBackoff
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	return &Worker{
		logger:         cfg.Logger,
		rabbitClient:   cfg.RabbitClient,
		processor:      cfg.Processor,
		prefetchCount:  prefetch,
		consumeBackoff: backoff,
		workerID:       "csv-worker-" + uuid.New().String()[:8],
	}
}

// Start consumes and processes messages until the context is canceled.
// A failure to subscribe or a closed delivery channel triggers a bounded
// backoff and a fresh subscription rather than a crash.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Duration("consume_backoff", w.consumeBackoff),
	)

	for {
		if ctx.Err() != nil {
			w.logger.Info("Worker stopped - context canceled")
			return nil
		}

		deliveries, err := w.setupConsumer()
		if err != nil {
			w.logger.Error("Failed to start consuming, backing off",
				slog.String("error", err.Error()),
				slog.Duration("backoff", w.consumeBackoff),
			)
			if !w.sleep(ctx) {
				return nil
			}
			continue
		}

		if done := w.consumeLoop(ctx, deliveries); done {
			w.logger.Info("Worker stopped - context canceled")
			return nil
		}

		w.logger.Warn("Delivery channel closed, re-subscribing",
			slog.Duration("backoff", w.consumeBackoff),
		)
		if !w.sleep(ctx) {
			return nil
		}
	}
}

// consumeLoop processes deliveries sequentially. Returns true when the context
// was canceled, false when the channel closed and a re-subscribe is needed.
func (w *Worker) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			return true

		case delivery, ok := <-deliveries:
			if !ok {
				return false
			}
			w.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery runs one message through the processor and settles it.
// The message is acknowledged only after the terminal status write; shutdown
// does not abort an in-flight job.
func (w *Worker) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	msg, err := decodeJobMessage(delivery)
	if err != nil {
		w.logger.Error("Rejecting malformed message",
			slog.String("error", err.Error()),
			slog.String("body", string(delivery.Body)),
		)
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			w.logger.Error("Failed to NACK malformed message",
				slog.String("error", nackErr.Error()),
			)
		}
		return
	}

	err = w.processor.Process(context.WithoutCancel(ctx), msg)
	if err == nil {
		if ackErr := delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("job_id", msg.JobID),
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	requeue := shouldRequeue(err)
	w.logger.Error("Job processing failed",
		slog.String("job_id", msg.JobID),
		slog.String("error", err.Error()),
		slog.Bool("requeue", requeue),
	)

	if nackErr := delivery.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("job_id", msg.JobID),
			slog.String("error", nackErr.Error()),
		)
	}
}

// shouldRequeue keeps transient failures in the queue for redelivery;
// deterministic failures go to the dead-letter queue
func shouldRequeue(err error) bool {
	var retryable *domain.RetryableError
	return errors.As(err, &retryable)
}

// sleep waits out the consume backoff, returning false if the context was
// canceled first
func (w *Worker) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.consumeBackoff):
		return true
	}
}
