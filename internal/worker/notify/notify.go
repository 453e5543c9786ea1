package notify

import (
	"context"
	"log/slog"
)

// ImportNotification summarizes a finished import for the uploading user
type ImportNotification struct {
	JobID             string
	UploaderID        int64
	Status            string
	TotalRows         int
	SuccessfulImports int
	FailedImports     int
}

// Notifier delivers an import-finished event. Delivery is fire-and-forget:
// callers run it detached and a failure never affects the job outcome.
type Notifier interface {
	ImportFinished(ctx context.Context, n ImportNotification) error
}

// LogNotifier records the event in the service log. The actual outbound
// channel (SMS, pub/sub) is owned by a separate delivery service that tails
// these events.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ImportFinished(ctx context.Context, event ImportNotification) error {
	n.logger.Info("Import finished notification",
		slog.String("job_id", event.JobID),
		slog.Int64("uploader_id", event.UploaderID),
		slog.String("status", event.Status),
		slog.Int("total_rows", event.TotalRows),
		slog.Int("successful_imports", event.SuccessfulImports),
		slog.Int("failed_imports", event.FailedImports),
	)
	return nil
}
