package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/leadforge/leadforge/internal/api/dispatch"
	"github.com/leadforge/leadforge/internal/worker/domain"
	"github.com/robfig/cron/v3"
)

// JobStore finds jobs abandoned in processing, e.g. after a worker crash
type JobStore interface {
	FindStuckJobs(ctx context.Context, stuckAfter time.Duration, limit int) ([]domain.StuckJob, error)
}

// Dispatcher re-publishes a job descriptor onto the queue
type Dispatcher interface {
	DispatchCSVJob(ctx context.Context, msg dispatch.JobMessage) error
}

// Config holds sweeper settings
type Config struct {
	Schedule   string
	StuckAfter time.Duration
	BatchSize  int
}

// Sweeper periodically re-dispatches jobs stuck in processing. A crashed
// worker leaves its job in processing forever; re-running the pipeline is safe
// because terminal status writes are idempotent overwrites.
type Sweeper struct {
	cron       *cron.Cron
	store      JobStore
	dispatcher Dispatcher
	stuckAfter time.Duration
	batchSize  int
	logger     *slog.Logger
}

// New creates a sweeper scheduled by the given cron expression
func New(cfg Config, store JobStore, dispatcher Dispatcher, logger *slog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:       cron.New(),
		store:      store,
		dispatcher: dispatcher,
		stuckAfter: cfg.StuckAfter,
		batchSize:  cfg.BatchSize,
		logger:     logger,
	}

	if _, err := s.cron.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins the sweep schedule
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("Stuck-job sweeper started",
		slog.Duration("stuck_after", s.stuckAfter),
		slog.Int("batch_size", s.batchSize),
	)
}

// Stop halts the schedule, waiting for a running sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep re-dispatches one bounded batch of stuck jobs
func (s *Sweeper) Sweep(ctx context.Context) {
	jobs, err := s.store.FindStuckJobs(ctx, s.stuckAfter, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to find stuck jobs",
			slog.String("error", err.Error()),
		)
		return
	}

	if len(jobs) == 0 {
		return
	}

	s.logger.Warn("Re-dispatching stuck import jobs",
		slog.Int("count", len(jobs)),
		slog.Duration("stuck_after", s.stuckAfter),
	)

	for _, job := range jobs {
		msg := dispatch.JobMessage{
			JobID:      job.JobID,
			StorageKey: job.StorageKey,
			UploaderID: job.UploaderID,
		}
		if err := s.dispatcher.DispatchCSVJob(ctx, msg); err != nil {
			s.logger.Error("Failed to re-dispatch stuck job",
				slog.String("job_id", job.JobID),
				slog.String("error", err.Error()),
			)
		}
	}
}
