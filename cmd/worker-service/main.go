package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/leadforge/leadforge/internal/api/dispatch"
	"github.com/leadforge/leadforge/internal/config"
	"github.com/leadforge/leadforge/internal/worker"
	"github.com/leadforge/leadforge/internal/worker/notify"
	"github.com/leadforge/leadforge/internal/worker/storage"
	"github.com/leadforge/leadforge/internal/worker/sweeper"
	"github.com/leadforge/leadforge/shared/logger"
	"github.com/leadforge/leadforge/shared/objectstore"
	"github.com/leadforge/leadforge/shared/postgresql"
	"github.com/leadforge/leadforge/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorker(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	rabbitClient, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.RabbitMQ.Host,
		Port:               cfg.RabbitMQ.Port,
		User:               cfg.RabbitMQ.User,
		Password:           cfg.RabbitMQ.Password,
		VHost:              cfg.RabbitMQ.VHost,
		ExchangeName:       cfg.RabbitMQ.Exchange.Name,
		ExchangeType:       cfg.RabbitMQ.Exchange.Type,
		ExchangeDurable:    cfg.RabbitMQ.Exchange.Durable,
		ExchangeAutoDelete: cfg.RabbitMQ.Exchange.AutoDelete,
		QueueName:          cfg.RabbitMQ.Queue.Name,
		QueueDurable:       cfg.RabbitMQ.Queue.Durable,
		QueueAutoDelete:    cfg.RabbitMQ.Queue.AutoDelete,
		QueueExclusive:     cfg.RabbitMQ.Queue.Exclusive,
		RoutingKey:         cfg.RabbitMQ.RoutingKey,
		RetryAttempts:      cfg.RabbitMQ.Connection.RetryAttempts,
		RetryInterval:      cfg.RabbitMQ.Connection.RetryInterval,
		Heartbeat:          cfg.RabbitMQ.Connection.Heartbeat,
		ConnectionTimeout:  cfg.RabbitMQ.Connection.ConnectionTimeout,
		PublishRetries:     cfg.RabbitMQ.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.RabbitMQ.Publish.RetryInterval,
		PublishBackoffMult: cfg.RabbitMQ.Publish.BackoffMultiplier,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	blobClient, err := objectstore.NewClient(context.Background(), &objectstore.Config{
		BucketURL:    cfg.Storage.BucketURL,
		SignedURLTTL: cfg.Storage.SignedURLTTL,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	appLogger.Info("Object storage bucket ready")

	db := dbClient.GetDB()
	jobStore := storage.NewJobStore(db, appLogger.Logger)
	leadStore := storage.NewLeadStore(db, appLogger.Logger)
	notifier := notify.NewLogNotifier(appLogger.Logger)

	processor := worker.NewProcessor(jobStore, leadStore, blobClient, notifier, appLogger.Logger)

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:         appLogger.Logger,
		RabbitClient:   rabbitClient,
		Processor:      processor,
		PrefetchCount:  cfg.RabbitMQ.Consumer.PrefetchCount,
		ConsumeBackoff: cfg.Worker.ConsumeBackoff,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stuckSweeper *sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		dispatcher := dispatch.NewDispatcher(rabbitClient, appLogger.Logger)
		stuckSweeper, err = sweeper.New(sweeper.Config{
			Schedule:   cfg.Sweeper.Schedule,
			StuckAfter: cfg.Sweeper.StuckAfter,
			BatchSize:  cfg.Sweeper.BatchSize,
		}, jobStore, dispatcher, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize sweeper: %w", err)
		}
		stuckSweeper.Start()
	}

	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Stop accepting new deliveries; an in-flight job is not aborted
	cancel()

	if stuckSweeper != nil {
		stuckSweeper.Stop()
	}

	shutdownTimeout := cfg.Worker.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	time.Sleep(min(shutdownTimeout, 2*time.Second))

	blobClient.Close()
	rabbitClient.Close()
	dbClient.Close()

	appLogger.Info("Worker service shutdown complete")
	return nil
}
