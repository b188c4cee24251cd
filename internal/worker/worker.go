package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aurorasynth/aurora-backend/internal/provider"
	"github.com/aurorasynth/aurora-backend/internal/webhook"
	"github.com/aurorasynth/aurora-backend/internal/worker/domain"
	"github.com/aurorasynth/aurora-backend/internal/worker/storage"
	"github.com/aurorasynth/aurora-backend/shared/postgresql"
	"github.com/aurorasynth/aurora-backend/shared/rabbitmq"
	"github.com/google/uuid"
)

// JobStore is the subset of the storage layer the worker needs
type JobStore interface {
	ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error)
	MarkJobFailed(ctx context.Context, jobID, errorMsg string) error
}

// RenderDispatcher submits a claimed job to the compute provider
type RenderDispatcher interface {
	Dispatch(ctx context.Context, req *provider.DispatchRequest) error
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	DBClient      *postgresql.Client
	RabbitClient  *rabbitmq.Client
	Provider      *provider.Client
	Webhooks      *webhook.Dispatcher
	QueueName     string
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
}

// Worker consumes queued job messages, claims the rows, and hands them
// to the compute provider. Terminal outcomes arrive later through the
// provider's callback into the API service; the worker only records
// failures it causes itself (permanent provider rejections).
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	storage       JobStore
	provider      RenderDispatcher
	webhooks      *webhook.Dispatcher
	workerID      string
	queueName     string
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration
	jobsChan      chan *domain.JobMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}

	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		storage:       storage.NewStorage(cfg.DBClient.GetDB(), cfg.Logger),
		provider:      cfg.Provider,
		webhooks:      cfg.Webhooks,
		workerID:      fmt.Sprintf("worker-%s", uuid.New().String()[:8]),
		queueName:     cfg.QueueName,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		jobTimeout:    jobTimeout,
		jobsChan:      make(chan *domain.JobMessage, concurrency),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and dispatching jobs. It blocks until the
// context is canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
