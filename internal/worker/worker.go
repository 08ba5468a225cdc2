package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lancerhub/marketplace-be/internal/api/model"
	"github.com/lancerhub/marketplace-be/internal/worker/domain"
	"github.com/lancerhub/marketplace-be/shared/rabbitmq"
)

// SlotAllocator consumes one open slot on a job.
type SlotAllocator interface {
	AcceptSlot(ctx context.Context, jobID string) (*model.Job, error)
}

// ContractCreator opens an escrow contract for an accepted proposal.
type ContractCreator interface {
	CreateContract(ctx context.Context, contract *model.Contract) error
}

// PaymentSyncer reconciles a payment with the gateway.
type PaymentSyncer interface {
	Sync(ctx context.Context, paymentID string) (*model.Payment, error)
	RecoverOrphan(ctx context.Context, paymentID string) error
}

// Config holds worker configuration
type Config struct {
	Logger         *slog.Logger
	RabbitClient   *rabbitmq.Client
	Jobs           SlotAllocator
	Contracts      ContractCreator
	Payments       PaymentSyncer
	Concurrency    int
	PrefetchCount  int
	MessageTimeout time.Duration
}

// Worker consumes marketplace events from RabbitMQ and dispatches them to a
// pool of goroutines.
type Worker struct {
	logger         *slog.Logger
	rabbitClient   *rabbitmq.Client
	jobs           SlotAllocator
	contracts      ContractCreator
	payments       PaymentSyncer
	concurrency    int
	prefetchCount  int
	messageTimeout time.Duration
	workerID       string
	tasksChan      chan *domain.TaskMessage
	wg             sync.WaitGroup
	stopChan       chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}

	return &Worker{
		logger:         cfg.Logger,
		rabbitClient:   cfg.RabbitClient,
		jobs:           cfg.Jobs,
		contracts:      cfg.Contracts,
		payments:       cfg.Payments,
		concurrency:    concurrency,
		prefetchCount:  prefetch,
		messageTimeout: cfg.MessageTimeout,
		workerID:       fmt.Sprintf("marketplace-worker-%s", uuid.New().String()[:8]),
		tasksChan:      make(chan *domain.TaskMessage),
		stopChan:       make(chan struct{}),
	}
}

// Start subscribes to the queue, spawns the pool, and dispatches messages
// until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("message_timeout", w.messageTimeout),
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
