package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apidomain "github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/gateway"
	"github.com/lancerhub/marketplace-be/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case task, ok := <-w.tasksChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - tasksChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			err := w.processMessage(ctx, task)

			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
					slog.Uint64("delivery_tag", task.DeliveryTag),
				)
				continue
			}

			if err != nil {
				requeue := w.shouldRequeue(err)

				w.logger.Error("Message processing failed",
					slog.String("worker_name", workerName),
					slog.String("event_type", task.EventType),
					slog.Bool("requeue", requeue),
					slog.String("error", err.Error()),
				)

				if nackErr := channel.Nack(task.DeliveryTag, false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.String("error", nackErr.Error()),
					)
				}
			} else {
				if ackErr := channel.Ack(task.DeliveryTag, false); ackErr != nil {
					w.logger.Error("Failed to ACK message",
						slog.String("worker_name", workerName),
						slog.String("error", ackErr.Error()),
					)
				} else {
					w.logger.Info("Message processed",
						slog.String("worker_name", workerName),
						slog.String("event_type", task.EventType),
					)
				}
			}
		}
	}
}

// shouldRequeue decides whether a failed message goes back on the queue.
// Business outcomes (exhausted slots, duplicates, bad input) are final;
// only transient infrastructure failures are retried.
func (w *Worker) shouldRequeue(err error) bool {
	if errors.Is(err, apidomain.ErrSlotsExhausted) ||
		errors.Is(err, apidomain.ErrDuplicateProposal) ||
		errors.Is(err, domain.ErrUnknownEvent) ||
		errors.Is(err, domain.ErrInvalidPayload) {
		return false
	}

	// An unreachable gateway is transient.
	if gateway.IsUnavailable(err) {
		return true
	}

	var retryableErr *domain.RetryableError
	if errors.As(err, &retryableErr) {
		return true
	}

	return false
}
