package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// spawnWorkerPool spawns N goroutines based on concurrency configuration
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

// workerLoop processes tasks and acknowledges their deliveries
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Debug("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case t := <-w.tasks:
			w.handle(ctx, workerName, t)
		}
	}
}

func (w *Worker) handle(ctx context.Context, workerName string, t *task) {
	err := w.processUpdate(ctx, t)
	if err == nil {
		if ackErr := t.delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				slog.Int64("job_id", t.msg.JobID),
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	requeue := shouldRequeue(err)
	w.logger.Error("Status update failed",
		slog.String("worker_name", workerName),
		slog.Int64("job_id", t.msg.JobID),
		slog.String("message_id", t.msg.MessageID),
		slog.Bool("requeue", requeue),
		slog.String("error", err.Error()),
	)

	if nackErr := t.delivery.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_name", workerName),
			slog.Int64("job_id", t.msg.JobID),
			slog.String("error", nackErr.Error()),
		)
	}
}

// shouldRequeue only requeues transient failures on their first delivery
func shouldRequeue(err error) bool {
	if errors.Is(err, ErrMaxRetriesExceeded) || errors.Is(err, ErrInvalidPayload) {
		return false
	}

	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}
