package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/fieldops-be/internal/domain"
)

// processUpdate applies one queued status change within the job timeout.
// Validation, missing ids and policy rejections are final. Storage failures
// are retried once through a requeue. A failure caused by the worker shutting
// down is always requeued and does not use up the retry.
func (w *Worker) processUpdate(ctx context.Context, t *task) error {
	req, err := t.msg.Request()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	job, err := w.engine.Transition(jobCtx, req)
	if err != nil {
		if !transient(err) {
			return err
		}
		if ctx.Err() != nil {
			return NewRetryableError(err)
		}
		if t.delivery.Redelivered {
			return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
		}
		return NewRetryableError(err)
	}

	w.logger.Info("Status update applied",
		slog.Int64("job_id", job.ID),
		slog.String("status", string(job.Status)),
		slog.String("message_id", t.msg.MessageID),
	)
	return nil
}

func transient(err error) bool {
	return errors.Is(err, domain.ErrInternal) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		!domain.IsKnownKind(err)
}
