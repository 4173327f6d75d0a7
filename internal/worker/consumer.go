package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/fieldops-be/internal/queue"
	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer starts consuming with the worker id as consumer tag
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.source.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.String("queue", w.queueName),
	)

	return deliveries, nil
}

// dispatch decodes deliveries and hands them to the pool. Malformed messages
// are rejected without requeue so they land in the dead-letter queue.
func (w *Worker) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return nil

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - worker stopping")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return ErrDeliveriesClosed
			}

			msg, err := queue.Decode(delivery.Body)
			if err != nil {
				w.logger.Error("Failed to parse message JSON",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			select {
			case w.tasks <- &task{msg: msg, delivery: delivery}:
				w.logger.Debug("Status update dispatched to worker pool",
					slog.Int64("job_id", msg.JobID),
					slog.String("message_id", msg.MessageID),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching")
				w.requeue(delivery)
				return nil
			case <-w.stopChan:
				w.logger.Info("Message dispatcher stopped while dispatching")
				w.requeue(delivery)
				return nil
			}
		}
	}
}

// requeue hands a delivery that was never processed back to the broker
func (w *Worker) requeue(delivery amqp.Delivery) {
	if nackErr := delivery.Nack(false, true); nackErr != nil {
		w.logger.Error("Failed to NACK message on shutdown",
			slog.String("error", nackErr.Error()),
		)
	}
}
