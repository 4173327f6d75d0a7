// Package worker consumes queued status updates and applies them through the
// workflow engine.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/workflow"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultJobTimeout = 30 * time.Second

// ErrDeliveriesClosed is returned by Start when the broker closes the consumer
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Transitioner applies a status change
type Transitioner interface {
	Transition(ctx context.Context, req workflow.TransitionRequest) (*domain.Job, error)
}

// Source delivers queued messages. *rabbitmq.Client satisfies it.
type Source interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	Cancel(consumerTag string) error
}

// Config holds worker configuration
type Config struct {
	Logger      *slog.Logger
	Engine      Transitioner
	Source      Source
	QueueName   string
	Concurrency int
	JobTimeout  time.Duration
}

// Worker represents the background status update consumer
type Worker struct {
	logger      *slog.Logger
	engine      Transitioner
	source      Source
	queueName   string
	concurrency int
	jobTimeout  time.Duration
	workerID    string

	tasks    chan *task
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		logger:      logger,
		engine:      cfg.Engine,
		source:      cfg.Source,
		queueName:   cfg.QueueName,
		concurrency: concurrency,
		jobTimeout:  timeout,
		workerID:    uuid.NewString(),
		tasks:       make(chan *task, concurrency),
		stopChan:    make(chan struct{}),
	}
}

// ID returns the consumer tag used with the broker
func (w *Worker) ID() string {
	return w.workerID
}

// Start subscribes to the queue, spawns the pool and dispatches deliveries
// until ctx is cancelled or the broker closes the consumer.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	return w.dispatch(ctx, deliveries)
}

// Stop gracefully stops the worker and waits for in-flight updates
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		if err := w.source.Cancel(w.workerID); err != nil {
			w.logger.Warn("Failed to cancel consumer",
				slog.String("error", err.Error()),
			)
		}
		close(w.stopChan)
		w.wg.Wait()
		w.drainTasks()
		w.logger.Info("Worker stopped")
	})
}

// drainTasks requeues dispatched updates no pool goroutine picked up
func (w *Worker) drainTasks() {
	for {
		select {
		case t := <-w.tasks:
			w.requeue(t.delivery)
		default:
			return
		}
	}
}
