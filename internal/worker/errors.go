package worker

import (
	"errors"

	"github.com/cuongbtq/fieldops-be/internal/queue"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrInvalidPayload is returned when a message cannot be turned into a transition request
	ErrInvalidPayload = errors.New("invalid status update payload")

	// ErrMaxRetriesExceeded is returned when a redelivered message fails again
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// task is a decoded message waiting for a pool goroutine
type task struct {
	msg      *queue.StatusUpdateMessage
	delivery amqp.Delivery
}
