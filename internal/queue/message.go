// Package queue carries status updates from the API to the worker service
// over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/workflow"
	"github.com/cuongbtq/fieldops-be/shared/rabbitmq"
	"github.com/google/uuid"
)

// ContentType of published messages
const ContentType = "application/json"

// StatusUpdateMessage is a queued request to transition a job
type StatusUpdateMessage struct {
	MessageID   string    `json:"message_id"`
	JobID       int64     `json:"job_id"`
	Status      string    `json:"status"`
	ActorID     int64     `json:"actor_id"`
	Notes       *string   `json:"notes,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewStatusUpdate builds a message with a fresh id
func NewStatusUpdate(jobID, actorID int64, status string, notes *string, lat, lng *float64, at time.Time) *StatusUpdateMessage {
	return &StatusUpdateMessage{
		MessageID:   uuid.NewString(),
		JobID:       jobID,
		Status:      status,
		ActorID:     actorID,
		Notes:       notes,
		Latitude:    lat,
		Longitude:   lng,
		RequestedAt: at,
	}
}

// Decode parses a message body
func Decode(body []byte) (*StatusUpdateMessage, error) {
	var m StatusUpdateMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode status update: %w", err)
	}
	return &m, nil
}

// Request converts the message into an engine request. Latitude and
// longitude must be given together.
func (m *StatusUpdateMessage) Request() (workflow.TransitionRequest, error) {
	if m.JobID <= 0 {
		return workflow.TransitionRequest{}, domain.InvalidArgument("job_id must be positive")
	}
	if m.ActorID <= 0 {
		return workflow.TransitionRequest{}, domain.InvalidArgument("actor_id must be positive")
	}
	status, err := domain.ParseJobStatus(m.Status)
	if err != nil {
		return workflow.TransitionRequest{}, err
	}
	loc, err := GeoPoint(m.Latitude, m.Longitude)
	if err != nil {
		return workflow.TransitionRequest{}, err
	}

	return workflow.TransitionRequest{
		JobID:    m.JobID,
		Status:   status,
		ActorID:  m.ActorID,
		Notes:    m.Notes,
		Location: loc,
	}, nil
}

// GeoPoint pairs optional coordinates. Both or neither must be set.
func GeoPoint(lat, lng *float64) (*domain.GeoPoint, error) {
	switch {
	case lat == nil && lng == nil:
		return nil, nil
	case lat == nil || lng == nil:
		return nil, fmt.Errorf("%w: latitude and longitude must be given together", domain.ErrInvalidLocation)
	}
	p := &domain.GeoPoint{Latitude: *lat, Longitude: *lng}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Publisher enqueues status updates
type Publisher interface {
	PublishStatusUpdate(ctx context.Context, msg *StatusUpdateMessage) error
}

// RabbitPublisher publishes to the configured exchange with retries
type RabbitPublisher struct {
	client *rabbitmq.Client
}

// NewRabbitPublisher wraps a connected client
func NewRabbitPublisher(client *rabbitmq.Client) *RabbitPublisher {
	return &RabbitPublisher{client: client}
}

// PublishStatusUpdate serializes and publishes msg
func (p *RabbitPublisher) PublishStatusUpdate(ctx context.Context, msg *StatusUpdateMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode status update: %w", err)
	}
	return p.client.PublishWithRetry(ctx, body, ContentType)
}
