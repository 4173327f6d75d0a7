package queue

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestStatusUpdateMessage_RoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	msg := NewStatusUpdate(42, 7, "traveling", ptr("leaving depot"), ptr(52.5), ptr(13.4), at)

	_, err := uuid.Parse(msg.MessageID)
	require.NoError(t, err)

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, msg.MessageID, decoded.MessageID)

	req, err := decoded.Request()
	require.NoError(t, err)
	assert.Equal(t, int64(42), req.JobID)
	assert.Equal(t, int64(7), req.ActorID)
	assert.Equal(t, domain.JobStatusTraveling, req.Status)
	require.NotNil(t, req.Notes)
	assert.Equal(t, "leaving depot", *req.Notes)
	require.NotNil(t, req.Location)
	assert.Equal(t, 52.5, req.Location.Latitude)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"job_id": "forty-two"`))
	assert.Error(t, err)
}

func TestStatusUpdateMessage_Request(t *testing.T) {
	tests := []struct {
		name string
		msg  StatusUpdateMessage
		want error
	}{
		{name: "missing job", msg: StatusUpdateMessage{Status: "working", ActorID: 1}, want: domain.ErrInvalidArgument},
		{name: "missing actor", msg: StatusUpdateMessage{JobID: 1, Status: "working"}, want: domain.ErrInvalidArgument},
		{name: "bad status", msg: StatusUpdateMessage{JobID: 1, ActorID: 1, Status: "done"}, want: domain.ErrInvalidStatus},
		{name: "half location", msg: StatusUpdateMessage{JobID: 1, ActorID: 1, Status: "working", Latitude: ptr(1.0)}, want: domain.ErrInvalidLocation},
		{name: "out of range", msg: StatusUpdateMessage{JobID: 1, ActorID: 1, Status: "working", Latitude: ptr(1.0), Longitude: ptr(200.0)}, want: domain.ErrInvalidLocation},
		{name: "NaN latitude", msg: StatusUpdateMessage{JobID: 1, ActorID: 1, Status: "working", Latitude: ptr(math.NaN()), Longitude: ptr(2.0)}, want: domain.ErrInvalidLocation},
		{name: "infinite longitude", msg: StatusUpdateMessage{JobID: 1, ActorID: 1, Status: "working", Latitude: ptr(1.0), Longitude: ptr(math.Inf(1))}, want: domain.ErrInvalidLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.msg.Request()
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}
