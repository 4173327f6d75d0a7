package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateJobRequest_ToPatchNullableFields(t *testing.T) {
	due := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		body      string
		wantDue   *time.Time
		wantPrice *float64
		clearDue  bool
		clearCost bool
	}{
		{name: "absent", body: `{"title": "x"}`},
		{name: "set", body: `{"due_date": "2026-03-05T17:00:00Z", "price": 99.5}`, wantDue: &due, wantPrice: ptr(99.5)},
		{name: "explicit null", body: `{"due_date": null, "price": null}`, clearDue: true, clearCost: true},
		{name: "mixed", body: `{"due_date": null, "price": 10}`, wantPrice: ptr(10.0), clearDue: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateJobRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			p := req.ToPatch()
			assert.Equal(t, tt.clearDue, p.ClearDueDate)
			assert.Equal(t, tt.clearCost, p.ClearPrice)
			if tt.wantDue == nil {
				assert.Nil(t, p.DueDate)
			} else {
				require.NotNil(t, p.DueDate)
				assert.True(t, tt.wantDue.Equal(*p.DueDate))
			}
			if tt.wantPrice == nil {
				assert.Nil(t, p.Price)
			} else {
				require.NotNil(t, p.Price)
				assert.InDelta(t, *tt.wantPrice, *p.Price, 1e-9)
			}
		})
	}
}

func TestNullable_RejectsWrongType(t *testing.T) {
	var req UpdateJobRequest
	assert.Error(t, json.Unmarshal([]byte(`{"price": "free"}`), &req))
}

func ptr[T any](v T) *T { return &v }
