package domain

import (
	"fmt"
	"math"
	"time"
)

// GeoPoint is the device location reported with a status change
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks coordinate ranges. NaN and infinities are rejected.
func (p GeoPoint) Validate() error {
	if !finite(p.Latitude) || !finite(p.Longitude) {
		return fmt.Errorf("%w: coordinates must be finite numbers", ErrInvalidLocation)
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidLocation, p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidLocation, p.Longitude)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TransitionRecord is an immutable audit entry for one status change.
// PreviousStatus is nil for the implicit creation record.
type TransitionRecord struct {
	ID             int64      `json:"id"`
	JobID          int64      `json:"job_id"`
	ActorID        int64      `json:"actor_id"`
	PreviousStatus *JobStatus `json:"previous_status"`
	NewStatus      JobStatus  `json:"new_status"`
	Notes          *string    `json:"notes,omitempty"`
	Location       *GeoPoint  `json:"location,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
