package domain

import (
	"fmt"
	"time"
)

// JobStatus is the operational state of a field-service job
type JobStatus string

// Job status constants
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusTraveling JobStatus = "traveling"
	JobStatusWorking   JobStatus = "working"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobStatuses lists every valid status in lifecycle order
var JobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusTraveling,
	JobStatusWorking,
	JobStatusCompleted,
	JobStatusCancelled,
}

var statusLabels = map[JobStatus]string{
	JobStatusPending:   "Pending",
	JobStatusTraveling: "Traveling",
	JobStatusWorking:   "Working",
	JobStatusCompleted: "Completed",
	JobStatusCancelled: "Cancelled",
}

// Valid reports whether s is one of the enumerated statuses
func (s JobStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human-readable form used in notifications
func (s JobStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseJobStatus validates a raw status value
func ParseJobStatus(raw string) (JobStatus, error) {
	s := JobStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Priority of a job
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Job represents a field-service work order
type Job struct {
	ID          int64      `json:"id"`
	CustomerID  int64      `json:"customer_id"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	RegionID    int64      `json:"region_id"`
	Status      JobStatus  `json:"status"`
	Priority    Priority   `json:"priority"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Materials   string     `json:"materials"`
	StartDate   time.Time  `json:"start_date"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	Attachments []string   `json:"attachments"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ApplyStatus sets the status and keeps completed_at consistent with it:
// stamped on entering completed, cleared on leaving it.
func (j *Job) ApplyStatus(status JobStatus, now time.Time) {
	j.Status = status
	if status == JobStatusCompleted {
		if j.CompletedAt == nil {
			t := now
			j.CompletedAt = &t
		}
	} else {
		j.CompletedAt = nil
	}
	j.UpdatedAt = now
}

// JobPatch carries a partial update of the non-status job fields.
// Nil fields are left untouched. ClearDueDate and ClearPrice set the
// optional columns back to null.
type JobPatch struct {
	CustomerID  *int64
	RegionID    *int64
	Priority    *Priority
	Title       *string
	Description *string
	Materials   *string
	StartDate   *time.Time
	DueDate     *time.Time
	Price       *float64
	Attachments []string

	ClearDueDate bool
	ClearPrice   bool
}

// Empty reports whether the patch changes nothing
func (p JobPatch) Empty() bool {
	return p.CustomerID == nil && p.RegionID == nil && p.Priority == nil &&
		p.Title == nil && p.Description == nil && p.Materials == nil &&
		p.StartDate == nil && p.DueDate == nil && p.Price == nil && p.Attachments == nil &&
		!p.ClearDueDate && !p.ClearPrice
}

// Merge applies the patch onto j. Status and completed_at are never touched.
func (p JobPatch) Merge(j *Job) {
	if p.CustomerID != nil {
		j.CustomerID = *p.CustomerID
	}
	if p.RegionID != nil {
		j.RegionID = *p.RegionID
	}
	if p.Priority != nil {
		j.Priority = *p.Priority
	}
	if p.Title != nil {
		j.Title = *p.Title
	}
	if p.Description != nil {
		j.Description = *p.Description
	}
	if p.Materials != nil {
		j.Materials = *p.Materials
	}
	if p.StartDate != nil {
		j.StartDate = *p.StartDate
	}
	if p.ClearDueDate {
		j.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		j.DueDate = &d
	}
	if p.ClearPrice {
		j.Price = nil
	} else if p.Price != nil {
		v := *p.Price
		j.Price = &v
	}
	if p.Attachments != nil {
		j.Attachments = append([]string(nil), p.Attachments...)
	}
}

// JobFilter narrows job listings. Zero values mean "any".
type JobFilter struct {
	Status     JobStatus
	AssigneeID int64
	RegionID   int64
	CustomerID int64
}

// Matches reports whether j satisfies the filter
func (f JobFilter) Matches(j *Job) bool {
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if f.AssigneeID != 0 && (j.AssigneeID == nil || *j.AssigneeID != f.AssigneeID) {
		return false
	}
	if f.RegionID != 0 && j.RegionID != f.RegionID {
		return false
	}
	if f.CustomerID != 0 && j.CustomerID != f.CustomerID {
		return false
	}
	return true
}

// Clone returns a deep copy of j
func (j *Job) Clone() *Job {
	cp := *j
	if j.AssigneeID != nil {
		v := *j.AssigneeID
		cp.AssigneeID = &v
	}
	if j.DueDate != nil {
		v := *j.DueDate
		cp.DueDate = &v
	}
	if j.CompletedAt != nil {
		v := *j.CompletedAt
		cp.CompletedAt = &v
	}
	if j.Price != nil {
		v := *j.Price
		cp.Price = &v
	}
	cp.Attachments = make([]string, len(j.Attachments))
	copy(cp.Attachments, j.Attachments)
	return &cp
}
