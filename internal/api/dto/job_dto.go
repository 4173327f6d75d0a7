package dto

import (
	"encoding/json"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/jobs"
)

type CreateJobRequest struct {
	CustomerID  int64      `json:"customer_id" binding:"required"`
	AssigneeID  *int64     `json:"assignee_id"`
	RegionID    int64      `json:"region_id" binding:"required"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Materials   string     `json:"materials"`
	StartDate   time.Time  `json:"start_date" binding:"required"`
	DueDate     *time.Time `json:"due_date"`
	Price       *float64   `json:"price"`
	Attachments []string   `json:"attachments"`
}

// ToInput converts the request for jobs.Service.Create
func (r *CreateJobRequest) ToInput() jobs.CreateInput {
	return jobs.CreateInput{
		CustomerID:  r.CustomerID,
		AssigneeID:  r.AssigneeID,
		RegionID:    r.RegionID,
		Status:      domain.JobStatus(r.Status),
		Priority:    domain.Priority(r.Priority),
		Title:       r.Title,
		Description: r.Description,
		Materials:   r.Materials,
		StartDate:   r.StartDate,
		DueDate:     r.DueDate,
		Price:       r.Price,
		Attachments: r.Attachments,
	}
}

// Nullable tells an absent field apart from an explicit null
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Null reports whether the field was sent as null
func (n Nullable[T]) Null() bool {
	return n.Set && n.Value == nil
}

// UpdateJobRequest is a partial edit. Status is accepted by the decoder only
// so that it can be rejected explicitly. due_date and price may be sent as
// null to clear them.
type UpdateJobRequest struct {
	CustomerID  *int64              `json:"customer_id"`
	RegionID    *int64              `json:"region_id"`
	Priority    *string             `json:"priority"`
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Materials   *string             `json:"materials"`
	StartDate   *time.Time          `json:"start_date"`
	DueDate     Nullable[time.Time] `json:"due_date"`
	Price       Nullable[float64]   `json:"price"`
	Attachments []string            `json:"attachments"`
	Status      *string             `json:"status"`
}

// ToPatch converts the request for jobs.Service.Update
func (r *UpdateJobRequest) ToPatch() domain.JobPatch {
	p := domain.JobPatch{
		CustomerID:   r.CustomerID,
		RegionID:     r.RegionID,
		Title:        r.Title,
		Description:  r.Description,
		Materials:    r.Materials,
		StartDate:    r.StartDate,
		DueDate:      r.DueDate.Value,
		Price:        r.Price.Value,
		Attachments:  r.Attachments,
		ClearDueDate: r.DueDate.Null(),
		ClearPrice:   r.Price.Null(),
	}
	if r.Priority != nil {
		pr := domain.Priority(*r.Priority)
		p.Priority = &pr
	}
	return p
}

type UpdateStatusRequest struct {
	Status    string   `json:"status" binding:"required"`
	Notes     *string  `json:"notes"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type AssignJobRequest struct {
	// UserID 0 clears the assignee
	UserID *int64 `json:"user_id" binding:"required"`
}

type ListJobsRequest struct {
	Status     string `form:"status"`
	AssigneeID int64  `form:"assignee_id"`
	RegionID   int64  `form:"region_id"`
	CustomerID int64  `form:"customer_id"`
}

// ToFilter converts the query for jobs.Service.List
func (r *ListJobsRequest) ToFilter() domain.JobFilter {
	return domain.JobFilter{
		Status:     domain.JobStatus(r.Status),
		AssigneeID: r.AssigneeID,
		RegionID:   r.RegionID,
		CustomerID: r.CustomerID,
	}
}

type ListJobsResponse struct {
	Jobs  []domain.Job `json:"jobs"`
	Count int          `json:"count"`
}

type HistoryResponse struct {
	JobID       int64                     `json:"job_id"`
	Transitions []domain.TransitionRecord `json:"transitions"`
}

type StatusUpdateAcceptedResponse struct {
	MessageID string `json:"message_id"`
	JobID     int64  `json:"job_id"`
	Status    string `json:"status"`
}
