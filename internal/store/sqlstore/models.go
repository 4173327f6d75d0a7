package sqlstore

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
)

type jobRow struct {
	ID          int64           `db:"id"`
	CustomerID  int64           `db:"customer_id"`
	AssigneeID  sql.NullInt64   `db:"assignee_id"`
	RegionID    int64           `db:"region_id"`
	Status      string          `db:"status"`
	Priority    string          `db:"priority"`
	Title       string          `db:"title"`
	Description string          `db:"description"`
	Materials   string          `db:"materials"`
	StartDate   time.Time       `db:"start_date"`
	DueDate     sql.NullTime    `db:"due_date"`
	CompletedAt sql.NullTime    `db:"completed_at"`
	Price       sql.NullFloat64 `db:"price"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

const jobColumns = `id, customer_id, assignee_id, region_id, status, priority,
	title, description, materials, start_date, due_date, completed_at,
	price, created_at, updated_at`

func (r *jobRow) toDomain() *domain.Job {
	job := &domain.Job{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		RegionID:    r.RegionID,
		Status:      domain.JobStatus(r.Status),
		Priority:    domain.Priority(r.Priority),
		Title:       r.Title,
		Description: r.Description,
		Materials:   r.Materials,
		StartDate:   r.StartDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Attachments: []string{},
	}
	if r.AssigneeID.Valid {
		v := r.AssigneeID.Int64
		job.AssigneeID = &v
	}
	if r.DueDate.Valid {
		v := r.DueDate.Time
		job.DueDate = &v
	}
	if r.CompletedAt.Valid {
		v := r.CompletedAt.Time
		job.CompletedAt = &v
	}
	if r.Price.Valid {
		v := r.Price.Float64
		job.Price = &v
	}
	return job
}

type attachmentRow struct {
	JobID     int64  `db:"job_id"`
	Reference string `db:"reference"`
}

type transitionRow struct {
	ID             int64           `db:"id"`
	JobID          int64           `db:"job_id"`
	ActorID        int64           `db:"actor_id"`
	PreviousStatus sql.NullString  `db:"previous_status"`
	NewStatus      string          `db:"new_status"`
	Notes          sql.NullString  `db:"notes"`
	Latitude       sql.NullFloat64 `db:"latitude"`
	Longitude      sql.NullFloat64 `db:"longitude"`
	CreatedAt      time.Time       `db:"created_at"`
}

func (r *transitionRow) toDomain() domain.TransitionRecord {
	rec := domain.TransitionRecord{
		ID:        r.ID,
		JobID:     r.JobID,
		ActorID:   r.ActorID,
		NewStatus: domain.JobStatus(r.NewStatus),
		CreatedAt: r.CreatedAt,
	}
	if r.PreviousStatus.Valid {
		prev := domain.JobStatus(r.PreviousStatus.String)
		rec.PreviousStatus = &prev
	}
	if r.Notes.Valid {
		v := r.Notes.String
		rec.Notes = &v
	}
	if r.Latitude.Valid && r.Longitude.Valid {
		rec.Location = &domain.GeoPoint{
			Latitude:  r.Latitude.Float64,
			Longitude: r.Longitude.Float64,
		}
	}
	return rec
}

type notificationRow struct {
	ID          int64         `db:"id"`
	RecipientID int64         `db:"recipient_id"`
	JobID       sql.NullInt64 `db:"job_id"`
	Title       string        `db:"title"`
	Message     string        `db:"message"`
	Category    string        `db:"category"`
	Link        string        `db:"link"`
	ReadAt      sql.NullTime  `db:"read_at"`
	CreatedAt   time.Time     `db:"created_at"`
}

const notificationColumns = `id, recipient_id, job_id, title, message, category, link, read_at, created_at`

func (r *notificationRow) toDomain() domain.Notification {
	n := domain.Notification{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		Title:       r.Title,
		Message:     r.Message,
		Category:    r.Category,
		Link:        r.Link,
		CreatedAt:   r.CreatedAt,
	}
	if r.JobID.Valid {
		v := r.JobID.Int64
		n.JobID = &v
	}
	if r.ReadAt.Valid {
		v := r.ReadAt.Time
		n.ReadAt = &v
	}
	return n
}

type principalRow struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	Capabilities string    `db:"capabilities"`
	CreatedAt    time.Time `db:"created_at"`
}

const principalColumns = `id, name, email, role, capabilities, created_at`

func (r *principalRow) toDomain() (domain.Principal, error) {
	var names []string
	if r.Capabilities != "" {
		if err := json.Unmarshal([]byte(r.Capabilities), &names); err != nil {
			return domain.Principal{}, err
		}
	}
	caps := make([]domain.Capability, 0, len(names))
	for _, n := range names {
		caps = append(caps, domain.Capability(n))
	}
	return domain.Principal{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         domain.Role(r.Role),
		Capabilities: domain.NewCapabilitySet(caps...),
		CreatedAt:    r.CreatedAt,
	}, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
