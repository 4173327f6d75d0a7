// Package jobs holds the job operations that sit beside the workflow engine:
// creation, metadata edits, assignment, deletion and read models.
package jobs

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/store"
)

// EditedNote marks audit records written for metadata edits
const EditedNote = "edited"

// Config holds service settings
type Config struct {
	// AuditMetadataEdits appends an "edited" record on every metadata update
	AuditMetadataEdits bool

	Now    func() time.Time
	Logger *slog.Logger
}

// Service manages job records
type Service struct {
	store      store.Store
	auditEdits bool
	now        func() time.Time
	logger     *slog.Logger
}

// NewService creates a job service
func NewService(s store.Store, cfg Config) *Service {
	svc := &Service{
		store:      s,
		auditEdits: cfg.AuditMetadataEdits,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// CreateInput carries the fields of a new job
type CreateInput struct {
	CustomerID  int64
	AssigneeID  *int64
	RegionID    int64
	Status      domain.JobStatus
	Priority    domain.Priority
	Title       string
	Description string
	Materials   string
	StartDate   time.Time
	DueDate     *time.Time
	Price       *float64
	Attachments []string
}

func (in *CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return domain.InvalidArgument("title is required")
	}
	if in.CustomerID <= 0 {
		return domain.InvalidArgument("customer_id is required")
	}
	if in.RegionID <= 0 {
		return domain.InvalidArgument("region_id is required")
	}
	if in.StartDate.IsZero() {
		return domain.InvalidArgument("start_date is required")
	}
	if in.Status != "" && !in.Status.Valid() {
		return domain.ErrInvalidStatus
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return domain.InvalidArgument("invalid priority %q", in.Priority)
	}
	if in.DueDate != nil && in.DueDate.Before(in.StartDate) {
		return domain.InvalidArgument("due_date must not be before start_date")
	}
	if in.Price != nil && *in.Price < 0 {
		return domain.InvalidArgument("price must not be negative")
	}
	return nil
}

// Create stores a new job together with its creation record
func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (*domain.Job, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	job := &domain.Job{
		CustomerID:  in.CustomerID,
		AssigneeID:  in.AssigneeID,
		RegionID:    in.RegionID,
		Priority:    in.Priority,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Materials:   in.Materials,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		Price:       in.Price,
		Attachments: append([]string{}, in.Attachments...),
		CreatedAt:   now,
	}
	if job.Priority == "" {
		job.Priority = domain.PriorityMedium
	}
	status := in.Status
	if status == "" {
		status = domain.JobStatusPending
	}
	job.ApplyStatus(status, now)

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		actor, err := tx.Directory().Get(ctx, actorID)
		if err != nil {
			return err
		}
		if job.AssigneeID != nil {
			if _, err := tx.Directory().Get(ctx, *job.AssigneeID); err != nil {
				return err
			}
		}

		if err := tx.Jobs().Create(ctx, job); err != nil {
			return err
		}

		_, err = tx.Audit().Append(ctx, &domain.TransitionRecord{
			JobID:     job.ID,
			ActorID:   actor.ID,
			NewStatus: job.Status,
			CreatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Job created",
		slog.Int64("job_id", job.ID),
		slog.String("status", string(job.Status)),
		slog.Int64("actor_id", actorID),
	)
	return job, nil
}

func validatePatch(p domain.JobPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return domain.InvalidArgument("title must not be empty")
	}
	if p.CustomerID != nil && *p.CustomerID <= 0 {
		return domain.InvalidArgument("customer_id must be positive")
	}
	if p.RegionID != nil && *p.RegionID <= 0 {
		return domain.InvalidArgument("region_id must be positive")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return domain.InvalidArgument("invalid priority %q", *p.Priority)
	}
	if p.Price != nil && *p.Price < 0 {
		return domain.InvalidArgument("price must not be negative")
	}
	if p.ClearDueDate && p.DueDate != nil {
		return domain.InvalidArgument("due_date cannot be both set and cleared")
	}
	if p.ClearPrice && p.Price != nil {
		return domain.InvalidArgument("price cannot be both set and cleared")
	}
	return nil
}

// Update merges a partial edit of non-status fields. Status and completed_at
// are left as they are.
func (s *Service) Update(ctx context.Context, id int64, patch domain.JobPatch, actorID int64) (*domain.Job, error) {
	if patch.Empty() {
		return nil, domain.InvalidArgument("no fields to update")
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var updated *domain.Job
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		job, err := tx.Jobs().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		actor, err := tx.Directory().Get(ctx, actorID)
		if err != nil {
			return err
		}

		now := s.now()
		patch.Merge(job)
		if job.DueDate != nil && job.DueDate.Before(job.StartDate) {
			return domain.InvalidArgument("due_date must not be before start_date")
		}
		job.UpdatedAt = now
		if err := tx.Jobs().Update(ctx, job); err != nil {
			return err
		}

		if s.auditEdits {
			note := EditedNote
			_, err := tx.Audit().Append(ctx, &domain.TransitionRecord{
				JobID:     job.ID,
				ActorID:   actor.ID,
				NewStatus: job.Status,
				Notes:     &note,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
		}

		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Job updated",
		slog.Int64("job_id", id),
		slog.Int64("actor_id", actorID),
	)
	return updated, nil
}

// Assign sets or, with assigneeID 0, clears the assignee. It is a metadata
// change and writes no audit record.
func (s *Service) Assign(ctx context.Context, id, assigneeID int64) (*domain.Job, error) {
	if assigneeID < 0 {
		return nil, domain.InvalidArgument("user_id must not be negative")
	}

	var updated *domain.Job
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		job, err := tx.Jobs().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if assigneeID == 0 {
			job.AssigneeID = nil
		} else {
			assignee, err := tx.Directory().Get(ctx, assigneeID)
			if err != nil {
				return err
			}
			job.AssigneeID = &assignee.ID
		}

		job.UpdatedAt = s.now()
		if err := tx.Jobs().Update(ctx, job); err != nil {
			return err
		}
		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Job assigned",
		slog.Int64("job_id", id),
		slog.Int64("assignee_id", assigneeID),
	)
	return updated, nil
}

// Delete removes a job with its attachments, transitions and notifications
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Jobs().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Job deleted", slog.Int64("job_id", id))
	return nil
}

// Get returns one job
func (s *Service) Get(ctx context.Context, id int64) (*domain.Job, error) {
	return s.store.Jobs().Get(ctx, id)
}

// List returns jobs matching filter, newest first
func (s *Service) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.store.Jobs().List(ctx, filter)
}

// History returns the audit trail of a job in creation order
func (s *Service) History(ctx context.Context, id int64) ([]domain.TransitionRecord, error) {
	if _, err := s.store.Jobs().Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Audit().ListByJob(ctx, id)
}

// Summary counts jobs per status
type Summary struct {
	Total    int                      `json:"total"`
	ByStatus map[domain.JobStatus]int `json:"by_status"`
}

// Summary returns job counts for the dashboard. Every status is present.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	counts, err := s.store.Jobs().CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	sum := &Summary{ByStatus: make(map[domain.JobStatus]int, len(domain.JobStatuses))}
	for _, st := range domain.JobStatuses {
		sum.ByStatus[st] = counts[st]
		sum.Total += counts[st]
	}
	return sum, nil
}
