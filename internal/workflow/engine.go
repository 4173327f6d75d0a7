// Package workflow moves jobs through their lifecycle. A transition updates
// the job, appends one audit record and notifies every manager, all in one
// store transaction.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/store"
)

// NotificationTitle is the title of every status change notification
const NotificationTitle = "Job status updated"

// Config holds engine settings
type Config struct {
	Policy TransitionPolicy

	// LinkBase prefixes the job id in notification deep links
	LinkBase string

	Now    func() time.Time
	Logger *slog.Logger
}

// Engine applies status transitions
type Engine struct {
	store    store.Store
	policy   TransitionPolicy
	linkBase string
	now      func() time.Time
	logger   *slog.Logger
}

// NewEngine creates an engine over s
func NewEngine(s store.Store, cfg Config) *Engine {
	e := &Engine{
		store:    s,
		policy:   cfg.Policy,
		linkBase: strings.TrimRight(cfg.LinkBase, "/"),
		now:      cfg.Now,
		logger:   cfg.Logger,
	}
	if e.policy == nil {
		e.policy = Permissive{}
	}
	if e.linkBase == "" {
		e.linkBase = "/jobs"
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Policy returns the active transition policy
func (e *Engine) Policy() TransitionPolicy {
	return e.policy
}

// TransitionRequest asks for a job to move to Status on behalf of ActorID
type TransitionRequest struct {
	JobID    int64
	Status   domain.JobStatus
	ActorID  int64
	Notes    *string
	Location *domain.GeoPoint
}

// Validate checks the request fields that do not need storage
func (r *TransitionRequest) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("%w %q", domain.ErrInvalidStatus, r.Status)
	}
	if r.Location != nil {
		if err := r.Location.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Transition moves a job to the requested status. Either every effect is
// committed or none is.
func (e *Engine) Transition(ctx context.Context, req TransitionRequest) (*domain.Job, error) {
	var (
		updated  *domain.Job
		previous domain.JobStatus
		notified int
	)

	err := e.store.WithinTx(ctx, func(tx store.Tx) error {
		// Step 1: Lock the job and read its current status
		job, err := tx.Jobs().GetForUpdate(ctx, req.JobID)
		if err != nil {
			return err
		}
		previous = job.Status

		// Step 2: Validate request, actor and policy
		if err := req.Validate(); err != nil {
			return err
		}
		actor, err := tx.Directory().Get(ctx, req.ActorID)
		if err != nil {
			return err
		}
		if !e.policy.Allowed(previous, req.Status) {
			return fmt.Errorf("%w: %s -> %s under %s policy",
				domain.ErrTransitionNotAllowed, previous, req.Status, e.policy.Name())
		}

		// Step 3: Update status
		now := e.now()
		job.ApplyStatus(req.Status, now)
		if err := tx.Jobs().Update(ctx, job); err != nil {
			return err
		}

		// Step 4: Append audit record
		rec := &domain.TransitionRecord{
			JobID:          job.ID,
			ActorID:        actor.ID,
			PreviousStatus: &previous,
			NewStatus:      req.Status,
			Notes:          normalizeNotes(req.Notes),
			Location:       req.Location,
			CreatedAt:      now,
		}
		if _, err := tx.Audit().Append(ctx, rec); err != nil {
			return err
		}

		// Step 5: Notify managers
		notified, err = e.notifyManagers(ctx, tx, actor, job, now)
		if err != nil {
			return err
		}

		updated = job
		return nil
	})
	if err != nil {
		e.logger.Warn("Job transition failed",
			slog.Int64("job_id", req.JobID),
			slog.String("status", string(req.Status)),
			slog.Int64("actor_id", req.ActorID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	e.logger.Info("Job transitioned",
		slog.Int64("job_id", updated.ID),
		slog.String("from", string(previous)),
		slog.String("to", string(updated.Status)),
		slog.Int64("actor_id", req.ActorID),
		slog.Int("notified", notified),
	)

	return updated, nil
}

// notifyManagers creates one notification per manager. A directory failure
// aborts the transition.
func (e *Engine) notifyManagers(ctx context.Context, tx store.Tx, actor *domain.Principal, job *domain.Job, now time.Time) (int, error) {
	managers, err := tx.Directory().ListByRole(ctx, domain.RoleManager)
	if err != nil {
		return 0, domain.Internal("list managers", err)
	}

	message := StatusMessage(actor, job)
	link := e.JobLink(job.ID)
	jobID := job.ID

	for _, m := range managers {
		n := &domain.Notification{
			RecipientID: m.ID,
			JobID:       &jobID,
			Title:       NotificationTitle,
			Message:     message,
			Category:    domain.NotificationCategoryJobStatus,
			Link:        link,
			CreatedAt:   now,
		}
		if _, err := tx.Notifications().Create(ctx, n); err != nil {
			return 0, err
		}
	}
	return len(managers), nil
}

// JobLink returns the deep link for a job
func (e *Engine) JobLink(jobID int64) string {
	return fmt.Sprintf("%s/%d", e.linkBase, jobID)
}

// StatusMessage renders the notification body for a status change
func StatusMessage(actor *domain.Principal, job *domain.Job) string {
	return fmt.Sprintf("%s changed job #%d (%s) to %s", actor.Name, job.ID, job.Title, job.Status.Label())
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
