package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
)

type jobRepo struct {
	s *Store
	t *txn
}

func (r *jobRepo) Get(ctx context.Context, id int64) (*domain.Job, error) {
	var out *domain.Job
	err := r.s.run(ctx, r.t, func(t *txn) error {
		j, ok := t.job(id)
		if !ok {
			return domain.ErrJobNotFound
		}
		out = j
		return nil
	})
	return out, err
}

func (r *jobRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Job, error) {
	var out *domain.Job
	err := r.s.run(ctx, r.t, func(t *txn) error {
		if err := t.lock(ctx, id); err != nil {
			return err
		}
		j, ok := t.job(id)
		if !ok {
			return domain.ErrJobNotFound
		}
		out = j
		return nil
	})
	return out, err
}

func (r *jobRepo) Create(ctx context.Context, job *domain.Job) error {
	return r.s.run(ctx, r.t, func(t *txn) error {
		job.ID = r.s.nextJobID()
		t.stageJob(job.ID, job.Clone())
		return nil
	})
}

func (r *jobRepo) Update(ctx context.Context, job *domain.Job) error {
	return r.s.run(ctx, r.t, func(t *txn) error {
		if err := t.lock(ctx, job.ID); err != nil {
			return err
		}
		if _, ok := t.job(job.ID); !ok {
			return domain.ErrJobNotFound
		}
		t.stageJob(job.ID, job.Clone())
		return nil
	})
}

func (r *jobRepo) Delete(ctx context.Context, id int64) error {
	return r.s.run(ctx, r.t, func(t *txn) error {
		if err := t.lock(ctx, id); err != nil {
			return err
		}
		if _, ok := t.job(id); !ok {
			return domain.ErrJobNotFound
		}
		t.stageJob(id, nil)
		return nil
	})
}

func (r *jobRepo) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	var out []domain.Job
	err := r.s.run(ctx, r.t, func(t *txn) error {
		jobs := t.allJobs()
		sort.Slice(jobs, func(i, k int) bool {
			if !jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
				return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
			}
			return jobs[i].ID > jobs[k].ID
		})
		out = make([]domain.Job, 0, len(jobs))
		for _, j := range jobs {
			if filter.Matches(j) {
				out = append(out, *j)
			}
		}
		return nil
	})
	return out, err
}

func (r *jobRepo) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	counts := make(map[domain.JobStatus]int, len(domain.JobStatuses))
	err := r.s.run(ctx, r.t, func(t *txn) error {
		for _, j := range t.allJobs() {
			counts[j.Status]++
		}
		return nil
	})
	return counts, err
}

type auditLog struct {
	s *Store
	t *txn
}

func (a *auditLog) Append(ctx context.Context, rec *domain.TransitionRecord) (int64, error) {
	err := a.s.run(ctx, a.t, func(t *txn) error {
		if _, ok := t.job(rec.JobID); !ok {
			return domain.Internal("append transition", fmt.Errorf("job %d does not exist", rec.JobID))
		}
		rec.ID = a.s.nextTransitionID()
		cp := *rec
		t.transitions = append(t.transitions, cp)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func (a *auditLog) ListByJob(ctx context.Context, jobID int64) ([]domain.TransitionRecord, error) {
	var out []domain.TransitionRecord
	err := a.s.run(ctx, a.t, func(t *txn) error {
		t.s.mu.Lock()
		for _, rec := range t.s.transitions {
			if rec.JobID == jobID {
				out = append(out, rec)
			}
		}
		t.s.mu.Unlock()

		for _, rec := range t.transitions {
			if rec.JobID == jobID {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.Before(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	return out, nil
}

type notificationSink struct {
	s *Store
	t *txn
}

func (n *notificationSink) Create(ctx context.Context, notif *domain.Notification) (int64, error) {
	err := n.s.run(ctx, n.t, func(t *txn) error {
		if !n.s.principalExists(notif.RecipientID) {
			return domain.Internal("create notification", fmt.Errorf("recipient %d does not exist", notif.RecipientID))
		}
		notif.ID = n.s.nextNotificationID()
		t.notifications[notif.ID] = cloneNotification(notif)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return notif.ID, nil
}

func (n *notificationSink) Get(ctx context.Context, id int64) (*domain.Notification, error) {
	var out *domain.Notification
	err := n.s.run(ctx, n.t, func(t *txn) error {
		notif, ok := t.notification(id)
		if !ok {
			return domain.ErrNotificationNotFound
		}
		out = notif
		return nil
	})
	return out, err
}

func (n *notificationSink) MarkRead(ctx context.Context, id int64, at time.Time) error {
	return n.s.run(ctx, n.t, func(t *txn) error {
		notif, ok := t.notification(id)
		if !ok {
			return domain.ErrNotificationNotFound
		}
		if notif.Read() {
			return nil
		}
		t.markRead(notif, at)
		return nil
	})
}

func (n *notificationSink) MarkAllReadForRecipient(ctx context.Context, recipientID int64, at time.Time) (int64, error) {
	var count int64
	err := n.s.run(ctx, n.t, func(t *txn) error {
		for _, notif := range t.recipientNotifications(recipientID) {
			if notif.Read() {
				continue
			}
			t.markRead(notif, at)
			count++
		}
		return nil
	})
	return count, err
}

func (n *notificationSink) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := n.s.run(ctx, n.t, func(t *txn) error {
		for _, notif := range t.recipientNotifications(recipientID) {
			if !notif.Read() {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (n *notificationSink) ListForRecipient(ctx context.Context, recipientID int64, unreadOnly bool) ([]domain.Notification, error) {
	var out []domain.Notification
	err := n.s.run(ctx, n.t, func(t *txn) error {
		for _, notif := range t.recipientNotifications(recipientID) {
			if unreadOnly && notif.Read() {
				continue
			}
			out = append(out, *notif)
		}
		return nil
	})
	return out, err
}

type directory struct {
	s *Store
}

func (d *directory) Get(_ context.Context, id int64) (*domain.Principal, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	p, ok := d.s.principals[id]
	if !ok {
		return nil, domain.ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (d *directory) ListByRole(_ context.Context, role domain.Role) ([]domain.Principal, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	out := make([]domain.Principal, 0)
	for _, p := range d.s.principals {
		if p.Role == role {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}
