// Package store defines the persistence contracts used by the job workflow:
// the job repository, the append-only audit log, the notification sink and
// the read-only recipient directory, plus the transaction boundary that lets
// a caller span all four atomically.
package store

import (
	"context"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
)

// JobRepository holds canonical job records
type JobRepository interface {
	// Get returns domain.ErrJobNotFound for unknown ids.
	Get(ctx context.Context, id int64) (*domain.Job, error)
	// GetForUpdate is Get plus a lock on the job held until the enclosing
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Job, error)
	// Create assigns job.ID.
	Create(ctx context.Context, job *domain.Job) error
	// Update writes every mutable column of job, including status.
	Update(ctx context.Context, job *domain.Job) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
	CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error)
}

// AuditLog is the append-only transition history
type AuditLog interface {
	Append(ctx context.Context, rec *domain.TransitionRecord) (int64, error)
	// ListByJob returns records ordered by created_at then insertion order.
	ListByJob(ctx context.Context, jobID int64) ([]domain.TransitionRecord, error)
}

// NotificationSink persists per-recipient notifications
type NotificationSink interface {
	Create(ctx context.Context, n *domain.Notification) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Notification, error)
	// MarkRead is a no-op when the notification is already read.
	MarkRead(ctx context.Context, id int64, at time.Time) error
	MarkAllReadForRecipient(ctx context.Context, recipientID int64, at time.Time) (int64, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
	ListForRecipient(ctx context.Context, recipientID int64, unreadOnly bool) ([]domain.Notification, error)
}

// RecipientDirectory is the read-only view of principals
type RecipientDirectory interface {
	Get(ctx context.Context, id int64) (*domain.Principal, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.Principal, error)
}

// Tx exposes the repositories bound to one transaction
type Tx interface {
	Jobs() JobRepository
	Audit() AuditLog
	Notifications() NotificationSink
	Directory() RecipientDirectory
}

// Store is a Tx whose repositories run outside any explicit transaction,
// plus the means to open one.
type Store interface {
	Tx

	// WithinTx runs fn in a transaction. It commits when fn returns nil and
	// rolls back otherwise; the returned error is fn's error or the commit
	// failure.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
