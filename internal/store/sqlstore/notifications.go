package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/jmoiron/sqlx"
)

type notificationSink struct {
	ext sqlx.ExtContext
}

func (n *notificationSink) Create(ctx context.Context, notif *domain.Notification) (int64, error) {
	query := `
		INSERT INTO notifications (
			recipient_id, job_id, title, message, category, link, read_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	id, err := insertReturningID(ctx, n.ext, query,
		notif.RecipientID,
		nullInt64(notif.JobID),
		notif.Title,
		notif.Message,
		notif.Category,
		notif.Link,
		nullTime(notif.ReadAt),
		notif.CreatedAt,
	)
	if err != nil {
		return 0, domain.Internal("create notification", err)
	}

	notif.ID = id
	return id, nil
}

func (n *notificationSink) Get(ctx context.Context, id int64) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

	var row notificationRow
	if err := sqlx.GetContext(ctx, n.ext, &row, n.ext.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, domain.Internal("get notification", err)
	}

	notif := row.toDomain()
	return &notif, nil
}

// MarkRead keeps the first read timestamp when called again
func (n *notificationSink) MarkRead(ctx context.Context, id int64, at time.Time) error {
	affected, err := execAffected(ctx, n.ext,
		`UPDATE notifications SET read_at = ? WHERE id = ? AND read_at IS NULL`,
		at, id,
	)
	if err != nil {
		return domain.Internal("mark notification read", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing changed: either already read or missing
	_, err = n.Get(ctx, id)
	return err
}

func (n *notificationSink) MarkAllReadForRecipient(ctx context.Context, recipientID int64, at time.Time) (int64, error) {
	affected, err := execAffected(ctx, n.ext,
		`UPDATE notifications SET read_at = ? WHERE recipient_id = ? AND read_at IS NULL`,
		at, recipientID,
	)
	if err != nil {
		return 0, domain.Internal("mark all notifications read", err)
	}
	return affected, nil
}

func (n *notificationSink) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND read_at IS NULL`
	if err := sqlx.GetContext(ctx, n.ext, &count, n.ext.Rebind(query), recipientID); err != nil {
		return 0, domain.Internal("count unread notifications", err)
	}
	return count, nil
}

func (n *notificationSink) ListForRecipient(ctx context.Context, recipientID int64, unreadOnly bool) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = ?`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var rows []notificationRow
	if err := sqlx.SelectContext(ctx, n.ext, &rows, n.ext.Rebind(query), recipientID); err != nil {
		return nil, domain.Internal("list notifications", err)
	}

	out := make([]domain.Notification, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}
