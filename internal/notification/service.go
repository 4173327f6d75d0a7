// Package notification exposes a principal's notification inbox
package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/store"
)

// Service reads and acknowledges notifications on behalf of their recipient
type Service struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates an inbox service. A nil now uses the wall clock.
func NewService(s store.Store, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, now: now, logger: logger}
}

// List returns the recipient's notifications, newest first
func (s *Service) List(ctx context.Context, recipientID int64, unreadOnly bool) ([]domain.Notification, error) {
	return s.store.Notifications().ListForRecipient(ctx, recipientID, unreadOnly)
}

// CountUnread returns the number of unread notifications
func (s *Service) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	return s.store.Notifications().CountUnread(ctx, recipientID)
}

// MarkRead marks one notification as read. Notifications addressed to someone
// else are reported as not found.
func (s *Service) MarkRead(ctx context.Context, recipientID, id int64) (*domain.Notification, error) {
	var out *domain.Notification
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		n, err := tx.Notifications().Get(ctx, id)
		if err != nil {
			return err
		}
		if n.RecipientID != recipientID {
			return domain.ErrNotificationNotFound
		}

		if err := tx.Notifications().MarkRead(ctx, id, s.now()); err != nil {
			return err
		}
		out, err = tx.Notifications().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAllRead marks every unread notification of the recipient and returns
// how many changed
func (s *Service) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	var n int64
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.Notifications().MarkAllReadForRecipient(ctx, recipientID, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("Notifications marked read",
		slog.Int64("recipient_id", recipientID),
		slog.Int64("count", n),
	)
	return n, nil
}
