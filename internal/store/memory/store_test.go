package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/store"
	"github.com/cuongbtq/fieldops-be/internal/store/memory"
	"github.com/cuongbtq/fieldops-be/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestStoreContract(t *testing.T) {
	suite.Run(t, &storetest.Suite{Open: storetest.Memory})
}

func TestLock_DifferentJobsDoNotBlock(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	a := storetest.NewJob("a", 0)
	b := storetest.NewJob("b", time.Second)
	require.NoError(t, s.Jobs().Create(ctx, a))
	require.NoError(t, s.Jobs().Create(ctx, b))

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithinTx(ctx, func(tx store.Tx) error {
			if _, err := tx.Jobs().GetForUpdate(ctx, a.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	// b is free while a is held
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.Jobs().GetForUpdate(ctx, b.ID)
		return err
	})
	require.NoError(t, err)

	// a is not
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err = s.WithinTx(waitCtx, func(tx store.Tx) error {
		_, err := tx.Jobs().GetForUpdate(waitCtx, a.ID)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)

	// released on commit
	err = s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.Jobs().GetForUpdate(ctx, a.ID)
		return err
	})
	assert.NoError(t, err)
}

func TestWithinTx_StagedWritesInvisibleUntilCommit(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	j := storetest.NewJob("staged", 0)
	require.NoError(t, s.Jobs().Create(ctx, j))

	inTx := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithinTx(ctx, func(tx store.Tx) error {
			cur, err := tx.Jobs().GetForUpdate(ctx, j.ID)
			if err != nil {
				return err
			}
			cur.ApplyStatus(domain.JobStatusWorking, storetest.Base.Add(time.Minute))
			if err := tx.Jobs().Update(ctx, cur); err != nil {
				return err
			}
			close(inTx)
			<-finish
			return nil
		})
	}()
	<-inTx

	got, err := s.Jobs().Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)

	close(finish)
	require.NoError(t, <-done)

	got, err = s.Jobs().Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusWorking, got.Status)
}

func TestWithinTx_CancelledContextDiscardsWrites(t *testing.T) {
	s := memory.New()
	ctx, cancel := context.WithCancel(context.Background())

	var id int64
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		j := storetest.NewJob("never", 0)
		if err := tx.Jobs().Create(ctx, j); err != nil {
			return err
		}
		id = j.ID
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Jobs().Get(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestGet_ReturnsCopies(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	j := storetest.NewJob("copy", 0)
	j.Attachments = []string{"a"}
	require.NoError(t, s.Jobs().Create(ctx, j))

	got, err := s.Jobs().Get(ctx, j.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.Attachments[0] = "b"

	again, err := s.Jobs().Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "copy", again.Title)
	assert.Equal(t, []string{"a"}, again.Attachments)
}

// stageRead marks id read inside a transaction that commits only once finish
// is closed
func stageRead(t *testing.T, s *memory.Store, id int64, at time.Time) (finish chan struct{}, done chan error) {
	t.Helper()
	ctx := context.Background()

	inTx := make(chan struct{})
	finish = make(chan struct{})
	done = make(chan error, 1)
	go func() {
		done <- s.WithinTx(ctx, func(tx store.Tx) error {
			if err := tx.Notifications().MarkRead(ctx, id, at); err != nil {
				return err
			}
			close(inTx)
			<-finish
			return nil
		})
	}()
	<-inTx
	return finish, done
}

func TestMarkRead_ConcurrentKeepsFirstCommit(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	manager := s.AddPrincipal(domain.Principal{Name: "Maria", Email: "maria@example.com", Role: domain.RoleManager})

	n := &domain.Notification{RecipientID: manager, Title: "t", Message: "m", Category: "system", CreatedAt: storetest.Base}
	_, err := s.Notifications().Create(ctx, n)
	require.NoError(t, err)

	late := storetest.Base.Add(2 * time.Hour)
	early := storetest.Base.Add(time.Hour)

	finish, done := stageRead(t, s, n.ID, late)

	// commits while the other transaction still holds its staged read
	require.NoError(t, s.Notifications().MarkRead(ctx, n.ID, early))

	close(finish)
	require.NoError(t, <-done)

	got, err := s.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReadAt)
	assert.True(t, early.Equal(*got.ReadAt), "read_at = %v, want %v", *got.ReadAt, early)
}

func TestMarkRead_DoesNotRestoreDeletedNotification(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	manager := s.AddPrincipal(domain.Principal{Name: "Maria", Email: "maria@example.com", Role: domain.RoleManager})

	j := storetest.NewJob("deleted", 0)
	require.NoError(t, s.Jobs().Create(ctx, j))
	n := &domain.Notification{RecipientID: manager, JobID: &j.ID, Title: "t", Message: "m", Category: domain.NotificationCategoryJobStatus, CreatedAt: storetest.Base}
	_, err := s.Notifications().Create(ctx, n)
	require.NoError(t, err)

	finish, done := stageRead(t, s, n.ID, storetest.Base.Add(time.Hour))

	require.NoError(t, s.Jobs().Delete(ctx, j.ID))

	close(finish)
	require.NoError(t, <-done)

	_, err = s.Notifications().Get(ctx, n.ID)
	assert.ErrorIs(t, err, domain.ErrNotificationNotFound)

	all, err := s.Notifications().ListForRecipient(ctx, manager, false)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMarkRead_StagedReadVisibleInsideTx(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	manager := s.AddPrincipal(domain.Principal{Name: "Maria", Email: "maria@example.com", Role: domain.RoleManager})

	n := &domain.Notification{RecipientID: manager, Title: "t", Message: "m", Category: "system", CreatedAt: storetest.Base}
	_, err := s.Notifications().Create(ctx, n)
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.Notifications().MarkRead(ctx, n.ID, storetest.Base.Add(time.Hour)); err != nil {
			return err
		}
		unread, err := tx.Notifications().CountUnread(ctx, manager)
		if err != nil {
			return err
		}
		assert.Zero(t, unread)

		got, err := tx.Notifications().Get(ctx, n.ID)
		if err != nil {
			return err
		}
		assert.NotNil(t, got.ReadAt)
		return nil
	})
	require.NoError(t, err)

	got, err := s.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.ReadAt)
}
