// Package storetest holds fixtures for every store.Store implementation and
// a behavioural suite they all must pass.
package storetest

import (
	"context"
	"errors"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/store"
	"github.com/stretchr/testify/suite"
)

// Base is the reference timestamp used by fixtures
var Base = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

// NewJob returns a valid pending job created at Base+offset
func NewJob(title string, offset time.Duration) *domain.Job {
	at := Base.Add(offset)
	return &domain.Job{
		CustomerID:  10,
		RegionID:    3,
		Status:      domain.JobStatusPending,
		Priority:    domain.PriorityMedium,
		Title:       title,
		Description: "replace filter",
		StartDate:   at.Add(24 * time.Hour),
		Attachments: []string{},
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

// Suite exercises the store contracts
type Suite struct {
	suite.Suite

	Open OpenFunc

	ctx     context.Context
	store   Fixture
	manager int64
	staff   int64
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.Open(s.T())
	s.manager = s.store.AddPrincipal(domain.Principal{
		Name: "Maria", Email: "maria@example.com", Role: domain.RoleManager, CreatedAt: Base,
	})
	s.staff = s.store.AddPrincipal(domain.Principal{
		Name: "Sam", Email: "sam@example.com", Role: domain.RoleStaff, CreatedAt: Base,
		Capabilities: domain.NewCapabilitySet(domain.CapAssignJobs),
	})
}

func (s *Suite) createJob(j *domain.Job) *domain.Job {
	s.Require().NoError(s.store.Jobs().Create(s.ctx, j))
	s.Require().NotZero(j.ID)
	return j
}

func (s *Suite) TestJobs_CreateAndGet() {
	due := Base.Add(72 * time.Hour)
	price := 120.5
	j := NewJob("Boiler service", 0)
	j.AssigneeID = &s.staff
	j.DueDate = &due
	j.Price = &price
	j.Materials = "gasket"
	j.Attachments = []string{"att-1", "att-2"}
	s.createJob(j)

	got, err := s.store.Jobs().Get(s.ctx, j.ID)
	s.Require().NoError(err)

	s.Equal(j.ID, got.ID)
	s.Equal("Boiler service", got.Title)
	s.Equal(domain.JobStatusPending, got.Status)
	s.Equal(domain.PriorityMedium, got.Priority)
	s.Equal("gasket", got.Materials)
	s.Require().NotNil(got.AssigneeID)
	s.Equal(s.staff, *got.AssigneeID)
	s.Require().NotNil(got.DueDate)
	s.True(due.Equal(*got.DueDate))
	s.Require().NotNil(got.Price)
	s.InDelta(120.5, *got.Price, 0.0001)
	s.Nil(got.CompletedAt)
	s.Equal([]string{"att-1", "att-2"}, got.Attachments)
	s.True(j.CreatedAt.Equal(got.CreatedAt))
}

func (s *Suite) TestJobs_GetMissing() {
	_, err := s.store.Jobs().Get(s.ctx, 999)
	s.ErrorIs(err, domain.ErrJobNotFound)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestJobs_Update() {
	j := s.createJob(NewJob("Leaking tap", 0))

	now := Base.Add(time.Hour)
	j.Title = "Leaking tap (kitchen)"
	j.Attachments = []string{"photo-1"}
	j.ApplyStatus(domain.JobStatusCompleted, now)
	s.Require().NoError(s.store.Jobs().Update(s.ctx, j))

	got, err := s.store.Jobs().Get(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Equal("Leaking tap (kitchen)", got.Title)
	s.Equal(domain.JobStatusCompleted, got.Status)
	s.Require().NotNil(got.CompletedAt)
	s.True(now.Equal(*got.CompletedAt))
	s.Equal([]string{"photo-1"}, got.Attachments)

	missing := NewJob("ghost", 0)
	missing.ID = 4242
	s.ErrorIs(s.store.Jobs().Update(s.ctx, missing), domain.ErrJobNotFound)
}

func (s *Suite) TestJobs_ListAndCount() {
	a := s.createJob(NewJob("a", 0))
	b := NewJob("b", time.Minute)
	b.AssigneeID = &s.staff
	b.Status = domain.JobStatusWorking
	s.createJob(b)
	c := NewJob("c", 2*time.Minute)
	c.RegionID = 9
	s.createJob(c)

	all, err := s.store.Jobs().List(s.ctx, domain.JobFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]int64{c.ID, b.ID, a.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	byAssignee, err := s.store.Jobs().List(s.ctx, domain.JobFilter{AssigneeID: s.staff})
	s.Require().NoError(err)
	s.Require().Len(byAssignee, 1)
	s.Equal(b.ID, byAssignee[0].ID)

	pendingInRegion, err := s.store.Jobs().List(s.ctx, domain.JobFilter{Status: domain.JobStatusPending, RegionID: 9})
	s.Require().NoError(err)
	s.Require().Len(pendingInRegion, 1)
	s.Equal(c.ID, pendingInRegion[0].ID)

	counts, err := s.store.Jobs().CountByStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, counts[domain.JobStatusPending])
	s.Equal(1, counts[domain.JobStatusWorking])
	s.Zero(counts[domain.JobStatusCompleted])
}

func (s *Suite) TestJobs_DeleteCascades() {
	j := s.createJob(NewJob("to delete", 0))
	keep := s.createJob(NewJob("to keep", time.Minute))

	_, err := s.store.Audit().Append(s.ctx, &domain.TransitionRecord{
		JobID: j.ID, ActorID: s.manager, NewStatus: domain.JobStatusPending, CreatedAt: Base,
	})
	s.Require().NoError(err)
	_, err = s.store.Audit().Append(s.ctx, &domain.TransitionRecord{
		JobID: keep.ID, ActorID: s.manager, NewStatus: domain.JobStatusPending, CreatedAt: Base,
	})
	s.Require().NoError(err)

	linked := &domain.Notification{RecipientID: s.manager, JobID: &j.ID, Title: "t", Message: "m", Category: domain.NotificationCategoryJobStatus, CreatedAt: Base}
	_, err = s.store.Notifications().Create(s.ctx, linked)
	s.Require().NoError(err)
	unlinked := &domain.Notification{RecipientID: s.manager, Title: "t", Message: "m", Category: "system", CreatedAt: Base}
	_, err = s.store.Notifications().Create(s.ctx, unlinked)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Jobs().Delete(s.ctx, j.ID))

	_, err = s.store.Jobs().Get(s.ctx, j.ID)
	s.ErrorIs(err, domain.ErrJobNotFound)

	history, err := s.store.Audit().ListByJob(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Empty(history)

	history, err = s.store.Audit().ListByJob(s.ctx, keep.ID)
	s.Require().NoError(err)
	s.Len(history, 1)

	_, err = s.store.Notifications().Get(s.ctx, linked.ID)
	s.ErrorIs(err, domain.ErrNotificationNotFound)
	_, err = s.store.Notifications().Get(s.ctx, unlinked.ID)
	s.NoError(err)

	s.ErrorIs(s.store.Jobs().Delete(s.ctx, j.ID), domain.ErrJobNotFound)
}

func (s *Suite) TestAudit_AppendAndOrder() {
	j := s.createJob(NewJob("audited", 0))

	prev := domain.JobStatusPending
	notes := "on the way"
	records := []*domain.TransitionRecord{
		{JobID: j.ID, ActorID: s.manager, NewStatus: domain.JobStatusPending, CreatedAt: Base},
		{JobID: j.ID, ActorID: s.staff, PreviousStatus: &prev, NewStatus: domain.JobStatusTraveling,
			Notes: &notes, Location: &domain.GeoPoint{Latitude: 52.52, Longitude: 13.405}, CreatedAt: Base.Add(time.Minute)},
	}
	for _, rec := range records {
		id, err := s.store.Audit().Append(s.ctx, rec)
		s.Require().NoError(err)
		s.Equal(rec.ID, id)
	}

	got, err := s.store.Audit().ListByJob(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)

	s.Nil(got[0].PreviousStatus)
	s.Nil(got[0].Notes)
	s.Nil(got[0].Location)
	s.Equal(domain.JobStatusPending, got[0].NewStatus)

	s.Require().NotNil(got[1].PreviousStatus)
	s.Equal(domain.JobStatusPending, *got[1].PreviousStatus)
	s.Equal(domain.JobStatusTraveling, got[1].NewStatus)
	s.Equal(s.staff, got[1].ActorID)
	s.Require().NotNil(got[1].Notes)
	s.Equal("on the way", *got[1].Notes)
	s.Require().NotNil(got[1].Location)
	s.InDelta(52.52, got[1].Location.Latitude, 1e-9)
	s.InDelta(13.405, got[1].Location.Longitude, 1e-9)
}

func (s *Suite) TestAudit_AppendUnknownJob() {
	_, err := s.store.Audit().Append(s.ctx, &domain.TransitionRecord{
		JobID: 777, ActorID: s.manager, NewStatus: domain.JobStatusPending, CreatedAt: Base,
	})
	s.ErrorIs(err, domain.ErrInternal)
}

func (s *Suite) TestNotifications_ReadState() {
	sink := s.store.Notifications()
	var ids []int64
	for i := range 3 {
		n := &domain.Notification{
			RecipientID: s.manager,
			Title:       "Job status updated",
			Message:     "msg",
			Category:    domain.NotificationCategoryJobStatus,
			Link:        "/jobs/1",
			CreatedAt:   Base.Add(time.Duration(i) * time.Minute),
		}
		id, err := sink.Create(s.ctx, n)
		s.Require().NoError(err)
		ids = append(ids, id)
	}
	other := &domain.Notification{RecipientID: s.staff, Title: "x", Message: "y", Category: "system", CreatedAt: Base}
	_, err := sink.Create(s.ctx, other)
	s.Require().NoError(err)

	unread, err := sink.CountUnread(s.ctx, s.manager)
	s.Require().NoError(err)
	s.Equal(3, unread)

	first := Base.Add(time.Hour)
	s.Require().NoError(sink.MarkRead(s.ctx, ids[0], first))
	s.Require().NoError(sink.MarkRead(s.ctx, ids[0], first.Add(time.Hour)))

	got, err := sink.Get(s.ctx, ids[0])
	s.Require().NoError(err)
	s.Require().NotNil(got.ReadAt)
	s.True(first.Equal(*got.ReadAt), "read_at must keep the first timestamp")

	list, err := sink.ListForRecipient(s.ctx, s.manager, true)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(ids[2], list[0].ID)
	s.Equal(ids[1], list[1].ID)

	n, err := sink.MarkAllReadForRecipient(s.ctx, s.manager, first)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	unread, err = sink.CountUnread(s.ctx, s.manager)
	s.Require().NoError(err)
	s.Zero(unread)

	unread, err = sink.CountUnread(s.ctx, s.staff)
	s.Require().NoError(err)
	s.Equal(1, unread)

	all, err := sink.ListForRecipient(s.ctx, s.manager, false)
	s.Require().NoError(err)
	s.Len(all, 3)

	s.ErrorIs(sink.MarkRead(s.ctx, 9999, first), domain.ErrNotificationNotFound)
}

func (s *Suite) TestNotifications_UnknownRecipient() {
	_, err := s.store.Notifications().Create(s.ctx, &domain.Notification{
		RecipientID: 5000, Title: "t", Message: "m", Category: "system", CreatedAt: Base,
	})
	s.ErrorIs(err, domain.ErrInternal)
}

func (s *Suite) TestDirectory() {
	second := s.store.AddPrincipal(domain.Principal{
		Name: "Mo", Email: "mo@example.com", Role: domain.RoleManager, CreatedAt: Base,
	})

	managers, err := s.store.Directory().ListByRole(s.ctx, domain.RoleManager)
	s.Require().NoError(err)
	s.Require().Len(managers, 2)
	s.Equal(s.manager, managers[0].ID)
	s.Equal(second, managers[1].ID)

	admins, err := s.store.Directory().ListByRole(s.ctx, domain.RoleAdmin)
	s.Require().NoError(err)
	s.Empty(admins)

	p, err := s.store.Directory().Get(s.ctx, s.staff)
	s.Require().NoError(err)
	s.Equal("Sam", p.Name)
	s.Equal(domain.RoleStaff, p.Role)
	s.True(p.Can(domain.CapAssignJobs))
	s.False(p.Can(domain.CapDeleteJobs))

	_, err = s.store.Directory().Get(s.ctx, 31337)
	s.ErrorIs(err, domain.ErrPrincipalNotFound)
}

func (s *Suite) TestWithinTx_RollbackOnError() {
	boom := errors.New("boom")
	var created int64

	err := s.store.WithinTx(s.ctx, func(tx store.Tx) error {
		j := NewJob("rolled back", 0)
		if err := tx.Jobs().Create(s.ctx, j); err != nil {
			return err
		}
		created = j.ID

		seen, err := tx.Jobs().Get(s.ctx, j.ID)
		if err != nil {
			return err
		}
		s.Equal("rolled back", seen.Title)

		_, err = tx.Audit().Append(s.ctx, &domain.TransitionRecord{
			JobID: j.ID, ActorID: s.manager, NewStatus: domain.JobStatusPending, CreatedAt: Base,
		})
		if err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)
	s.Require().NotZero(created)

	_, err = s.store.Jobs().Get(s.ctx, created)
	s.ErrorIs(err, domain.ErrJobNotFound)

	history, err := s.store.Audit().ListByJob(s.ctx, created)
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *Suite) TestWithinTx_Commit() {
	j := s.createJob(NewJob("committed", 0))

	err := s.store.WithinTx(s.ctx, func(tx store.Tx) error {
		locked, err := tx.Jobs().GetForUpdate(s.ctx, j.ID)
		if err != nil {
			return err
		}
		locked.ApplyStatus(domain.JobStatusTraveling, Base.Add(time.Minute))
		if err := tx.Jobs().Update(s.ctx, locked); err != nil {
			return err
		}
		_, err = tx.Notifications().Create(s.ctx, &domain.Notification{
			RecipientID: s.manager, JobID: &j.ID, Title: "t", Message: "m",
			Category: domain.NotificationCategoryJobStatus, CreatedAt: Base,
		})
		return err
	})
	s.Require().NoError(err)

	got, err := s.store.Jobs().Get(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusTraveling, got.Status)

	unread, err := s.store.Notifications().CountUnread(s.ctx, s.manager)
	s.Require().NoError(err)
	s.Equal(1, unread)
}

func (s *Suite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}
