package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/jobs"
	"github.com/cuongbtq/fieldops-be/internal/store/storetest"
	"github.com/cuongbtq/fieldops-be/internal/workflow"
	"github.com/stretchr/testify/suite"
)

type ServiceSuite struct {
	suite.Suite

	open  storetest.OpenFunc
	ctx   context.Context
	store storetest.Fixture
	now   time.Time

	svc     *jobs.Service
	manager int64
	tech    int64
}

func TestService(t *testing.T) {
	for name, open := range storetest.Backends {
		t.Run(name, func(t *testing.T) {
			suite.Run(t, &ServiceSuite{open: open})
		})
	}
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.open(s.T())
	s.now = storetest.Base

	s.manager = s.store.AddPrincipal(domain.Principal{Name: "Maria", Email: "maria@example.com", Role: domain.RoleManager, CreatedAt: storetest.Base})
	s.tech = s.store.AddPrincipal(domain.Principal{Name: "Tom", Email: "tom@example.com", Role: domain.RoleStaff, CreatedAt: storetest.Base})
	s.svc = s.newService(false)
}

func (s *ServiceSuite) clock() time.Time {
	s.now = s.now.Add(time.Minute)
	return s.now
}

func (s *ServiceSuite) newService(auditEdits bool) *jobs.Service {
	return jobs.NewService(s.store, jobs.Config{
		AuditMetadataEdits: auditEdits,
		Now:                s.clock,
		Logger:             storetest.Logger(),
	})
}

func (s *ServiceSuite) input(title string) jobs.CreateInput {
	return jobs.CreateInput{
		CustomerID: 12,
		RegionID:   4,
		Title:      title,
		StartDate:  storetest.Base.Add(48 * time.Hour),
	}
}

func (s *ServiceSuite) TestCreate_DefaultsAndCreationRecord() {
	in := s.input("  Install heat pump ")
	in.Attachments = []string{"quote.pdf"}

	job, err := s.svc.Create(s.ctx, in, s.manager)
	s.Require().NoError(err)
	s.NotZero(job.ID)
	s.Equal("Install heat pump", job.Title)
	s.Equal(domain.JobStatusPending, job.Status)
	s.Equal(domain.PriorityMedium, job.Priority)
	s.Nil(job.CompletedAt)

	stored, err := s.svc.Get(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal([]string{"quote.pdf"}, stored.Attachments)

	history, err := s.svc.History(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Nil(history[0].PreviousStatus)
	s.Equal(domain.JobStatusPending, history[0].NewStatus)
	s.Equal(s.manager, history[0].ActorID)
}

func (s *ServiceSuite) TestCreate_WithExplicitStatus() {
	in := s.input("Already done")
	in.Status = domain.JobStatusCompleted
	in.Priority = domain.PriorityUrgent
	in.AssigneeID = &s.tech

	job, err := s.svc.Create(s.ctx, in, s.manager)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusCompleted, job.Status)
	s.Equal(domain.PriorityUrgent, job.Priority)
	s.Require().NotNil(job.CompletedAt)
	s.Require().NotNil(job.AssigneeID)
	s.Equal(s.tech, *job.AssigneeID)
}

func (s *ServiceSuite) TestCreate_Validation() {
	ghost := int64(999)
	negative := -5.0
	early := storetest.Base

	tests := []struct {
		name   string
		mutate func(in *jobs.CreateInput)
		actor  int64
		want   error
	}{
		{name: "missing title", mutate: func(in *jobs.CreateInput) { in.Title = " " }, want: domain.ErrInvalidArgument},
		{name: "missing customer", mutate: func(in *jobs.CreateInput) { in.CustomerID = 0 }, want: domain.ErrInvalidArgument},
		{name: "missing region", mutate: func(in *jobs.CreateInput) { in.RegionID = 0 }, want: domain.ErrInvalidArgument},
		{name: "missing start date", mutate: func(in *jobs.CreateInput) { in.StartDate = time.Time{} }, want: domain.ErrInvalidArgument},
		{name: "bad status", mutate: func(in *jobs.CreateInput) { in.Status = "paused" }, want: domain.ErrInvalidStatus},
		{name: "bad priority", mutate: func(in *jobs.CreateInput) { in.Priority = "asap" }, want: domain.ErrInvalidArgument},
		{name: "due before start", mutate: func(in *jobs.CreateInput) { in.DueDate = &early }, want: domain.ErrInvalidArgument},
		{name: "negative price", mutate: func(in *jobs.CreateInput) { in.Price = &negative }, want: domain.ErrInvalidArgument},
		{name: "unknown assignee", mutate: func(in *jobs.CreateInput) { in.AssigneeID = &ghost }, want: domain.ErrPrincipalNotFound},
		{name: "unknown actor", mutate: func(*jobs.CreateInput) {}, actor: 4040, want: domain.ErrPrincipalNotFound},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			in := s.input("job")
			tt.mutate(&in)
			actor := tt.actor
			if actor == 0 {
				actor = s.manager
			}
			_, err := s.svc.Create(s.ctx, in, actor)
			s.ErrorIs(err, tt.want)
		})
	}

	list, err := s.svc.List(s.ctx, domain.JobFilter{})
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *ServiceSuite) TestUpdate_KeepsStatusAndCompletedAt() {
	in := s.input("Fix roof")
	in.Status = domain.JobStatusCompleted
	job, err := s.svc.Create(s.ctx, in, s.manager)
	s.Require().NoError(err)
	s.Require().NotNil(job.CompletedAt)
	stamp := *job.CompletedAt

	title := "Fix roof and gutter"
	price := 340.0
	updated, err := s.svc.Update(s.ctx, job.ID, domain.JobPatch{Title: &title, Price: &price, Attachments: []string{"after.jpg"}}, s.manager)
	s.Require().NoError(err)
	s.Equal(title, updated.Title)
	s.Equal(domain.JobStatusCompleted, updated.Status)
	s.Require().NotNil(updated.CompletedAt)
	s.True(stamp.Equal(*updated.CompletedAt))
	s.True(updated.UpdatedAt.After(job.UpdatedAt))

	stored, err := s.svc.Get(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal([]string{"after.jpg"}, stored.Attachments)
	s.Require().NotNil(stored.Price)
	s.InDelta(340.0, *stored.Price, 1e-9)

	history, err := s.svc.History(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Len(history, 1, "metadata edits are not audited by default")
}

func (s *ServiceSuite) TestUpdate_AuditsEditsWhenEnabled() {
	svc := s.newService(true)
	job, err := svc.Create(s.ctx, s.input("Audited"), s.manager)
	s.Require().NoError(err)

	desc := "bring ladder"
	_, err = svc.Update(s.ctx, job.ID, domain.JobPatch{Description: &desc}, s.tech)
	s.Require().NoError(err)

	history, err := svc.History(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	edited := history[1]
	s.Nil(edited.PreviousStatus)
	s.Equal(domain.JobStatusPending, edited.NewStatus)
	s.Equal(s.tech, edited.ActorID)
	s.Require().NotNil(edited.Notes)
	s.Equal(jobs.EditedNote, *edited.Notes)
}

func (s *ServiceSuite) TestUpdate_Errors() {
	job, err := s.svc.Create(s.ctx, s.input("Errors"), s.manager)
	s.Require().NoError(err)

	empty := ""
	bad := domain.Priority("asap")
	early := storetest.Base

	_, err = s.svc.Update(s.ctx, job.ID, domain.JobPatch{}, s.manager)
	s.ErrorIs(err, domain.ErrInvalidArgument)
	_, err = s.svc.Update(s.ctx, job.ID, domain.JobPatch{Title: &empty}, s.manager)
	s.ErrorIs(err, domain.ErrInvalidArgument)
	_, err = s.svc.Update(s.ctx, job.ID, domain.JobPatch{Priority: &bad}, s.manager)
	s.ErrorIs(err, domain.ErrInvalidArgument)
	_, err = s.svc.Update(s.ctx, job.ID, domain.JobPatch{DueDate: &early}, s.manager)
	s.ErrorIs(err, domain.ErrInvalidArgument)
	_, err = s.svc.Update(s.ctx, 5555, domain.JobPatch{Title: &job.Title}, s.manager)
	s.ErrorIs(err, domain.ErrJobNotFound)

	stored, err := s.svc.Get(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Nil(stored.DueDate)
}

func (s *ServiceSuite) TestUpdate_ClearsDueDateAndPrice() {
	in := s.input("Clearable")
	due := in.StartDate.Add(48 * time.Hour)
	price := 150.0
	in.DueDate = &due
	in.Price = &price
	job, err := s.svc.Create(s.ctx, in, s.manager)
	s.Require().NoError(err)
	s.Require().NotNil(job.DueDate)
	s.Require().NotNil(job.Price)

	_, err = s.svc.Update(s.ctx, job.ID, domain.JobPatch{ClearDueDate: true, ClearPrice: true}, s.manager)
	s.Require().NoError(err)

	stored, err := s.svc.Get(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Nil(stored.DueDate)
	s.Nil(stored.Price)

	_, err = s.svc.Update(s.ctx, job.ID, domain.JobPatch{DueDate: &due, ClearDueDate: true}, s.manager)
	s.ErrorIs(err, domain.ErrInvalidArgument)
	_, err = s.svc.Update(s.ctx, job.ID, domain.JobPatch{Price: &price, ClearPrice: true}, s.manager)
	s.ErrorIs(err, domain.ErrInvalidArgument)
}

func (s *ServiceSuite) TestAssign_NoAuditRecord() {
	job, err := s.svc.Create(s.ctx, s.input("Assign me"), s.manager)
	s.Require().NoError(err)

	assigned, err := s.svc.Assign(s.ctx, job.ID, s.tech)
	s.Require().NoError(err)
	s.Require().NotNil(assigned.AssigneeID)
	s.Equal(s.tech, *assigned.AssigneeID)
	s.Equal(domain.JobStatusPending, assigned.Status)

	mine, err := s.svc.List(s.ctx, domain.JobFilter{AssigneeID: s.tech})
	s.Require().NoError(err)
	s.Len(mine, 1)

	history, err := s.svc.History(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Len(history, 1)

	_, err = s.svc.Assign(s.ctx, job.ID, 777)
	s.ErrorIs(err, domain.ErrPrincipalNotFound)
	_, err = s.svc.Assign(s.ctx, 777, s.tech)
	s.ErrorIs(err, domain.ErrJobNotFound)

	cleared, err := s.svc.Assign(s.ctx, job.ID, 0)
	s.Require().NoError(err)
	s.Nil(cleared.AssigneeID)
}

func (s *ServiceSuite) TestDelete_CascadesHistory() {
	job, err := s.svc.Create(s.ctx, s.input("Short lived"), s.manager)
	s.Require().NoError(err)

	engine := workflow.NewEngine(s.store, workflow.Config{Now: s.clock, Logger: storetest.Logger()})
	_, err = engine.Transition(s.ctx, workflow.TransitionRequest{JobID: job.ID, Status: domain.JobStatusTraveling, ActorID: s.tech})
	s.Require().NoError(err)

	unread, err := s.store.Notifications().CountUnread(s.ctx, s.manager)
	s.Require().NoError(err)
	s.Equal(1, unread)

	s.Require().NoError(s.svc.Delete(s.ctx, job.ID))

	_, err = s.svc.History(s.ctx, job.ID)
	s.ErrorIs(err, domain.ErrJobNotFound)
	unread, err = s.store.Notifications().CountUnread(s.ctx, s.manager)
	s.Require().NoError(err)
	s.Zero(unread)

	s.ErrorIs(s.svc.Delete(s.ctx, job.ID), domain.ErrJobNotFound)
}

func (s *ServiceSuite) TestListAndSummary() {
	for _, title := range []string{"one", "two", "three"} {
		_, err := s.svc.Create(s.ctx, s.input(title), s.manager)
		s.Require().NoError(err)
	}
	in := s.input("four")
	in.Status = domain.JobStatusWorking
	_, err := s.svc.Create(s.ctx, in, s.manager)
	s.Require().NoError(err)

	all, err := s.svc.List(s.ctx, domain.JobFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Equal("four", all[0].Title)

	working, err := s.svc.List(s.ctx, domain.JobFilter{Status: domain.JobStatusWorking})
	s.Require().NoError(err)
	s.Len(working, 1)

	_, err = s.svc.List(s.ctx, domain.JobFilter{Status: "paused"})
	s.ErrorIs(err, domain.ErrInvalidArgument)

	sum, err := s.svc.Summary(s.ctx)
	s.Require().NoError(err)
	s.Equal(4, sum.Total)
	s.Equal(3, sum.ByStatus[domain.JobStatusPending])
	s.Equal(1, sum.ByStatus[domain.JobStatusWorking])
	s.Contains(sum.ByStatus, domain.JobStatusCancelled)
	s.Len(sum.ByStatus, len(domain.JobStatuses))
}
