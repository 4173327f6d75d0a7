package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/store"
	"github.com/cuongbtq/fieldops-be/internal/store/storetest"
	"github.com/cuongbtq/fieldops-be/internal/workflow"
	"github.com/stretchr/testify/suite"
)

type EngineSuite struct {
	suite.Suite

	open  storetest.OpenFunc
	ctx   context.Context
	store storetest.Fixture
	clock *clock

	engine   *workflow.Engine
	actor    int64
	managers []int64
}

// clock advances one second per reading
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestEngine(t *testing.T) {
	for name, open := range storetest.Backends {
		t.Run(name, func(t *testing.T) {
			suite.Run(t, &EngineSuite{open: open})
		})
	}
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.open(s.T())
	s.clock = &clock{now: storetest.Base}

	s.actor = s.store.AddPrincipal(domain.Principal{
		Name: "Tom", Email: "tom@example.com", Role: domain.RoleStaff, CreatedAt: storetest.Base,
	})
	s.managers = nil
	for i := range 3 {
		id := s.store.AddPrincipal(domain.Principal{
			Name:      fmt.Sprintf("Manager %d", i+1),
			Email:     fmt.Sprintf("manager%d@example.com", i+1),
			Role:      domain.RoleManager,
			CreatedAt: storetest.Base,
		})
		s.managers = append(s.managers, id)
	}

	s.engine = s.newEngine(s.store, workflow.Permissive{})
}

func (s *EngineSuite) newEngine(st store.Store, policy workflow.TransitionPolicy) *workflow.Engine {
	return workflow.NewEngine(st, workflow.Config{
		Policy:   policy,
		LinkBase: "https://ops.example.com/jobs/",
		Now:      s.clock.Now,
		Logger:   storetest.Logger(),
	})
}

// seedJob creates a job with its creation record, like jobs.Service does
func (s *EngineSuite) seedJob(title string, status domain.JobStatus) *domain.Job {
	j := storetest.NewJob(title, 0)
	j.Status = status
	err := s.store.WithinTx(s.ctx, func(tx store.Tx) error {
		if err := tx.Jobs().Create(s.ctx, j); err != nil {
			return err
		}
		_, err := tx.Audit().Append(s.ctx, &domain.TransitionRecord{
			JobID: j.ID, ActorID: s.actor, NewStatus: status, CreatedAt: j.CreatedAt,
		})
		return err
	})
	s.Require().NoError(err)
	return j
}

func (s *EngineSuite) history(jobID int64) []domain.TransitionRecord {
	recs, err := s.store.Audit().ListByJob(s.ctx, jobID)
	s.Require().NoError(err)
	return recs
}

func (s *EngineSuite) unread(recipient int64) int {
	n, err := s.store.Notifications().CountUnread(s.ctx, recipient)
	s.Require().NoError(err)
	return n
}

func (s *EngineSuite) transition(jobID int64, status domain.JobStatus) (*domain.Job, error) {
	return s.engine.Transition(s.ctx, workflow.TransitionRequest{JobID: jobID, Status: status, ActorID: s.actor})
}

func (s *EngineSuite) TestTransition_EveryPairRecordsPreviousStatus() {
	for _, from := range domain.JobStatuses {
		for _, to := range domain.JobStatuses {
			j := s.seedJob(fmt.Sprintf("%s to %s", from, to), from)

			got, err := s.transition(j.ID, to)
			s.Require().NoError(err, "%s -> %s", from, to)
			s.Equal(to, got.Status)

			recs := s.history(j.ID)
			s.Require().Len(recs, 2)
			s.Require().NotNil(recs[1].PreviousStatus)
			s.Equal(from, *recs[1].PreviousStatus)
			s.Equal(to, recs[1].NewStatus)
			s.Equal(s.actor, recs[1].ActorID)

			stored, err := s.store.Jobs().Get(s.ctx, j.ID)
			s.Require().NoError(err)
			s.Equal(to, stored.Status)
			s.Equal(to == domain.JobStatusCompleted, stored.CompletedAt != nil)
		}
	}
}

func (s *EngineSuite) TestTransition_Job42Example() {
	j := s.seedJob("Replace boiler", domain.JobStatusPending)

	got, err := s.transition(j.ID, domain.JobStatusTraveling)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusTraveling, got.Status)
	s.Nil(got.CompletedAt)

	recs := s.history(j.ID)
	s.Require().Len(recs, 2)
	s.Equal(domain.JobStatusPending, *recs[1].PreviousStatus)
	s.Equal(domain.JobStatusTraveling, recs[1].NewStatus)

	for _, m := range s.managers {
		list, err := s.store.Notifications().ListForRecipient(s.ctx, m, false)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		n := list[0]
		s.Equal(workflow.NotificationTitle, n.Title)
		s.Equal(domain.NotificationCategoryJobStatus, n.Category)
		s.Equal(fmt.Sprintf("https://ops.example.com/jobs/%d", j.ID), n.Link)
		s.Equal(fmt.Sprintf("Tom changed job #%d (Replace boiler) to Traveling", j.ID), n.Message)
		s.Require().NotNil(n.JobID)
		s.Equal(j.ID, *n.JobID)
		s.Nil(n.ReadAt)
	}
	s.Zero(s.unread(s.actor))

	got, err = s.transition(j.ID, domain.JobStatusCompleted)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusCompleted, got.Status)
	s.Require().NotNil(got.CompletedAt)
	s.True(got.CompletedAt.Equal(got.UpdatedAt))

	recs = s.history(j.ID)
	s.Require().Len(recs, 3)
	s.Equal(domain.JobStatusTraveling, *recs[2].PreviousStatus)
	s.Equal(domain.JobStatusCompleted, recs[2].NewStatus)
}

func (s *EngineSuite) TestTransition_NotificationCountMatchesManagers() {
	j := s.seedJob("count", domain.JobStatusPending)

	_, err := s.transition(j.ID, domain.JobStatusWorking)
	s.Require().NoError(err)
	for _, m := range s.managers {
		s.Equal(1, s.unread(m))
	}

	extra := s.store.AddPrincipal(domain.Principal{
		Name: "Late", Email: "late@example.com", Role: domain.RoleManager, CreatedAt: storetest.Base,
	})
	_, err = s.transition(j.ID, domain.JobStatusCompleted)
	s.Require().NoError(err)
	for _, m := range s.managers {
		s.Equal(2, s.unread(m))
	}
	s.Equal(1, s.unread(extra))
}

func (s *EngineSuite) TestTransition_NoManagers() {
	st := s.open(s.T())
	actor := st.AddPrincipal(domain.Principal{Name: "Solo", Email: "solo@example.com", Role: domain.RoleAdmin, CreatedAt: storetest.Base})
	j := storetest.NewJob("lonely", 0)
	s.Require().NoError(st.Jobs().Create(s.ctx, j))

	got, err := s.newEngine(st, nil).Transition(s.ctx, workflow.TransitionRequest{
		JobID: j.ID, Status: domain.JobStatusWorking, ActorID: actor,
	})
	s.Require().NoError(err)
	s.Equal(domain.JobStatusWorking, got.Status)
}

func (s *EngineSuite) TestTransition_AuditOrdering() {
	j := s.seedJob("ordered", domain.JobStatusPending)

	for _, st := range []domain.JobStatus{domain.JobStatusTraveling, domain.JobStatusWorking, domain.JobStatusCompleted} {
		_, err := s.transition(j.ID, st)
		s.Require().NoError(err)
	}

	recs := s.history(j.ID)
	s.Require().Len(recs, 4)
	s.Nil(recs[0].PreviousStatus)
	s.Equal(domain.JobStatusPending, recs[0].NewStatus)
	for i := 1; i < len(recs); i++ {
		s.Require().NotNil(recs[i].PreviousStatus)
		s.Equal(recs[i-1].NewStatus, *recs[i].PreviousStatus)
		s.False(recs[i].CreatedAt.Before(recs[i-1].CreatedAt))
	}
	s.Equal(domain.JobStatusCompleted, recs[3].NewStatus)
}

func (s *EngineSuite) TestTransition_CompletedAtLifecycle() {
	j := s.seedJob("reopen", domain.JobStatusWorking)

	done, err := s.transition(j.ID, domain.JobStatusCompleted)
	s.Require().NoError(err)
	s.Require().NotNil(done.CompletedAt)
	stamp := *done.CompletedAt

	again, err := s.transition(j.ID, domain.JobStatusCompleted)
	s.Require().NoError(err)
	s.Require().NotNil(again.CompletedAt)
	s.True(stamp.Equal(*again.CompletedAt))

	reopened, err := s.transition(j.ID, domain.JobStatusPending)
	s.Require().NoError(err)
	s.Nil(reopened.CompletedAt)
}

func (s *EngineSuite) TestTransition_NotesAndLocation() {
	j := s.seedJob("with details", domain.JobStatusPending)
	notes := "  left the depot  "
	blank := "   "

	_, err := s.engine.Transition(s.ctx, workflow.TransitionRequest{
		JobID: j.ID, Status: domain.JobStatusTraveling, ActorID: s.actor,
		Notes: &notes, Location: &domain.GeoPoint{Latitude: -33.86, Longitude: 151.21},
	})
	s.Require().NoError(err)
	_, err = s.engine.Transition(s.ctx, workflow.TransitionRequest{
		JobID: j.ID, Status: domain.JobStatusWorking, ActorID: s.actor, Notes: &blank,
	})
	s.Require().NoError(err)

	recs := s.history(j.ID)
	s.Require().Len(recs, 3)
	s.Require().NotNil(recs[1].Notes)
	s.Equal("left the depot", *recs[1].Notes)
	s.Require().NotNil(recs[1].Location)
	s.InDelta(-33.86, recs[1].Location.Latitude, 1e-9)
	s.Nil(recs[2].Notes)
	s.Nil(recs[2].Location)
}

func (s *EngineSuite) TestTransition_Errors() {
	j := s.seedJob("errors", domain.JobStatusPending)

	tests := []struct {
		name string
		req  workflow.TransitionRequest
		want error
		kind error
	}{
		{
			name: "unknown job",
			req:  workflow.TransitionRequest{JobID: 9999, Status: domain.JobStatusWorking, ActorID: s.actor},
			want: domain.ErrJobNotFound,
			kind: domain.ErrNotFound,
		},
		{
			name: "invalid status",
			req:  workflow.TransitionRequest{JobID: j.ID, Status: "paused", ActorID: s.actor},
			want: domain.ErrInvalidStatus,
			kind: domain.ErrInvalidArgument,
		},
		{
			name: "latitude out of range",
			req: workflow.TransitionRequest{JobID: j.ID, Status: domain.JobStatusWorking, ActorID: s.actor,
				Location: &domain.GeoPoint{Latitude: 91, Longitude: 0}},
			want: domain.ErrInvalidLocation,
			kind: domain.ErrInvalidArgument,
		},
		{
			name: "unknown actor",
			req:  workflow.TransitionRequest{JobID: j.ID, Status: domain.JobStatusWorking, ActorID: 8888},
			want: domain.ErrPrincipalNotFound,
			kind: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, err := s.engine.Transition(s.ctx, tt.req)
			s.Nil(got)
			s.ErrorIs(err, tt.want)
			s.ErrorIs(err, tt.kind)
		})
	}

	s.Len(s.history(j.ID), 1)
	for _, m := range s.managers {
		s.Zero(s.unread(m))
	}
}

func (s *EngineSuite) TestTransition_StrictPolicy() {
	strict := s.newEngine(s.store, workflow.Strict{})
	j := s.seedJob("strict", domain.JobStatusPending)

	_, err := strict.Transition(s.ctx, workflow.TransitionRequest{JobID: j.ID, Status: domain.JobStatusCompleted, ActorID: s.actor})
	s.ErrorIs(err, domain.ErrTransitionNotAllowed)
	s.ErrorIs(err, domain.ErrConflict)
	s.Len(s.history(j.ID), 1)

	for _, st := range []domain.JobStatus{domain.JobStatusTraveling, domain.JobStatusWorking, domain.JobStatusCompleted} {
		_, err := strict.Transition(s.ctx, workflow.TransitionRequest{JobID: j.ID, Status: st, ActorID: s.actor})
		s.Require().NoError(err)
	}

	_, err = strict.Transition(s.ctx, workflow.TransitionRequest{JobID: j.ID, Status: domain.JobStatusPending, ActorID: s.actor})
	s.ErrorIs(err, domain.ErrConflict)

	stored, err := s.store.Jobs().Get(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusCompleted, stored.Status)
	s.NotNil(stored.CompletedAt)
}

func (s *EngineSuite) TestTransition_NotificationFailureRollsBack() {
	j := s.seedJob("atomic", domain.JobStatusPending)

	faulty := &faultyStore{Store: s.store, failNotificationAfter: 1}
	_, err := s.newEngine(faulty, nil).Transition(s.ctx, workflow.TransitionRequest{
		JobID: j.ID, Status: domain.JobStatusCompleted, ActorID: s.actor,
	})
	s.ErrorIs(err, errInjected)
	s.ErrorIs(err, domain.ErrInternal)

	stored, err := s.store.Jobs().Get(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusPending, stored.Status)
	s.Nil(stored.CompletedAt)
	s.Len(s.history(j.ID), 1)
	for _, m := range s.managers {
		s.Zero(s.unread(m), "manager %d must not keep a partial notification", m)
	}
}

func (s *EngineSuite) TestTransition_DirectoryFailureIsFatal() {
	j := s.seedJob("directory", domain.JobStatusPending)

	faulty := &faultyStore{Store: s.store, failDirectory: true}
	_, err := s.newEngine(faulty, nil).Transition(s.ctx, workflow.TransitionRequest{
		JobID: j.ID, Status: domain.JobStatusWorking, ActorID: s.actor,
	})
	s.ErrorIs(err, domain.ErrInternal)
	s.ErrorIs(err, errInjected)

	stored, err := s.store.Jobs().Get(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Equal(domain.JobStatusPending, stored.Status)
	s.Len(s.history(j.ID), 1)
}

var errInjected = errors.New("injected fault")

// faultyStore wraps a store and fails selected calls made inside transactions
type faultyStore struct {
	store.Store

	failNotificationAfter int
	failDirectory         bool
	created               int
}

func (f *faultyStore) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.WithinTx(ctx, func(tx store.Tx) error {
		return fn(&faultyTx{Tx: tx, f: f})
	})
}

type faultyTx struct {
	store.Tx
	f *faultyStore
}

func (t *faultyTx) Notifications() store.NotificationSink {
	return &faultySink{NotificationSink: t.Tx.Notifications(), f: t.f}
}

func (t *faultyTx) Directory() store.RecipientDirectory {
	if t.f.failDirectory {
		return &faultyDirectory{RecipientDirectory: t.Tx.Directory()}
	}
	return t.Tx.Directory()
}

type faultySink struct {
	store.NotificationSink
	f *faultyStore
}

func (s *faultySink) Create(ctx context.Context, n *domain.Notification) (int64, error) {
	if s.f.failNotificationAfter > 0 && s.f.created >= s.f.failNotificationAfter {
		return 0, domain.Internal("create notification", errInjected)
	}
	s.f.created++
	return s.NotificationSink.Create(ctx, n)
}

type faultyDirectory struct {
	store.RecipientDirectory
}

func (d *faultyDirectory) ListByRole(context.Context, domain.Role) ([]domain.Principal, error) {
	return nil, errInjected
}
