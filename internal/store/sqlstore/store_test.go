package sqlstore_test

import (
	"context"
	"testing"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestStoreContract_SQLite(t *testing.T) {
	suite.Run(t, &storetest.Suite{Open: storetest.SQLite})
}

func TestMigrate_Idempotent(t *testing.T) {
	s := storetest.OpenSQL(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestPrincipals_RoundTrip(t *testing.T) {
	s := storetest.OpenSQL(t)
	ctx := context.Background()

	p := &domain.Principal{
		Name:         "Ada",
		Email:        "ada@example.com",
		Role:         domain.RoleStaff,
		Capabilities: domain.NewCapabilitySet(domain.CapViewDashboard, domain.CapAssignJobs),
		CreatedAt:    storetest.Base,
	}
	require.NoError(t, s.CreatePrincipal(ctx, p))
	require.NotZero(t, p.ID)

	list, err := s.ListPrincipals(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []domain.Capability{domain.CapAssignJobs, domain.CapViewDashboard}, list[0].Capabilities.List())

	dup := &domain.Principal{Name: "Ada 2", Email: "ada@example.com", Role: domain.RoleStaff, CreatedAt: storetest.Base}
	assert.ErrorIs(t, s.CreatePrincipal(ctx, dup), domain.ErrInternal)
}

func TestJobs_RejectsUnknownStatus(t *testing.T) {
	s := storetest.OpenSQL(t)

	j := storetest.NewJob("bad", 0)
	j.Status = domain.JobStatus("paused")
	err := s.Jobs().Create(context.Background(), j)
	assert.ErrorIs(t, err, domain.ErrInternal)
}

func TestJobs_AssigneeMustExist(t *testing.T) {
	s := storetest.OpenSQL(t)

	ghost := int64(404)
	j := storetest.NewJob("orphan", 0)
	j.AssigneeID = &ghost
	assert.ErrorIs(t, s.Jobs().Create(context.Background(), j), domain.ErrInternal)
}
