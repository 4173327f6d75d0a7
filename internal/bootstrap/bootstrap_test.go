package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/config"
	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverMemory}}

	svc, err := Open(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer svc.Close()

	assert.Nil(t, svc.DB)
	assert.Nil(t, svc.SQL)
	assert.Equal(t, "permissive", svc.Engine.Policy().Name())
	assert.NoError(t, svc.Store.Ping(context.Background()))
}

func TestOpen_SQLiteAutoMigrate(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:      "sqlite3",
			Path:        filepath.Join(t.TempDir(), "fieldops.db"),
			AutoMigrate: true,
		},
		Workflow: config.WorkflowConfig{TransitionPolicy: "strict"},
		Jobs:     config.JobsConfig{AuditMetadataEdits: true},
	}

	svc, err := Open(ctx, cfg, discard())
	require.NoError(t, err)
	defer svc.Close()

	require.NotNil(t, svc.SQL)
	assert.Equal(t, "strict", svc.Engine.Policy().Name())

	manager := &domain.Principal{Name: "Maria", Email: "maria@example.com", Role: domain.RoleManager, CreatedAt: time.Now().UTC()}
	require.NoError(t, svc.SQL.CreatePrincipal(ctx, manager))

	job, err := svc.Jobs.Create(ctx, jobs.CreateInput{
		CustomerID: 1,
		RegionID:   1,
		Title:      "Pump repair",
		StartDate:  time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}, manager.ID)
	require.NoError(t, err)

	renamed := "Pump repair and seal"
	_, err = svc.Jobs.Update(ctx, job.ID, domain.JobPatch{Title: &renamed}, manager.ID)
	require.NoError(t, err)

	history, err := svc.Jobs.History(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[1].Notes)
	assert.Equal(t, jobs.EditedNote, *history[1].Notes)
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{name: "unknown policy", cfg: &config.Config{
			Database: config.DatabaseConfig{Driver: config.DriverMemory},
			Workflow: config.WorkflowConfig{TransitionPolicy: "lenient"},
		}},
		{name: "unsupported driver", cfg: &config.Config{
			Database: config.DatabaseConfig{Driver: "mysql"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.cfg, discard())
			assert.Error(t, err)
		})
	}
}
