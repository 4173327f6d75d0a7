// Package bootstrap wires configuration into the store, the services and the
// broker client shared by the api-service, worker-service and fieldctl
// binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/fieldops-be/internal/config"
	"github.com/cuongbtq/fieldops-be/internal/jobs"
	"github.com/cuongbtq/fieldops-be/internal/notification"
	"github.com/cuongbtq/fieldops-be/internal/store"
	"github.com/cuongbtq/fieldops-be/internal/store/memory"
	"github.com/cuongbtq/fieldops-be/internal/store/sqlstore"
	"github.com/cuongbtq/fieldops-be/internal/workflow"
	"github.com/cuongbtq/fieldops-be/shared/database"
	"github.com/cuongbtq/fieldops-be/shared/rabbitmq"
)

// Services bundles the store and everything built on top of it
type Services struct {
	Store         store.Store
	SQL           *sqlstore.Store // nil with the memory driver
	DB            *database.Client
	Engine        *workflow.Engine
	Jobs          *jobs.Service
	Notifications *notification.Service
}

// Close releases the database connection, if any
func (s *Services) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return s.Store.Close()
}

// Open connects the configured store, migrates it when auto_migrate is set
// and builds the services
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	policy, err := workflow.ParsePolicy(cfg.Workflow.TransitionPolicy)
	if err != nil {
		return nil, err
	}

	svc := &Services{}
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory store, data is lost on exit")
		svc.Store = memory.New()
	} else {
		db, err := database.NewClient(ctx, cfg.DatabaseClientConfig(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		svc.DB = db
		svc.SQL = sqlstore.New(db.GetDB(), logger)
		svc.Store = svc.SQL

		if cfg.Database.AutoMigrate {
			if err := svc.SQL.Migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
	}

	svc.Engine = workflow.NewEngine(svc.Store, workflow.Config{
		Policy:   policy,
		LinkBase: cfg.Notifications.LinkBase,
		Logger:   logger,
	})
	svc.Jobs = jobs.NewService(svc.Store, jobs.Config{
		AuditMetadataEdits: cfg.Jobs.AuditMetadataEdits,
		Logger:             logger,
	})
	svc.Notifications = notification.NewService(svc.Store, nil, logger)

	logger.Info("Services initialized",
		slog.String("driver", cfg.Database.Driver),
		slog.String("transition_policy", policy.Name()),
		slog.Bool("audit_metadata_edits", cfg.Jobs.AuditMetadataEdits),
	)

	return svc, nil
}

// ConnectRabbitMQ opens the broker client described by cfg
func ConnectRabbitMQ(cfg *config.Config, logger *slog.Logger) (*rabbitmq.Client, error) {
	client, err := rabbitmq.NewClient(cfg.RabbitClientConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	return client, nil
}

// RabbitHealthCheck adapts the client for /health
func RabbitHealthCheck(client *rabbitmq.Client) func(context.Context) error {
	return func(context.Context) error {
		if !client.IsConnected() {
			return fmt.Errorf("not connected to RabbitMQ")
		}
		return nil
	}
}
